// Package app assembles the bot: configuration, database, chain gateway,
// workflow engine, and Telegram wiring.
package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ambns/ansbot/ans/bot"
	"github.com/ambns/ansbot/ans/chain"
	appconfig "github.com/ambns/ansbot/ans/config"
	"github.com/ambns/ansbot/ans/registry"
	"github.com/ambns/ansbot/ans/workflow"

	corebootstrap "github.com/ambns/ansbot/core/bootstrap"
	corecmd "github.com/ambns/ansbot/core/cmd"
	coretelegram "github.com/ambns/ansbot/core/telegram"
	"github.com/ambns/ansbot/core/telegram/router"
)

const dialTimeout = 15 * time.Second

// App holds the assembled services.
type App struct {
	cfg      *appconfig.Config
	db       *sqlx.DB
	gateway  *chain.Client
	engine   *workflow.Engine
	adapter  *bot.Adapter
	notifier *bot.Notifier
}

// Bootstrap initializes infrastructure and services from the loaded config.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*appconfig.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	res, err := corebootstrap.Run(corebootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	gateway, err := chain.Dial(ctx, chain.ClientConfig{
		RPCURL:           cfg.Chain.RPCURL,
		CustodialAddress: cfg.Chain.CustodialAddress,
		PrivateKeyHex:    cfg.Chain.PrivateKey,
		GasLimit:         cfg.Chain.GasLimit,
		GasPriceWei:      gweiToWei(cfg.Chain.GasPriceGwei),
	})
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	store := registry.NewStore(res.DB)
	notifier := bot.NewNotifier()
	engine := workflow.New(workflow.Config{
		PollInterval:       time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second,
		PaymentTimeout:     time.Duration(cfg.Workflow.PaymentTimeoutSeconds) * time.Second,
		RegistrationFeeWei: chain.AMBToWei(cfg.Workflow.RegistrationFeeAMB),
	}, gateway, store, notifier)

	return &App{
		cfg:      cfg,
		db:       res.DB,
		gateway:  gateway,
		engine:   engine,
		adapter:  bot.NewAdapter(engine, gateway, res.DB),
		notifier: notifier,
	}, nil
}

// TelegramRunOptions wires registry, routes, and lifecycle hooks for the
// core Telegram runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.adapter.Register(reg)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(a.adapter, reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.notifier.Bind(rt.Bot, rt.Dispatcher)
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.engine.Close()
			a.gateway.Close()
			return a.db.Close()
		},
	}, nil
}

func gweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(1_000_000_000))
}
