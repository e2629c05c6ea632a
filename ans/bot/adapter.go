// Package bot adapts Telegram updates to workflow events and renders the
// engine's outbound directives back to the user.
package bot

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/ambns/ansbot/ans/workflow"
	"github.com/ambns/ansbot/core/telegram/commands"
	"github.com/ambns/ansbot/core/telegram/keyboard"

	coretelegram "github.com/ambns/ansbot/core/telegram"
	tghelpers "github.com/ambns/ansbot/core/telegram/helpers"
)

// Pinger is the connectivity surface the health command checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Adapter wires the workflow engine into the bot registry and implements
// the text router's FSM contract.
type Adapter struct {
	engine  *workflow.Engine
	gateway Pinger
	db      *sqlx.DB
}

// NewAdapter builds the front-end adapter.
func NewAdapter(engine *workflow.Engine, gateway Pinger, db *sqlx.DB) *Adapter {
	return &Adapter{engine: engine, gateway: gateway, db: db}
}

// Register binds commands and menu callbacks on the shared registry.
func (a *Adapter) Register(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.onStart,
		Description: "Show the main menu",
	})
	reg.RegisterCommand("/health", commands.Command{
		Handler:     a.onHealth,
		Description: "Service health",
		AdminOnly:   true,
		Hidden:      true,
	})

	_ = reg.RegisterCallback(string(workflow.ActionCreateName), a.onButton(workflow.ActionCreateName))
	_ = reg.RegisterCallback(string(workflow.ActionMakeTransfer), a.onButton(workflow.ActionMakeTransfer))
	_ = reg.RegisterCallback(string(workflow.ActionDecryptName), a.onButton(workflow.ActionDecryptName))

	reg.SetTextFallback(func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		return a.render(c, a.engine.Text(ctx, c.Chat().ID, c.Text()))
	})
}

// InProgress satisfies the router FSM contract: text is routed to the
// engine while the conversation has an active stage.
func (a *Adapter) InProgress(conversationID int64) bool {
	return a.engine.InProgress(conversationID)
}

// ManagerHandler forwards a text update to the workflow engine.
func (a *Adapter) ManagerHandler(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return a.render(c, a.engine.Text(ctx, c.Chat().ID, c.Text()))
}

func (a *Adapter) onStart(c tele.Context) error {
	return a.render(c, a.engine.Start(c.Chat().ID))
}

func (a *Adapter) onButton(action workflow.Action) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		return a.render(c, a.engine.Button(ctx, c.Chat().ID, action))
	}
}

func (a *Adapter) onHealth(c tele.Context) error {
	ctx, cancel := context.WithTimeout(tghelpers.BuildContext(c), 5*time.Second)
	defer cancel()

	chainStatus := "ok"
	if err := a.gateway.Ping(ctx); err != nil {
		chainStatus = err.Error()
	}
	dbStatus := "ok"
	if err := a.db.PingContext(ctx); err != nil {
		dbStatus = err.Error()
	}
	return tghelpers.SendText(c, "chain: "+chainStatus+"\ndb: "+dbStatus)
}

func (a *Adapter) render(c tele.Context, msgs []workflow.Message) error {
	for _, m := range msgs {
		if err := tghelpers.SendText(c, m.Text, sendOptions(m)); err != nil {
			return err
		}
	}
	return nil
}

// MainMenu builds the inline keyboard with the three workflow entry points.
func MainMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "Create Name", Unique: string(workflow.ActionCreateName)},
		{Text: "Make Transfer", Unique: string(workflow.ActionMakeTransfer)},
		{Text: "Decrypt Name", Unique: string(workflow.ActionDecryptName)},
	})
}

func sendOptions(m workflow.Message) *tele.SendOptions {
	opts := &tele.SendOptions{}
	switch m.Mode {
	case workflow.ModeMarkdown:
		opts.ParseMode = tele.ModeMarkdown
	case workflow.ModeHTML:
		opts.ParseMode = tele.ModeHTML
	}
	if m.Menu {
		opts.ReplyMarkup = MainMenu()
	}
	return opts
}
