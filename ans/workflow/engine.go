// Package workflow drives per-conversation payment-confirmation sessions:
// it validates user input, waits for on-chain evidence of payment within a
// bounded window, and performs the resulting registry insert or fund
// forwarding exactly once.
package workflow

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ambns/ansbot/ans/chain"
	"github.com/ambns/ansbot/core/logger"
	"log/slog"
)

// Action identifies a menu button pressed by the user.
type Action string

const (
	// ActionCreateName starts the name registration path.
	ActionCreateName Action = "create_name"
	// ActionMakeTransfer starts the fund transfer path.
	ActionMakeTransfer Action = "make_transfer"
	// ActionDecryptName starts the name lookup path.
	ActionDecryptName Action = "decrypt_name"
)

// ParseMode hints how a message should be rendered by the front end.
type ParseMode string

const (
	// ModePlain renders without formatting.
	ModePlain ParseMode = ""
	// ModeMarkdown renders with Telegram Markdown.
	ModeMarkdown ParseMode = "Markdown"
	// ModeHTML renders with Telegram HTML.
	ModeHTML ParseMode = "HTML"
)

// Message is one outbound directive for the front-end adapter.
type Message struct {
	Text string
	Mode ParseMode
	// Menu asks the adapter to attach the main menu keyboard.
	Menu bool
}

// Registry is the durable name mapping consumed by the engine.
// Implementations return registry.ErrNameNotFound and registry.ErrNameTaken.
type Registry interface {
	Lookup(ctx context.Context, name string) (string, error)
	Insert(ctx context.Context, name, address string, requesterID int64) error
}

// Notifier delivers messages produced outside a request/response exchange,
// such as payment confirmations and timeouts.
type Notifier interface {
	Notify(ctx context.Context, conversationID int64, msgs []Message)
}

// Config bounds the polling sub-protocol and fixes the registration fee.
type Config struct {
	PollInterval       time.Duration
	PaymentTimeout     time.Duration
	RegistrationFeeWei *big.Int
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.PaymentTimeout <= 0 {
		c.PaymentTimeout = 300 * time.Second
	}
	if c.RegistrationFeeWei == nil || c.RegistrationFeeWei.Sign() <= 0 {
		c.RegistrationFeeWei = chain.AMBToWei(2)
	}
}

// Engine routes conversation events to the handler for the current stage
// and owns the per-session payment watchers.
type Engine struct {
	cfg      Config
	gateway  chain.Gateway
	registry Registry
	notifier Notifier
	sessions *sessionStore

	locks sync.Map // conversation id -> *sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an engine. Zero config fields fall back to 5s polling,
// a 300s payment window, and a 2 AMB registration fee.
func New(cfg Config, gw chain.Gateway, reg Registry, n Notifier) *Engine {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:      cfg,
		gateway:  gw,
		registry: reg,
		notifier: n,
		sessions: newSessionStore(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Close stops all pending watchers and waits for them to exit.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

// lockConv serializes handlers for a single conversation. Stage transitions
// within one conversation are strictly sequential; across conversations
// there is no ordering.
func (e *Engine) lockConv(conv int64) func() {
	v, _ := e.locks.LoadOrStore(conv, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// InProgress reports whether the conversation has an active non-idle session.
func (e *Engine) InProgress(conv int64) bool {
	return e.sessions.stage(conv) != StageIdle
}

// Stage exposes the current stage of a conversation.
func (e *Engine) Stage(conv int64) Stage {
	return e.sessions.stage(conv)
}

// Start produces the welcome message with the main menu. It leaves any
// active session untouched.
func (e *Engine) Start(conv int64) []Message {
	return []Message{msgWelcome()}
}

// Button handles a menu button press. A button always (re)initializes the
// session into the corresponding starting stage, discarding prior state.
func (e *Engine) Button(ctx context.Context, conv int64, action Action) []Message {
	unlock := e.lockConv(conv)
	defer unlock()

	switch action {
	case ActionCreateName:
		e.beginStage(ctx, conv, StageAwaitingName)
		return []Message{msgFeeNotice(), msgNamePrompt()}
	case ActionMakeTransfer:
		e.beginStage(ctx, conv, StageAwaitingRecipient)
		return []Message{msgRecipientPrompt()}
	case ActionDecryptName:
		e.beginStage(ctx, conv, StageAwaitingDecryptName)
		return []Message{msgDecryptPrompt()}
	default:
		return []Message{msgUnknownAction()}
	}
}

// Text dispatches a text input to the handler for the current stage. When no
// stage expects text the user gets a notice and no state changes.
func (e *Engine) Text(ctx context.Context, conv int64, text string) []Message {
	unlock := e.lockConv(conv)
	defer unlock()

	switch e.sessions.stage(conv) {
	case StageAwaitingName:
		return e.handleNameInput(ctx, conv, text)
	case StageAwaitingDecryptName:
		return e.handleDecryptInput(ctx, conv, text)
	case StageAwaitingRecipient:
		return e.handleRecipientInput(ctx, conv, text)
	case StageAwaitingAmount:
		return e.handleAmountInput(ctx, conv, text)
	default:
		return []Message{msgNotWaiting()}
	}
}

func (e *Engine) beginStage(ctx context.Context, conv int64, stage Stage) uint64 {
	gen := e.sessions.begin(conv, stage)
	logger.WF.LogAttrs(ctx, slog.LevelInfo, "stage.enter",
		slog.String("event", "stage.enter"),
		slog.Int64("chat_id", conv),
		slog.String("stage", string(stage)),
	)
	return gen
}

// ValidName reports whether s is a well-formed ANS name: it must end with
// ".amb" and the leading label must be non-empty.
func ValidName(s string) bool {
	if !strings.HasSuffix(s, ".amb") {
		return false
	}
	return strings.SplitN(s, ".", 2)[0] != ""
}

func normalizeInput(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
