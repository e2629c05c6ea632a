package bot

import (
	"context"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/ambns/ansbot/ans/workflow"
	"github.com/ambns/ansbot/core/logger"
	tgsender "github.com/ambns/ansbot/core/telegram/sender"
	"log/slog"
)

type notifierTarget struct {
	bot  *tele.Bot
	disp *tgsender.Dispatcher
}

// Notifier delivers workflow outcomes that happen outside a live update,
// such as payment confirmations and timeouts. It starts unbound and is
// attached to the running bot in the OnStart lifecycle hook.
type Notifier struct {
	target atomic.Pointer[notifierTarget]
}

var _ workflow.Notifier = (*Notifier)(nil)

// NewNotifier creates an unbound notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Bind attaches the bot and the outbound dispatcher.
func (n *Notifier) Bind(bot *tele.Bot, disp *tgsender.Dispatcher) {
	n.target.Store(&notifierTarget{bot: bot, disp: disp})
}

// Notify sends each message to the conversation through the asynchronous
// sender. Messages produced before the bot is bound are dropped with a log
// line; that only happens during startup.
func (n *Notifier) Notify(ctx context.Context, conversationID int64, msgs []workflow.Message) {
	t := n.target.Load()
	if t == nil || t.bot == nil {
		logger.TG.Warn("notify before bot bound",
			slog.String("event", "notify.drop"),
			slog.Int64("chat_id", conversationID),
			slog.Int("messages", len(msgs)),
		)
		return
	}
	for _, m := range msgs {
		msg := m
		run := func() error {
			_, err := t.bot.Send(tele.ChatID(conversationID), msg.Text, sendOptions(msg))
			return err
		}
		if t.disp != nil {
			if err := t.disp.Enqueue(ctx, "notify", "sendMessage", run); err == nil {
				continue
			}
		}
		if err := run(); err != nil {
			logger.TG.Error("notify failed",
				slog.String("event", "notify.fail"),
				slog.Int64("chat_id", conversationID),
				slog.String("err", err.Error()),
			)
		}
	}
}
