package workflow

import (
	"context"
	"errors"

	"github.com/ambns/ansbot/ans/registry"
	"github.com/ambns/ansbot/core/logger"
	"log/slog"
)

// handleDecryptInput is a read-through lookup: no polling, no side effects.
// A malformed name re-prompts; any lookup result ends the session.
func (e *Engine) handleDecryptInput(ctx context.Context, conv int64, text string) []Message {
	name := normalizeInput(text)
	if !ValidName(name) {
		return []Message{msgInvalidName()}
	}

	addr, err := e.registry.Lookup(ctx, name)
	e.sessions.clear(conv)

	switch {
	case err == nil:
		return []Message{msgDecryptFound(name, addr), msgWelcome()}
	case errors.Is(err, registry.ErrNameNotFound):
		return []Message{msgDecryptMissing(name)}
	default:
		logger.WF.LogAttrs(ctx, slog.LevelError, "decrypt lookup failed",
			slog.String("event", "decrypt.lookup"),
			slog.Int64("chat_id", conv),
			slog.String("name", name),
			slog.String("err", err.Error()),
		)
		return []Message{msgTransientError()}
	}
}
