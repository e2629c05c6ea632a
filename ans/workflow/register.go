package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/ambns/ansbot/ans/registry"
	"github.com/ambns/ansbot/core/logger"
	"log/slog"
)

// handleNameInput validates a requested name, checks availability, and on
// success moves the session to awaiting_payment and starts the fee watcher.
// Invalid or taken names re-prompt without consuming the session.
func (e *Engine) handleNameInput(ctx context.Context, conv int64, text string) []Message {
	name := normalizeInput(text)
	if !ValidName(name) {
		return []Message{msgInvalidName()}
	}

	_, err := e.registry.Lookup(ctx, name)
	switch {
	case err == nil:
		return []Message{msgNameTaken()}
	case errors.Is(err, registry.ErrNameNotFound):
		// available
	default:
		logger.WF.LogAttrs(ctx, slog.LevelError, "availability check failed",
			slog.String("event", "register.lookup"),
			slog.Int64("chat_id", conv),
			slog.String("name", name),
			slog.String("err", err.Error()),
		)
		return []Message{msgTransientError()}
	}

	fee := e.cfg.RegistrationFeeWei
	gen, ok := e.sessions.mutate(conv, func(s *session) {
		s.stage = StageAwaitingPayment
		s.name = name
		s.feeWei = fee
	})
	if !ok {
		return []Message{msgNotWaiting()}
	}
	logger.WF.LogAttrs(ctx, slog.LevelInfo, "stage.enter",
		slog.String("event", "stage.enter"),
		slog.Int64("chat_id", conv),
		slog.String("stage", string(StageAwaitingPayment)),
		slog.String("name", name),
		slog.String("fee_wei", fee.String()),
	)

	// The payer address is taken from the first qualifying transaction the
	// scan finds. Detection deliberately inspects only the latest block at
	// each poll tick, matching the service's documented behavior: a payment
	// mined into a block that is no longer the newest one at poll time can
	// be missed. Widening this to a range scan would change the observable
	// race behavior.
	var payer string
	custodial := e.gateway.CustodialAddress()
	detect := func(ctx context.Context) (bool, error) {
		txs, err := e.gateway.LatestBlockTransactions(ctx)
		if err != nil {
			return false, err
		}
		for _, tx := range txs {
			if strings.EqualFold(tx.To, custodial) && tx.Value != nil && tx.Value.Cmp(fee) >= 0 {
				payer = tx.From
				return true, nil
			}
		}
		return false, nil
	}

	e.startWatch(conv, gen, detect,
		func(ctx context.Context) { e.completeRegistration(ctx, conv, name, payer) },
		func(ctx context.Context) {
			e.notifier.Notify(ctx, conv, []Message{msgRegistrationTimeout(), msgWelcome()})
		},
	)

	return []Message{msgPaymentInstructions(name, custodial)}
}

// completeRegistration persists the name exactly once. The registry's
// uniqueness constraint is authoritative: a duplicate that slipped in while
// we were waiting for payment surfaces as a registration failure, not a
// crash.
func (e *Engine) completeRegistration(ctx context.Context, conv int64, name, payer string) {
	err := e.registry.Insert(ctx, name, payer, conv)
	switch {
	case err == nil:
		e.notifier.Notify(ctx, conv, []Message{msgRegistrationSuccess(name, payer), msgWelcome()})
	case errors.Is(err, registry.ErrNameTaken):
		e.notifier.Notify(ctx, conv, []Message{msgNameTaken(), msgWelcome()})
	default:
		logger.WF.LogAttrs(ctx, slog.LevelError, "registration failed",
			slog.String("event", "register.insert"),
			slog.Int64("chat_id", conv),
			slog.String("name", name),
			slog.String("err", err.Error()),
		)
		e.notifier.Notify(ctx, conv, []Message{msgRegistrationFailed(err), msgWelcome()})
	}
}
