package workflow

import (
	"context"
	"errors"
	"math/big"

	"github.com/ambns/ansbot/ans/chain"
	"github.com/ambns/ansbot/ans/registry"
	"github.com/ambns/ansbot/core/logger"
	"log/slog"
)

// handleRecipientInput resolves the transfer destination. Name inputs go
// through the registry; a missing name abandons the session (the user must
// restart). Raw addresses are accepted after syntax validation. Anything
// else re-prompts.
func (e *Engine) handleRecipientInput(ctx context.Context, conv int64, text string) []Message {
	input := normalizeInput(text)

	var recipient string
	switch {
	case ValidName(input):
		addr, err := e.registry.Lookup(ctx, input)
		if err != nil {
			if !errors.Is(err, registry.ErrNameNotFound) {
				logger.WF.LogAttrs(ctx, slog.LevelError, "recipient lookup failed",
					slog.String("event", "transfer.lookup"),
					slog.Int64("chat_id", conv),
					slog.String("name", input),
					slog.String("err", err.Error()),
				)
			}
			e.sessions.clear(conv)
			return []Message{msgRecipientMissing(input)}
		}
		recipient = addr
	case e.gateway.ValidAddress(input):
		recipient = input
	default:
		return []Message{msgRecipientInvalid()}
	}

	_, ok := e.sessions.mutate(conv, func(s *session) {
		s.stage = StageAwaitingAmount
		s.recipient = recipient
	})
	if !ok {
		return []Message{msgNotWaiting()}
	}
	logger.WF.LogAttrs(ctx, slog.LevelInfo, "stage.enter",
		slog.String("event", "stage.enter"),
		slog.Int64("chat_id", conv),
		slog.String("stage", string(StageAwaitingAmount)),
		slog.String("recipient", recipient),
	)
	return []Message{msgProcessingTo(input), msgAmountPrompt()}
}

// handleAmountInput parses the amount, snapshots the custodial balance, and
// starts the cumulative-balance watcher. Bad amounts re-prompt in place.
func (e *Engine) handleAmountInput(ctx context.Context, conv int64, text string) []Message {
	amountWei, err := chain.ToWei(text)
	if err != nil {
		return []Message{msgInvalidAmount()}
	}

	custodial := e.gateway.CustodialAddress()
	starting, err := e.gateway.Balance(ctx, custodial)
	if err != nil {
		logger.WF.LogAttrs(ctx, slog.LevelWarn, "balance snapshot failed",
			slog.String("event", "transfer.snapshot"),
			slog.Int64("chat_id", conv),
			slog.String("err", err.Error()),
		)
		return []Message{msgTransientError()}
	}

	var recipient string
	gen, ok := e.sessions.mutate(conv, func(s *session) {
		s.stage = StageAwaitingTransferPayment
		s.amountWei = amountWei
		s.startingBalance = starting
		recipient = s.recipient
	})
	if !ok {
		return []Message{msgNotWaiting()}
	}
	logger.WF.LogAttrs(ctx, slog.LevelInfo, "stage.enter",
		slog.String("event", "stage.enter"),
		slog.Int64("chat_id", conv),
		slog.String("stage", string(StageAwaitingTransferPayment)),
		slog.String("recipient", recipient),
		slog.String("amount_wei", amountWei.String()),
		slog.String("balance_wei", starting.String()),
	)

	// Transfers use a cumulative balance check rather than a block scan:
	// funds count as received once the custodial balance has risen by at
	// least the requested amount.
	expected := new(big.Int).Add(starting, amountWei)
	detect := func(ctx context.Context) (bool, error) {
		current, err := e.gateway.Balance(ctx, custodial)
		if err != nil {
			return false, err
		}
		return current.Cmp(expected) >= 0, nil
	}

	e.startWatch(conv, gen, detect,
		func(ctx context.Context) { e.forwardTransfer(ctx, conv, recipient, amountWei) },
		func(ctx context.Context) {
			e.notifier.Notify(ctx, conv, []Message{msgTransferTimeout(), msgWelcome()})
		},
	)

	return []Message{msgTransferInstructions(chain.FromWei(amountWei), custodial)}
}

// forwardTransfer submits the outbound transfer once funds have arrived.
// Submission failures are reported verbatim and the session is discarded;
// funds already received by the custodial wallet are not refunded or
// retried automatically.
func (e *Engine) forwardTransfer(ctx context.Context, conv int64, recipient string, amountWei *big.Int) {
	txHash, err := e.gateway.SubmitTransfer(ctx, recipient, amountWei)
	if err != nil {
		logger.WF.LogAttrs(ctx, slog.LevelError, "transfer submission failed",
			slog.String("event", "transfer.submit"),
			slog.Int64("chat_id", conv),
			slog.String("recipient", recipient),
			slog.String("amount_wei", amountWei.String()),
			slog.String("err", err.Error()),
		)
		e.notifier.Notify(ctx, conv, []Message{msgTransferFailed(err), msgWelcome()})
		return
	}
	logger.WF.LogAttrs(ctx, slog.LevelInfo, "transfer forwarded",
		slog.String("event", "transfer.forwarded"),
		slog.Int64("chat_id", conv),
		slog.String("recipient", recipient),
		slog.String("amount_wei", amountWei.String()),
		slog.String("tx_hash", txHash),
	)
	e.notifier.Notify(ctx, conv, []Message{
		msgTransferSuccess(chain.FromWei(amountWei), recipient, txHash),
		msgWelcome(),
	})
}
