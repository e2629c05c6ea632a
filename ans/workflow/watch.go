package workflow

import (
	"context"
	"time"

	"github.com/ambns/ansbot/core/logger"
	"log/slog"
)

// actionTimeout bounds the terminal action (registry insert or fund
// forwarding) once a watcher fires. Actions run on a fresh context so a
// detected payment completes even while the engine is shutting down.
const actionTimeout = 30 * time.Second

// startWatch runs the polling sub-protocol for one session: detect is
// invoked at the configured interval until it reports true or the payment
// window elapses. Exactly one of onDetected/onTimeout runs, and only while
// the session generation is still current; late ledger events are ignored.
// Errors from detect are transient gateway faults: they are swallowed and
// count toward elapsed time, not toward failure.
func (e *Engine) startWatch(conv int64, gen uint64, detect func(context.Context) (bool, error), onDetected, onTimeout func(context.Context)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		deadline := time.NewTimer(e.cfg.PaymentTimeout)
		defer deadline.Stop()
		ticker := time.NewTicker(e.cfg.PollInterval)
		defer ticker.Stop()

		start := time.Now()
		for {
			select {
			case <-e.ctx.Done():
				return
			case <-deadline.C:
				logger.WF.Info("payment window elapsed",
					slog.String("event", "watch.timeout"),
					slog.Int64("chat_id", conv),
					slog.Duration("duration", logger.RoundMS(time.Since(start))),
				)
				e.finish(conv, gen, onTimeout)
				return
			case <-ticker.C:
				attemptCtx, cancel := context.WithTimeout(e.ctx, e.cfg.PollInterval)
				ok, err := detect(attemptCtx)
				cancel()
				if err != nil {
					logger.WF.Debug("poll attempt failed",
						slog.String("event", "watch.poll"),
						slog.String("status", "retry"),
						slog.Int64("chat_id", conv),
						slog.String("err", err.Error()),
					)
					continue
				}
				if !ok {
					continue
				}
				logger.WF.Info("payment detected",
					slog.String("event", "watch.detected"),
					slog.Int64("chat_id", conv),
					slog.Duration("duration", logger.RoundMS(time.Since(start))),
				)
				e.finish(conv, gen, onDetected)
				return
			}
		}
	}()
}

// finish applies a terminal outcome under the conversation lock. The
// generation-guarded clear is the at-most-once gate: if the session was
// replaced or already completed, the outcome is dropped.
func (e *Engine) finish(conv int64, gen uint64, action func(context.Context)) {
	unlock := e.lockConv(conv)
	defer unlock()

	if !e.sessions.clearIf(conv, gen) {
		logger.WF.Debug("stale watch outcome dropped",
			slog.String("event", "watch.stale"),
			slog.Int64("chat_id", conv),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	action(ctx)
}
