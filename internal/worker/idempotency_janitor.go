package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tradeyard/vendor-ledger/internal/idempotency"
	"github.com/tradeyard/vendor-ledger/internal/observability"
)

// IdempotencyJanitor purges finalized idempotency records past their TTL so
// the table does not grow without bound.
type IdempotencyJanitor struct {
	*periodic
}

func NewIdempotencyJanitor(store *idempotency.Store) *IdempotencyJanitor {
	j := &IdempotencyJanitor{}
	j.periodic = newPeriodic("idempotency_janitor", time.Hour, func(ctx context.Context) {
		purged, err := store.PurgeExpired(ctx)
		if err != nil {
			observability.IncrementWorkerRun("idempotency_janitor", "failed")
			zap.L().Error("idempotency purge failed", zap.Error(err))
			return
		}
		observability.IncrementWorkerRun("idempotency_janitor", "success")
		if purged > 0 {
			zap.L().Info("purged expired idempotency keys", zap.Int64("count", purged))
		}
	})
	return j
}

// WithInterval overrides the default hourly purge schedule.
func (j *IdempotencyJanitor) WithInterval(d time.Duration) *IdempotencyJanitor {
	j.setInterval(d)
	return j
}
