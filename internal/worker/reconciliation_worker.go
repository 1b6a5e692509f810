package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tradeyard/vendor-ledger/internal/observability"
	"github.com/tradeyard/vendor-ledger/internal/service"
)

// ReconciliationWorker sweeps every vendor ledger on a schedule, recomputing
// balances from the transaction log and flagging vendors whose available
// balance has gone negative. The first sweep runs at startup.
type ReconciliationWorker struct {
	*periodic
}

func NewReconciliationWorker(svc *service.ReconciliationService) *ReconciliationWorker {
	w := &ReconciliationWorker{}
	w.periodic = newPeriodic("reconciliation", 24*time.Hour, func(ctx context.Context) {
		if err := svc.Run(ctx); err != nil {
			observability.IncrementWorkerRun("reconciliation", "failed")
			zap.L().Error("reconciliation run failed", zap.Error(err))
			return
		}
		observability.IncrementWorkerRun("reconciliation", "success")
	})
	w.immediate = true
	return w
}

// WithInterval overrides the default daily schedule.
func (w *ReconciliationWorker) WithInterval(d time.Duration) *ReconciliationWorker {
	w.setInterval(d)
	return w
}
