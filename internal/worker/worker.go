// Package worker hosts the background loops that run alongside the API:
// the ledger reconciliation sweep and the idempotency key janitor.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// periodic drives a named job on a fixed interval until its context is
// canceled or Stop is called.
type periodic struct {
	name      string
	interval  time.Duration
	immediate bool
	job       func(context.Context)
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func newPeriodic(name string, interval time.Duration, job func(context.Context)) *periodic {
	return &periodic{
		name:     name,
		interval: interval,
		job:      job,
		stopCh:   make(chan struct{}),
	}
}

func (p *periodic) setInterval(d time.Duration) {
	if d > 0 {
		p.interval = d
	}
}

// Start blocks until the context is canceled or Stop is called.
func (p *periodic) Start(ctx context.Context) {
	zap.L().Info("worker starting",
		zap.String("worker", p.name),
		zap.Duration("interval", p.interval),
	)
	if p.immediate {
		p.job(ctx)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("worker stopped", zap.String("worker", p.name))
			return
		case <-p.stopCh:
			zap.L().Info("worker stopped", zap.String("worker", p.name))
			return
		case <-ticker.C:
			p.job(ctx)
		}
	}
}

// Stop terminates the loop. Safe to call more than once.
func (p *periodic) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

// Run starts the loop in its own goroutine and returns the stop function.
func (p *periodic) Run(ctx context.Context) func() {
	go p.Start(ctx)
	return p.Stop
}
