package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpDurationHistogram   *prometheus.HistogramVec
	negativeBalanceCounter  *prometheus.CounterVec
	withdrawalStateCounter  *prometheus.CounterVec
	idempotencyCounter      *prometheus.CounterVec
	workerRunCounter        *prometheus.CounterVec
	pendingWithdrawalsGauge prometheus.Gauge
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		negativeBalanceCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendor_negative_balance_total",
			Help: "Number of times a vendor's available balance went below zero",
		}, []string{"vendor_id"})

		withdrawalStateCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "withdrawal_transitions_total",
			Help: "Withdrawal request workflow transitions",
		}, []string{"transition"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		pendingWithdrawalsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "withdrawal_pending_queue_size",
			Help: "Current number of withdrawal requests awaiting admin review",
		})

		prometheus.MustRegister(
			httpDurationHistogram,
			negativeBalanceCounter,
			withdrawalStateCounter,
			idempotencyCounter,
			workerRunCounter,
			pendingWithdrawalsGauge,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementNegativeBalance(vendorID string) {
	if negativeBalanceCounter == nil {
		return
	}
	negativeBalanceCounter.WithLabelValues(vendorID).Inc()
}

func IncrementWithdrawalTransition(transition string) {
	if withdrawalStateCounter == nil {
		return
	}
	withdrawalStateCounter.WithLabelValues(transition).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}

func SetPendingWithdrawalQueueSize(size int64) {
	if pendingWithdrawalsGauge == nil {
		return
	}
	pendingWithdrawalsGauge.Set(float64(size))
}
