package evaluation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
)

const (
	OperationSignals  = "signals"
	OperationBacktest = "backtest"

	cacheSignals   = "signals"
	cacheBacktests = "backtests"
	cacheHit       = "hit"
	cacheMiss      = "miss"

	resultOK = "OK"
)

// Metrics are the prometheus collectors of the evaluation service.
type Metrics struct {
	requests *prometheus.CounterVec
	cache    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "argo_eval_requests_total", Help: "Evaluation requests by operation and outcome code"},
			[]string{"operation", "code"},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "argo_eval_cache_total", Help: "Evaluation cache lookups by cache and result"},
			[]string{"cache", "result"},
		),
		duration: prometheus.NewHistogramVec(
			//nolint:exhaustruct // third-party struct with many optional fields
			prometheus.HistogramOpts{
				Name:    "argo_eval_duration_seconds",
				Help:    "Evaluation latency by operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(m.requests, m.cache, m.duration)

	return m
}

func (m *Metrics) observe(operation string, started time.Time, code errors.ResponseCode) {
	if m == nil {
		return
	}

	label := resultOK
	if code != "" {
		label = string(code)
	}

	m.requests.WithLabelValues(operation, label).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (m *Metrics) cacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}

	result := cacheMiss
	if hit {
		result = cacheHit
	}

	m.cache.WithLabelValues(cache, result).Inc()
}
