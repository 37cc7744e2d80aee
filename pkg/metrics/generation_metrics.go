// Package metrics exposes Prometheus counters for the billed generation path.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes.
const (
	OutcomeSuccess             = "success"
	OutcomeAsyncAccepted       = "async_accepted"
	OutcomeInsufficientCredits = "insufficient_credits"
	OutcomeBillingError        = "billing_error"
	OutcomeBackendError        = "backend_error"
	OutcomeNetworkError        = "network_error"
	OutcomeInvalidRequest      = "invalid_request"
)

// Reconcile results.
const (
	ReconcileCreated   = "created"
	ReconcileDuplicate = "duplicate"
	ReconcileError     = "error"
)

type Config struct {
	ServiceName string
	Environment string
}

// GenerationMetrics is nil safe: every method on a nil receiver is a no-op.
type GenerationMetrics struct {
	requests        *prometheus.CounterVec
	creditsDebited  prometheus.Counter
	creditsRefunded *prometheus.CounterVec
	dispatchSeconds *prometheus.HistogramVec
	reconciles      *prometheus.CounterVec
	terminalTasks   *prometheus.CounterVec
}

var (
	generationMetricsOnce sync.Once
	generationMetrics     *GenerationMetrics
)

// Generation returns the process wide instance registered on the default registerer.
func Generation(cfg Config) *GenerationMetrics {
	generationMetricsOnce.Do(func() {
		generationMetrics = NewGenerationMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return generationMetrics
}

func NewGenerationMetrics(registerer prometheus.Registerer, cfg Config) *GenerationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "genstudio"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &GenerationMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "genstudio_generation_requests_total",
			Help:        "Generation proxy requests by billing mode and outcome.",
			ConstLabels: constLabels,
		}, []string{"billed", "outcome"}),
		creditsDebited: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "genstudio_credits_debited_total",
			Help:        "Credits debited by the billing gate.",
			ConstLabels: constLabels,
		}),
		creditsRefunded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "genstudio_credits_refunded_total",
			Help:        "Credits refunded after failed generations, by cause.",
			ConstLabels: constLabels,
		}, []string{"cause"}),
		dispatchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "genstudio_backend_dispatch_seconds",
			Help:        "Wall time of backend dispatch calls.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "genstudio_reconcile_total",
			Help:        "Auto-save reconciliations by mode and result.",
			ConstLabels: constLabels,
		}, []string{"mode", "result"}),
		terminalTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "genstudio_task_terminal_total",
			Help:        "Asynchronous tasks observed in a terminal status.",
			ConstLabels: constLabels,
		}, []string{"status"}),
	}

	registerer.MustRegister(
		m.requests,
		m.creditsDebited,
		m.creditsRefunded,
		m.dispatchSeconds,
		m.reconciles,
		m.terminalTasks,
	)
	return m
}

func (m *GenerationMetrics) IncRequest(billed bool, outcome string) {
	if m == nil {
		return
	}
	label := "false"
	if billed {
		label = "true"
	}
	m.requests.WithLabelValues(label, outcome).Inc()
}

func (m *GenerationMetrics) AddDebited(credits int) {
	if m == nil || credits <= 0 {
		return
	}
	m.creditsDebited.Add(float64(credits))
}

// AddRefunded labels by cause kind; the status code of a backend failure is dropped.
func (m *GenerationMetrics) AddRefunded(cause string, credits int) {
	if m == nil || credits <= 0 {
		return
	}
	m.creditsRefunded.WithLabelValues(CauseLabel(cause)).Add(float64(credits))
}

func (m *GenerationMetrics) ObserveDispatch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchSeconds.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *GenerationMetrics) IncReconcile(mode, result string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(mode, result).Inc()
}

func (m *GenerationMetrics) IncTerminalTask(status string) {
	if m == nil {
		return
	}
	m.terminalTasks.WithLabelValues(strings.ToUpper(status)).Inc()
}

// CauseLabel turns a ledger refund cause into a low cardinality label.
func CauseLabel(cause string) string {
	c := strings.ToLower(cause)
	switch {
	case strings.HasPrefix(c, "backend failure"):
		return "backend_failure"
	case c == "":
		return "unknown"
	default:
		return strings.ReplaceAll(c, " ", "_")
	}
}
