package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connect outcomes
const (
	OutcomeConnected     = "connected"
	OutcomeNonIntegrated = "non_integrated"
	OutcomeConfigError   = "config_error"
	OutcomeLaunchError   = "launch_error"
	OutcomeTimeout       = "timeout"
	OutcomeEmbedError    = "embed_error"
	OutcomeHookError     = "hook_error"
)

// Hook dispatch results
const (
	HookIgnoredChild   = "ignored_child"
	HookIgnoredType    = "ignored_type"
	HookUnknownHandle  = "unknown_handle"
	HookSuppressed     = "suppressed"
	HookResynchronized = "resynced"
)

// Resize origins
const (
	ResizeConnect = "connect"
	ResizeHost    = "host"
	ResizeHook    = "hook"
)

// Termination steps
const (
	StepGraceful = "graceful"
	StepKill     = "kill"
	StepRelease  = "release"
	StepFailed   = "failed"
)

// Metrics holds all Prometheus metrics of the embedding host.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ConnectsTotal   *prometheus.CounterVec
	InstancesActive prometheus.Gauge
	HookEvents      *prometheus.CounterVec
	Resizes         *prometheus.CounterVec
	Terminations    *prometheus.CounterVec
	AcquireDuration prometheus.Histogram
	Uptime          prometheus.GaugeFunc

	// Status API
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for status output.
type Snapshot struct {
	Connects        int64
	ConnectFailures int64
	ActiveInstances int64
	HookResyncs     int64
	HookSuppressed  int64
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{startTime: time.Now()}

	m.ConnectsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostembed_connects_total",
			Help: "Connect attempts by outcome",
		},
		[]string{"outcome"},
	)
	m.InstancesActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostembed_instances_active",
			Help: "Number of connected embedded instances",
		},
	)
	m.HookEvents = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostembed_hook_events_total",
			Help: "Move/resize-end notifications by dispatch result",
		},
		[]string{"result"},
	)
	m.Resizes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostembed_resizes_total",
			Help: "Geometry fix-ups issued by origin",
		},
		[]string{"origin"},
	)
	m.Terminations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostembed_terminations_total",
			Help: "Foreign process terminations by the step that ended them",
		},
		[]string{"step"},
	)
	m.AcquireDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hostembed_acquire_duration_seconds",
			Help:    "Time spent waiting for the foreign main window",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "hostembed_uptime_seconds",
			Help: "Host uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	m.HTTPRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostembed_http_requests_total",
			Help: "Status API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
	m.HTTPDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hostembed_http_request_duration_seconds",
			Help:    "Status API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	return m
}

// RecordConnect records the outcome of one Connect call
func (m *Metrics) RecordConnect(outcome string) {
	if m == nil {
		return
	}
	m.ConnectsTotal.WithLabelValues(outcome).Inc()

	m.mu.Lock()
	m.snapshot.Connects++
	if outcome != OutcomeConnected && outcome != OutcomeNonIntegrated {
		m.snapshot.ConnectFailures++
	}
	m.mu.Unlock()
}

// InstanceConnected increments the active instance gauge
func (m *Metrics) InstanceConnected() {
	if m == nil {
		return
	}
	m.InstancesActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveInstances++
	m.mu.Unlock()
}

// InstanceClosed decrements the active instance gauge
func (m *Metrics) InstanceClosed() {
	if m == nil {
		return
	}
	m.InstancesActive.Dec()
	m.mu.Lock()
	m.snapshot.ActiveInstances--
	m.mu.Unlock()
}

// RecordHookEvent records one dispatcher decision
func (m *Metrics) RecordHookEvent(result string) {
	if m == nil {
		return
	}
	m.HookEvents.WithLabelValues(result).Inc()

	switch result {
	case HookResynchronized:
		m.mu.Lock()
		m.snapshot.HookResyncs++
		m.mu.Unlock()
	case HookSuppressed:
		m.mu.Lock()
		m.snapshot.HookSuppressed++
		m.mu.Unlock()
	}
}

// RecordResize records one geometry fix-up
func (m *Metrics) RecordResize(origin string) {
	if m == nil {
		return
	}
	m.Resizes.WithLabelValues(origin).Inc()
}

// RecordTermination records how a foreign process was ended
func (m *Metrics) RecordTermination(step string) {
	if m == nil {
		return
	}
	m.Terminations.WithLabelValues(step).Inc()
}

// ObserveAcquire records how long window acquisition took
func (m *Metrics) ObserveAcquire(d time.Duration) {
	if m == nil {
		return
	}
	m.AcquireDuration.Observe(d.Seconds())
}

// RecordHTTPRequest records one status API request
func (m *Metrics) RecordHTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Snapshot returns a copy of the current counters
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
