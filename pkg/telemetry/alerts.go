package telemetry

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Thresholds configures the alert conditions. Zero values disable the
// corresponding check.
type Thresholds struct {
	// ErrorRate triggers a high-severity error alert when a tool or
	// API exceeds it (fraction, e.g. 0.10)
	ErrorRate float64 `yaml:"error_rate"`
	// AvgLatencyMs triggers a high-severity performance alert
	AvgLatencyMs float64 `yaml:"avg_latency_ms"`
	// HeapBytes triggers a medium-severity resource alert when heap
	// usage exceeds it
	HeapBytes uint64 `yaml:"heap_bytes"`
}

// DefaultThresholds returns the product-chosen default thresholds.
// The constants have no documented derivation; they are defaults, not
// invariants, and are overridable via configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ErrorRate:    0.10,
		AvgLatencyMs: 2000,
		HeapBytes:    500 * 1024 * 1024,
	}
}

// AlertEvaluator recomputes the full active alert set from current
// counters on a fixed cadence. Alerts are level-triggered: a condition
// that resolves simply stops appearing on the next cycle, and
// re-evaluating with unchanged counters yields the same set.
type AlertEvaluator struct {
	store *CounterStore
	log   *logrus.Logger

	mu         sync.RWMutex
	thresholds Thresholds
	active     []Alert

	// heapUsage is injectable for tests; defaults to MemStats.HeapAlloc
	heapUsage func() uint64
}

// NewAlertEvaluator creates an evaluator over the store
func NewAlertEvaluator(store *CounterStore, thresholds Thresholds, log *logrus.Logger) *AlertEvaluator {
	if log == nil {
		log = logrus.New()
	}
	return &AlertEvaluator{
		store:      store,
		thresholds: thresholds,
		log:        log,
		heapUsage: func() uint64 {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			return ms.HeapAlloc
		},
	}
}

// SetThresholds replaces the thresholds atomically; the next cycle uses
// the new values. Used by configuration hot-reload.
func (a *AlertEvaluator) SetThresholds(t Thresholds) {
	a.mu.Lock()
	a.thresholds = t
	a.mu.Unlock()
	a.log.WithFields(logrus.Fields{
		"error_rate":     t.ErrorRate,
		"avg_latency_ms": t.AvgLatencyMs,
		"heap_bytes":     t.HeapBytes,
	}).Info("alert thresholds updated")
}

// Thresholds returns the current thresholds
func (a *AlertEvaluator) Thresholds() Thresholds {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.thresholds
}

// Evaluate recomputes and stores the active alert set as of now
func (a *AlertEvaluator) Evaluate(now time.Time) []Alert {
	t := a.Thresholds()
	var alerts []Alert

	check := func(kind string, metrics []UsageMetric) {
		// Map iteration order is random; sort for a deterministic set.
		sort.Slice(metrics, func(i, j int) bool { return metrics[i].Name < metrics[j].Name })
		for _, m := range metrics {
			if t.ErrorRate > 0 && m.ErrorRate() > t.ErrorRate {
				alerts = append(alerts, Alert{
					Kind:     AlertError,
					Severity: SeverityHigh,
					Message: fmt.Sprintf("%s %q error rate %.1f%% exceeds %.1f%%",
						kind, m.Name, m.ErrorRate()*100, t.ErrorRate*100),
					TriggeredAt: now,
				})
			}
			if t.AvgLatencyMs > 0 && m.Invocations > 0 && m.AvgLatencyMs > t.AvgLatencyMs {
				alerts = append(alerts, Alert{
					Kind:     AlertPerformance,
					Severity: SeverityHigh,
					Message: fmt.Sprintf("%s %q average latency %.0fms exceeds %.0fms",
						kind, m.Name, m.AvgLatencyMs, t.AvgLatencyMs),
					TriggeredAt: now,
				})
			}
		}
	}
	check("tool", a.store.AllToolMetrics())
	check("api", a.store.AllAPIMetrics())

	if t.HeapBytes > 0 {
		if heap := a.heapUsage(); heap > t.HeapBytes {
			alerts = append(alerts, Alert{
				Kind:     AlertResource,
				Severity: SeverityMedium,
				Message: fmt.Sprintf("heap usage %dMB exceeds %dMB ceiling",
					heap/(1024*1024), t.HeapBytes/(1024*1024)),
				TriggeredAt: now,
			})
		}
	}

	a.mu.Lock()
	a.active = alerts
	a.mu.Unlock()

	if len(alerts) > 0 {
		for _, al := range alerts {
			a.log.WithFields(logrus.Fields{
				"kind":     string(al.Kind),
				"severity": string(al.Severity),
			}).Warn(al.Message)
		}
	}
	return alerts
}

// ActiveAlerts returns the alert set from the most recent cycle
func (a *AlertEvaluator) ActiveAlerts() []Alert {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Alert, len(a.active))
	copy(out, a.active)
	return out
}
