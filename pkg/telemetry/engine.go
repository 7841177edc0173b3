package telemetry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/soundforge/pulse/pkg/observability"
)

// EngineOptions configures a telemetry engine
type EngineOptions struct {
	// WindowHorizon is the number of window samples retained
	WindowHorizon int
	// RollupInterval is the cadence for freezing window samples
	RollupInterval time.Duration
	// AlertInterval is the alert evaluation cadence
	AlertInterval time.Duration
	// SweepInterval is the retention sweep cadence
	SweepInterval time.Duration
	// TrendingWindow bounds trending eligibility by content age
	TrendingWindow time.Duration

	Thresholds Thresholds
	Recorder   RecorderOptions
	Sweeper    SweeperOptions
}

// DefaultEngineOptions returns the default cadences and policies
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		WindowHorizon:  DefaultWindowHorizon,
		RollupInterval: time.Hour,
		AlertInterval:  time.Minute,
		SweepInterval:  time.Hour,
		TrendingWindow: 24 * time.Hour,
		Thresholds:     DefaultThresholds(),
	}
}

// Engine owns the telemetry services and their background cadences.
// One engine is constructed at startup and handed to the route layer;
// there is no package-level shared state.
type Engine struct {
	opts      EngineOptions
	store     *CounterStore
	window    *WindowAggregator
	recorder  *EventRecorder
	evaluator *AlertEvaluator
	sweeper   *RetentionSweeper
	scheduler *cron.Cron
	metrics   *observability.Metrics
	log       *logrus.Logger
}

// NewEngine constructs an engine and its services. Background jobs do
// not run until Start.
func NewEngine(opts EngineOptions, log *logrus.Logger) (*Engine, error) {
	if log == nil {
		log = logrus.New()
	}
	if opts.RollupInterval <= 0 || opts.AlertInterval <= 0 || opts.SweepInterval <= 0 {
		return nil, fmt.Errorf("engine intervals must be positive")
	}

	store := NewCounterStore()
	window := NewWindowAggregator(opts.WindowHorizon)

	e := &Engine{
		opts:      opts,
		store:     store,
		window:    window,
		recorder:  NewEventRecorder(store, window, opts.Recorder, log),
		evaluator: NewAlertEvaluator(store, opts.Thresholds, log),
		sweeper:   NewRetentionSweeper(store, window, opts.Sweeper, log),
		// Recover keeps a panicking cycle from killing the scheduler;
		// the next tick proceeds.
		scheduler: cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log)))),
		log:       log,
	}
	return e, nil
}

// SetMetrics attaches process metrics updated by the background jobs.
// Call before Start; a nil receiver set leaves the jobs uninstrumented.
func (e *Engine) SetMetrics(m *observability.Metrics) { e.metrics = m }

// Store exposes the counter store for read-side services
func (e *Engine) Store() *CounterStore { return e.store }

// Window exposes the window aggregator
func (e *Engine) Window() *WindowAggregator { return e.window }

// Recorder exposes the ingestion write path
func (e *Engine) Recorder() *EventRecorder { return e.recorder }

// Evaluator exposes the alert evaluator
func (e *Engine) Evaluator() *AlertEvaluator { return e.evaluator }

// Sweeper exposes the retention sweeper
func (e *Engine) Sweeper() *RetentionSweeper { return e.sweeper }

// TrendingWindow returns the configured trending age bound
func (e *Engine) TrendingWindow() time.Duration { return e.opts.TrendingWindow }

// Start schedules the rollup, alert evaluation, and sweep cadences.
// Each runs on its own timer; a slow pass never stalls ingestion.
func (e *Engine) Start() error {
	jobs := []struct {
		name     string
		interval time.Duration
		run      func()
	}{
		{"rollup", e.opts.RollupInterval, e.Rollup},
		{"alert-evaluation", e.opts.AlertInterval, e.evaluateAlerts},
		{"retention-sweep", e.opts.SweepInterval, e.sweep},
	}
	for _, job := range jobs {
		spec := fmt.Sprintf("@every %s", job.interval)
		if _, err := e.scheduler.AddFunc(spec, job.run); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
		e.log.WithFields(logrus.Fields{"job": job.name, "interval": job.interval.String()}).
			Info("scheduled background job")
	}
	e.scheduler.Start()
	return nil
}

// Shutdown stops the scheduler and waits for in-flight jobs, bounded by
// ctx. No timer fires after Shutdown returns.
func (e *Engine) Shutdown(ctx context.Context) error {
	stopped := e.scheduler.Stop()
	select {
	case <-stopped.Done():
		e.log.Info("telemetry engine stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("engine shutdown interrupted: %w", ctx.Err())
	}
}

// Rollup freezes the current window bucket into a sample
func (e *Engine) Rollup() {
	now := time.Now()
	sample, ok := e.window.Snapshot(now, e.store.Totals())
	if !ok {
		if e.metrics != nil {
			e.metrics.SnapshotsSkipped.Inc()
		}
		e.log.Warn("skipped window snapshot that would not advance the sample history")
		return
	}
	if e.metrics != nil {
		e.metrics.SnapshotsTotal.Inc()
		e.metrics.WindowBucketSize.Set(float64(e.window.BucketSize()))
	}
	e.log.WithFields(logrus.Fields{
		"total":         sample.Total,
		"content_items": sample.ContentItems,
	}).Debug("window sample frozen")
}

// evaluateAlerts runs one alert cycle and mirrors the active set into
// the alert gauges
func (e *Engine) evaluateAlerts() {
	alerts := e.evaluator.Evaluate(time.Now())
	if e.metrics == nil {
		return
	}
	counts := map[AlertKind]int{AlertError: 0, AlertPerformance: 0, AlertResource: 0}
	for _, a := range alerts {
		counts[a.Kind]++
	}
	for kind, n := range counts {
		e.metrics.AlertsActive.WithLabelValues(string(kind)).Set(float64(n))
	}
}

// sweep runs one retention pass and records its cost
func (e *Engine) sweep() {
	start := time.Now()
	evicted := e.sweeper.Sweep(start)
	if e.metrics == nil {
		return
	}
	e.metrics.SweepDurationSeconds.Observe(time.Since(start).Seconds())
	e.metrics.ContentEvictedTotal.Add(float64(evicted))
	e.metrics.ContentItemsTotal.Set(float64(e.store.ContentCount()))
}

// CurrentMetrics is the point-in-time read model for the metrics API
type CurrentMetrics struct {
	Timestamp    time.Time     `json:"timestamp"`
	Tools        []UsageMetric `json:"tools"`
	APIs         []UsageMetric `json:"apis"`
	ContentItems int           `json:"content_items"`
	Interactions int64         `json:"interactions"`
	GrowthRate   float64       `json:"growth_rate"`
	ActiveAlerts []Alert       `json:"active_alerts"`
}

// Current returns the current counters, sorted by name for
// deterministic output
func (e *Engine) Current() CurrentMetrics {
	totals := e.store.Totals()
	tools := e.store.AllToolMetrics()
	apis := e.store.AllAPIMetrics()
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	sort.Slice(apis, func(i, j int) bool { return apis[i].Name < apis[j].Name })

	return CurrentMetrics{
		Timestamp:    time.Now(),
		Tools:        tools,
		APIs:         apis,
		ContentItems: totals.ContentItems,
		Interactions: totals.Interactions,
		GrowthRate:   e.window.GrowthRate(),
		ActiveAlerts: e.evaluator.ActiveAlerts(),
	}
}

// PeriodMetrics is the windowed read model for hour/day/week queries
type PeriodMetrics struct {
	Period       string         `json:"period"`
	Since        time.Time      `json:"since"`
	RecentEvents int            `json:"recent_events"`
	Samples      []WindowSample `json:"samples"`
	GrowthRate   float64        `json:"growth_rate"`
}

// MetricsForPeriod answers hour/day/week trend queries. The hour view
// includes raw events from the current bucket; day and week views are
// served from the frozen sample history.
func (e *Engine) MetricsForPeriod(period string) (PeriodMetrics, error) {
	var span time.Duration
	switch period {
	case "hour":
		span = time.Hour
	case "day":
		span = 24 * time.Hour
	case "week":
		span = 7 * 24 * time.Hour
	default:
		return PeriodMetrics{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}

	since := time.Now().Add(-span)
	pm := PeriodMetrics{
		Period:     period,
		Since:      since,
		Samples:    e.window.SamplesSince(since),
		GrowthRate: e.window.GrowthRate(),
	}
	if period == "hour" {
		pm.RecentEvents = len(e.window.RecentEvents(since))
	}
	return pm, nil
}
