package telemetry

import (
	"sync"
	"time"
)

// DefaultWindowHorizon is the number of samples retained when no horizon
// is configured (24 hourly samples, one day of trend history).
const DefaultWindowHorizon = 24

// WindowAggregator maintains a tumbling window over raw events: the
// current bucket accumulates per-event records, and on rollup it is
// frozen into an immutable WindowSample and a new bucket starts.
//
// Queries need both fine-grained recent history (the bucket) and coarse
// long-range trend (the samples) without storing every event forever;
// the sample history is FIFO-bounded by the horizon so memory is
// deterministic regardless of traffic volume.
type WindowAggregator struct {
	mu          sync.Mutex
	bucket      []Event
	bucketStart time.Time
	samples     []WindowSample
	horizon     int
}

// NewWindowAggregator creates an aggregator retaining at most horizon
// samples. Non-positive horizons fall back to the default.
func NewWindowAggregator(horizon int) *WindowAggregator {
	if horizon <= 0 {
		horizon = DefaultWindowHorizon
	}
	return &WindowAggregator{
		horizon:     horizon,
		bucketStart: time.Now(),
	}
}

// Append adds a raw event to the current bucket
func (w *WindowAggregator) Append(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bucket = append(w.bucket, ev)
}

// RecentEvents returns the bucket events at or after since
func (w *WindowAggregator) RecentEvents(since time.Time) []Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Event, 0)
	for _, ev := range w.bucket {
		if !ev.OccurredAt.Before(since) {
			out = append(out, ev)
		}
	}
	return out
}

// BucketSize returns the number of events in the current bucket
func (w *WindowAggregator) BucketSize() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.bucket)
}

// Snapshot freezes the current bucket into a WindowSample built from the
// supplied counter totals and starts a new bucket. A snapshot whose
// timestamp would not advance past the previous sample is skipped, which
// keeps the history strictly time-ordered with no duplicates.
func (w *WindowAggregator) Snapshot(now time.Time, totals Totals) (WindowSample, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if n := len(w.samples); n > 0 && !now.After(w.samples[n-1].TakenAt) {
		return WindowSample{}, false
	}

	sample := WindowSample{
		TakenAt:         now,
		ToolInvocations: totals.ToolInvocations,
		APIInvocations:  totals.APIInvocations,
		Interactions:    totals.Interactions,
		ContentItems:    totals.ContentItems,
		Total:           totals.ToolInvocations + totals.APIInvocations + totals.Interactions,
	}

	w.samples = append(w.samples, sample)
	if len(w.samples) > w.horizon {
		w.samples = w.samples[len(w.samples)-w.horizon:]
	}
	w.bucket = nil
	w.bucketStart = now
	return sample, true
}

// Samples returns a copy of the retained sample history, oldest first
func (w *WindowAggregator) Samples() []WindowSample {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]WindowSample, len(w.samples))
	copy(out, w.samples)
	return out
}

// SamplesSince returns the retained samples taken at or after since
func (w *WindowAggregator) SamplesSince(since time.Time) []WindowSample {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]WindowSample, 0)
	for _, s := range w.samples {
		if !s.TakenAt.Before(since) {
			out = append(out, s)
		}
	}
	return out
}

// GrowthRate compares the two most recent samples:
// (current.Total - previous.Total) / previous.Total. Reported as 0 when
// fewer than two samples exist or the previous total is zero.
func (w *WindowAggregator) GrowthRate() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(w.samples)
	if n < 2 {
		return 0
	}
	prev := w.samples[n-2].Total
	if prev == 0 {
		return 0
	}
	return float64(w.samples[n-1].Total-prev) / float64(prev)
}

// EvictOlderThan drops bucket events and samples older than the horizon
// duration before now
func (w *WindowAggregator) EvictOlderThan(now time.Time, horizon time.Duration) {
	cutoff := now.Add(-horizon)

	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.bucket[:0]
	for _, ev := range w.bucket {
		if !ev.OccurredAt.Before(cutoff) {
			kept = append(kept, ev)
		}
	}
	w.bucket = kept

	firstKept := len(w.samples)
	for i, s := range w.samples {
		if !s.TakenAt.Before(cutoff) {
			firstKept = i
			break
		}
	}
	w.samples = w.samples[firstKept:]
}
