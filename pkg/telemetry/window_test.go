package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowAggregator_SnapshotResetsBucket(t *testing.T) {
	w := NewWindowAggregator(4)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	w.Append(Event{Kind: EventTool, Name: "gen", OccurredAt: now})
	w.Append(Event{Kind: EventAPI, Name: "synth", OccurredAt: now})
	assert.Equal(t, 2, w.BucketSize())

	sample, ok := w.Snapshot(now, Totals{ToolInvocations: 1, APIInvocations: 1, Interactions: 3, ContentItems: 2})
	require.True(t, ok)
	assert.Equal(t, now, sample.TakenAt)
	assert.Equal(t, int64(5), sample.Total)
	assert.Equal(t, 2, sample.ContentItems)
	assert.Equal(t, 0, w.BucketSize(), "snapshot starts a fresh bucket")
	assert.Len(t, w.Samples(), 1)
}

func TestWindowAggregator_HorizonBound(t *testing.T) {
	const horizon = 5
	w := NewWindowAggregator(horizon)
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < horizon*3; i++ {
		_, ok := w.Snapshot(start.Add(time.Duration(i)*time.Hour), Totals{ToolInvocations: int64(i)})
		require.True(t, ok)
		assert.LessOrEqual(t, len(w.Samples()), horizon)
	}

	samples := w.Samples()
	require.Len(t, samples, horizon)
	// Oldest samples dropped first; the retained ones are the most recent.
	assert.Equal(t, start.Add(10*time.Hour), samples[0].TakenAt)
	assert.Equal(t, start.Add(14*time.Hour), samples[horizon-1].TakenAt)
	for i := 1; i < len(samples); i++ {
		assert.True(t, samples[i].TakenAt.After(samples[i-1].TakenAt))
	}
}

func TestWindowAggregator_SnapshotSkipsNonAdvancing(t *testing.T) {
	w := NewWindowAggregator(4)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	_, ok := w.Snapshot(now, Totals{ToolInvocations: 1})
	require.True(t, ok)

	// Same timestamp and an earlier one both refuse to append.
	_, ok = w.Snapshot(now, Totals{ToolInvocations: 2})
	assert.False(t, ok)
	_, ok = w.Snapshot(now.Add(-time.Minute), Totals{ToolInvocations: 2})
	assert.False(t, ok)
	assert.Len(t, w.Samples(), 1)

	_, ok = w.Snapshot(now.Add(time.Minute), Totals{ToolInvocations: 2})
	assert.True(t, ok)
	assert.Len(t, w.Samples(), 2)
}

func TestWindowAggregator_RecentEvents(t *testing.T) {
	w := NewWindowAggregator(4)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	w.Append(Event{Kind: EventTool, Name: "old", OccurredAt: now.Add(-2 * time.Hour)})
	w.Append(Event{Kind: EventTool, Name: "boundary", OccurredAt: now.Add(-time.Hour)})
	w.Append(Event{Kind: EventTool, Name: "new", OccurredAt: now})

	recent := w.RecentEvents(now.Add(-time.Hour))
	require.Len(t, recent, 2)
	assert.Equal(t, "boundary", recent[0].Name)
	assert.Equal(t, "new", recent[1].Name)
}

func TestWindowAggregator_GrowthRate(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		totals   []int64
		expected float64
	}{
		{
			name:     "no samples",
			totals:   nil,
			expected: 0,
		},
		{
			name:     "single sample",
			totals:   []int64{10},
			expected: 0,
		},
		{
			name:     "previous zero",
			totals:   []int64{0, 10},
			expected: 0,
		},
		{
			name:     "growth",
			totals:   []int64{100, 150},
			expected: 0.5,
		},
		{
			name:     "decline",
			totals:   []int64{100, 80},
			expected: -0.2,
		},
		{
			name:     "only last two count",
			totals:   []int64{5, 100, 110},
			expected: 0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindowAggregator(10)
			for i, total := range tt.totals {
				_, ok := w.Snapshot(start.Add(time.Duration(i)*time.Hour), Totals{ToolInvocations: total})
				require.True(t, ok)
			}
			assert.InDelta(t, tt.expected, w.GrowthRate(), 1e-9)
		})
	}
}

func TestWindowAggregator_EvictOlderThan(t *testing.T) {
	w := NewWindowAggregator(48)
	now := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 36; i++ {
		takenAt := now.Add(time.Duration(i-36) * time.Hour)
		_, ok := w.Snapshot(takenAt, Totals{ToolInvocations: int64(i)})
		require.True(t, ok)
	}
	w.Append(Event{Kind: EventTool, Name: "stale", OccurredAt: now.Add(-30 * time.Hour)})
	w.Append(Event{Kind: EventTool, Name: "live", OccurredAt: now.Add(-time.Hour)})

	w.EvictOlderThan(now, 24*time.Hour)

	for _, s := range w.Samples() {
		assert.False(t, s.TakenAt.Before(now.Add(-24*time.Hour)))
	}
	recent := w.RecentEvents(time.Time{})
	require.Len(t, recent, 1)
	assert.Equal(t, "live", recent[0].Name)
}

func TestWindowAggregator_SamplesSince(t *testing.T) {
	w := NewWindowAggregator(10)
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		_, ok := w.Snapshot(start.Add(time.Duration(i)*time.Hour), Totals{})
		require.True(t, ok)
	}

	since := start.Add(3 * time.Hour)
	got := w.SamplesSince(since)
	require.Len(t, got, 3)
	assert.Equal(t, since, got[0].TakenAt)
}
