package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionSweeper_Sweep(t *testing.T) {
	store := NewCounterStore()
	window := NewWindowAggregator(DefaultWindowHorizon)
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	store.RegisterContent(ContentDescriptor{ID: "stale"}, now.Add(-31*24*time.Hour))
	store.RegisterContent(ContentDescriptor{ID: "classic"}, now.Add(-60*24*time.Hour))
	for i := 0; i < 5; i++ {
		require.NoError(t, store.ApplyInteraction("classic", ActionPlay, now))
	}
	store.RegisterContent(ContentDescriptor{ID: "fresh"}, now.Add(-24*time.Hour))

	sweeper := NewRetentionSweeper(store, window, SweeperOptions{}, nil)
	evicted := sweeper.Sweep(now)

	assert.Equal(t, 1, evicted)
	_, err := store.ContentItem("stale")
	assert.ErrorIs(t, err, ErrContentNotFound)
	_, err = store.ContentItem("classic")
	assert.NoError(t, err)
	_, err = store.ContentItem("fresh")
	assert.NoError(t, err)
}

func TestRetentionSweeper_BoundaryPlays(t *testing.T) {
	store := NewCounterStore()
	window := NewWindowAggregator(DefaultWindowHorizon)
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-31 * 24 * time.Hour)

	store.RegisterContent(ContentDescriptor{ID: "four-plays"}, old)
	store.RegisterContent(ContentDescriptor{ID: "five-plays"}, old)
	for i := 0; i < 4; i++ {
		require.NoError(t, store.ApplyInteraction("four-plays", ActionPlay, now))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, store.ApplyInteraction("five-plays", ActionPlay, now))
	}

	sweeper := NewRetentionSweeper(store, window, SweeperOptions{}, nil)
	assert.Equal(t, 1, sweeper.Sweep(now))

	// Exactly the minimum play count is enough to survive.
	_, err := store.ContentItem("five-plays")
	assert.NoError(t, err)
	_, err = store.ContentItem("four-plays")
	assert.ErrorIs(t, err, ErrContentNotFound)
}

func TestRetentionSweeper_CustomPolicy(t *testing.T) {
	store := NewCounterStore()
	window := NewWindowAggregator(DefaultWindowHorizon)
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	store.RegisterContent(ContentDescriptor{ID: "t1"}, now.Add(-8*24*time.Hour))

	sweeper := NewRetentionSweeper(store, window, SweeperOptions{
		MaxAge:   7 * 24 * time.Hour,
		MinPlays: 1,
	}, nil)
	assert.Equal(t, 1, sweeper.Sweep(now))
	assert.Equal(t, 0, store.ContentCount())
}

func TestRetentionSweeper_TrimsWindowHistory(t *testing.T) {
	store := NewCounterStore()
	window := NewWindowAggregator(100)
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		takenAt := now.Add(time.Duration(i-10) * 7 * 24 * time.Hour)
		_, ok := window.Snapshot(takenAt, Totals{})
		require.True(t, ok)
	}

	sweeper := NewRetentionSweeper(store, window, SweeperOptions{}, nil)
	sweeper.Sweep(now)

	cutoff := now.Add(-30 * 24 * time.Hour)
	for _, s := range window.Samples() {
		assert.False(t, s.TakenAt.Before(cutoff))
	}
}
