package telemetry

import (
	"time"

	"github.com/sirupsen/logrus"
)

// RetentionSweeper is the periodic janitor. It evicts content items
// older than the retention horizon with fewer than the minimum play
// count, and trims window history past the horizon. Anything with
// meaningful engagement is never evicted, regardless of age.
type RetentionSweeper struct {
	store    *CounterStore
	window   *WindowAggregator
	maxAge   time.Duration
	minPlays int64
	log      *logrus.Logger
}

// SweeperOptions configures retention policy
type SweeperOptions struct {
	// MaxAge is the retention horizon; items older than this become
	// eviction candidates (default 30 days)
	MaxAge time.Duration
	// MinPlays exempts items at or above this play count (default 5)
	MinPlays int64
}

// NewRetentionSweeper creates a sweeper over the store and window
func NewRetentionSweeper(store *CounterStore, window *WindowAggregator, opts SweeperOptions, log *logrus.Logger) *RetentionSweeper {
	if log == nil {
		log = logrus.New()
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 30 * 24 * time.Hour
	}
	if opts.MinPlays <= 0 {
		opts.MinPlays = 5
	}
	return &RetentionSweeper{
		store:    store,
		window:   window,
		maxAge:   opts.MaxAge,
		minPlays: opts.MinPlays,
		log:      log,
	}
}

// Sweep runs one retention pass as of now and returns the number of
// content items evicted
func (s *RetentionSweeper) Sweep(now time.Time) int {
	cutoff := now.Add(-s.maxAge)
	evicted := s.store.SweepContent(cutoff, s.minPlays)
	s.window.EvictOlderThan(now, s.maxAge)

	if len(evicted) > 0 {
		s.log.WithFields(logrus.Fields{
			"evicted":   len(evicted),
			"cutoff":    cutoff.Format(time.RFC3339),
			"min_plays": s.minPlays,
		}).Info("retention sweep evicted stale content")
	}
	return len(evicted)
}
