package telemetry

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

// DefaultActorHistoryLimit caps the interaction records retained per actor
const DefaultActorHistoryLimit = 100

// DefaultActorCacheSize bounds the number of actors with live histories
const DefaultActorCacheSize = 10000

// EventRecorder is the append-only ingestion point. Writes update the
// counter store, the current window bucket, and the actor's bounded
// history; each is an O(1) amortized in-memory update, so ingestion
// never becomes the bottleneck for request handlers.
type EventRecorder struct {
	store        *CounterStore
	window       *WindowAggregator
	histories    *lru.LRU[string, *actorHistory]
	histMu       sync.Mutex
	historyLimit int
	log          *logrus.Logger
	now          func() time.Time
}

// actorHistory is a FIFO-capped record list for one actor. Oldest
// records are silently dropped once the cap is reached.
type actorHistory struct {
	mu      sync.Mutex
	records []InteractionRecord
}

func (h *actorHistory) append(rec InteractionRecord, limit int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	if len(h.records) > limit {
		h.records = h.records[len(h.records)-limit:]
	}
}

func (h *actorHistory) snapshot() []InteractionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]InteractionRecord, len(h.records))
	copy(out, h.records)
	return out
}

// RecorderOptions configures an EventRecorder
type RecorderOptions struct {
	// ActorHistoryLimit caps records per actor (FIFO)
	ActorHistoryLimit int
	// ActorCacheSize bounds the number of tracked actors; least
	// recently active actors are evicted first
	ActorCacheSize int
	// ActorCacheTTL expires idle actor histories
	ActorCacheTTL time.Duration
}

// NewEventRecorder creates a recorder writing into store and window
func NewEventRecorder(store *CounterStore, window *WindowAggregator, opts RecorderOptions, log *logrus.Logger) *EventRecorder {
	if log == nil {
		log = logrus.New()
	}
	if opts.ActorHistoryLimit <= 0 {
		opts.ActorHistoryLimit = DefaultActorHistoryLimit
	}
	if opts.ActorCacheSize <= 0 {
		opts.ActorCacheSize = DefaultActorCacheSize
	}
	if opts.ActorCacheTTL <= 0 {
		opts.ActorCacheTTL = 24 * time.Hour
	}

	return &EventRecorder{
		store:        store,
		window:       window,
		histories:    lru.NewLRU[string, *actorHistory](opts.ActorCacheSize, nil, opts.ActorCacheTTL),
		historyLimit: opts.ActorHistoryLimit,
		log:          log,
		now:          time.Now,
	}
}

// normalizeName maps empty identifiers to the unknown sentinel. Lost
// telemetry is worse than slightly malformed telemetry, so the write
// path normalizes instead of rejecting.
func normalizeName(name string) string {
	if name == "" {
		return UnknownName
	}
	return name
}

// clampLatency floors negative latencies at zero. Callers measure
// wall-clock; clock skew and rounding can produce small negatives.
func clampLatency(latencyMs float64) float64 {
	if latencyMs < 0 {
		return 0
	}
	return latencyMs
}

// RecordToolInvocation records one tool usage event
func (r *EventRecorder) RecordToolInvocation(tool string, succeeded bool, latencyMs float64) {
	tool = normalizeName(tool)
	now := r.now()
	r.store.RecordToolSample(tool, succeeded, clampLatency(latencyMs), now)
	r.window.Append(Event{Kind: EventTool, Name: tool, OccurredAt: now})
}

// RecordAPIInvocation records one upstream API usage event
func (r *EventRecorder) RecordAPIInvocation(api string, succeeded bool, latencyMs float64) {
	api = normalizeName(api)
	now := r.now()
	r.store.RecordAPISample(api, succeeded, clampLatency(latencyMs), now)
	r.window.Append(Event{Kind: EventAPI, Name: api, OccurredAt: now})
}

// RecordInteraction records one content interaction attributed to an
// actor. Unknown action kinds are rejected with ErrInvalidActionKind
// and leave all state unchanged. Callers without an identity are
// recorded under the anonymous sentinel.
func (r *EventRecorder) RecordInteraction(contentID, actorID string, kind ActionKind, metadata map[string]string) error {
	if !kind.Valid() {
		r.log.WithFields(logrus.Fields{
			"content_id": contentID,
			"kind":       string(kind),
		}).Warn("rejected interaction with unknown action kind")
		return ErrInvalidActionKind
	}
	if actorID == "" {
		actorID = AnonymousActor
	}

	now := r.now()
	if err := r.store.ApplyInteraction(contentID, kind, now); err != nil {
		return err
	}
	r.window.Append(Event{Kind: EventInteraction, Name: contentID, OccurredAt: now})

	rec := InteractionRecord{
		ActorID:    actorID,
		ContentID:  contentID,
		Kind:       kind,
		Metadata:   metadata,
		OccurredAt: now,
	}
	r.historyFor(actorID).append(rec, r.historyLimit)
	return nil
}

// historyFor finds or creates the actor's history. The miss path takes
// a small mutex so concurrent first interactions from one actor share a
// single history.
func (r *EventRecorder) historyFor(actorID string) *actorHistory {
	if h, ok := r.histories.Get(actorID); ok {
		return h
	}
	r.histMu.Lock()
	defer r.histMu.Unlock()
	if h, ok := r.histories.Get(actorID); ok {
		return h
	}
	h := &actorHistory{}
	r.histories.Add(actorID, h)
	return h
}

// ActorHistory returns the retained interaction records for one actor,
// oldest first. Unknown actors have an empty history.
func (r *EventRecorder) ActorHistory(actorID string) []InteractionRecord {
	if actorID == "" {
		actorID = AnonymousActor
	}
	h, ok := r.histories.Get(actorID)
	if !ok {
		return nil
	}
	return h.snapshot()
}
