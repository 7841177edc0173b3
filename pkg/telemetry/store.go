package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CounterStore owns the authoritative current-state counters, keyed by
// tool name, upstream API name, and content item id.
//
// Synchronization is two-level: a registry RWMutex guards the maps and
// is held only long enough to find or insert an entry, while each entry
// carries its own mutex for counter updates. Readers therefore see a
// consistent value per entity, never a half-updated one, and writers on
// distinct entities do not contend.
type CounterStore struct {
	mu      sync.RWMutex
	tools   map[string]*usageEntry
	apis    map[string]*usageEntry
	content map[string]*contentEntry
}

type usageEntry struct {
	mu     sync.Mutex
	metric UsageMetric
}

type contentEntry struct {
	mu   sync.Mutex
	item ContentItem
}

// NewCounterStore creates an empty counter store
func NewCounterStore() *CounterStore {
	return &CounterStore{
		tools:   make(map[string]*usageEntry),
		apis:    make(map[string]*usageEntry),
		content: make(map[string]*contentEntry),
	}
}

// getOrCreateUsage finds or lazily creates a usage entry. Unknown names
// are onboarded on first use; the store never rejects a previously
// unseen tool or API.
func (s *CounterStore) getOrCreateUsage(m map[string]*usageEntry, name string) *usageEntry {
	s.mu.RLock()
	e, ok := m[name]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = m[name]; ok {
		return e
	}
	e = &usageEntry{metric: UsageMetric{Name: name}}
	m[name] = e
	return e
}

func (e *usageEntry) record(succeeded bool, latencyMs float64, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := &e.metric
	m.Invocations++
	if succeeded {
		m.Successes++
	} else {
		m.Errors++
	}
	// Cumulative mean: avoids unbounded-sum overflow and weights all
	// samples equally regardless of arrival time.
	m.AvgLatencyMs += (latencyMs - m.AvgLatencyMs) / float64(m.Invocations)
	m.LastUpdated = now
}

// RecordToolSample updates the counters for one tool invocation
func (s *CounterStore) RecordToolSample(tool string, succeeded bool, latencyMs float64, now time.Time) {
	s.getOrCreateUsage(s.tools, tool).record(succeeded, latencyMs, now)
}

// RecordAPISample updates the counters for one upstream API invocation
func (s *CounterStore) RecordAPISample(api string, succeeded bool, latencyMs float64, now time.Time) {
	s.getOrCreateUsage(s.apis, api).record(succeeded, latencyMs, now)
}

// ToolMetric returns a copy of the metric for one tool
func (s *CounterStore) ToolMetric(tool string) (UsageMetric, bool) {
	return s.usageMetric(s.tools, tool)
}

// APIMetric returns a copy of the metric for one upstream API
func (s *CounterStore) APIMetric(api string) (UsageMetric, bool) {
	return s.usageMetric(s.apis, api)
}

func (s *CounterStore) usageMetric(m map[string]*usageEntry, name string) (UsageMetric, bool) {
	s.mu.RLock()
	e, ok := m[name]
	s.mu.RUnlock()
	if !ok {
		return UsageMetric{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metric, true
}

// AllToolMetrics returns copies of all tool metrics
func (s *CounterStore) AllToolMetrics() []UsageMetric {
	return s.allUsageMetrics(s.tools)
}

// AllAPIMetrics returns copies of all upstream API metrics
func (s *CounterStore) AllAPIMetrics() []UsageMetric {
	return s.allUsageMetrics(s.apis)
}

func (s *CounterStore) allUsageMetrics(m map[string]*usageEntry) []UsageMetric {
	s.mu.RLock()
	entries := make([]*usageEntry, 0, len(m))
	for _, e := range m {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]UsageMetric, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.metric)
		e.mu.Unlock()
	}
	return out
}

// RegisterContent creates a content item from a descriptor and returns
// it. When the descriptor carries no id one is generated. Registering an
// existing id returns the existing item unchanged; stats are never
// reset by re-registration.
func (s *CounterStore) RegisterContent(desc ContentDescriptor, now time.Time) ContentItem {
	id := desc.ID
	if id == "" {
		id = uuid.NewString()
		desc.ID = id
	}

	s.mu.Lock()
	e, ok := s.content[id]
	if !ok {
		e = &contentEntry{item: ContentItem{
			ID:         id,
			CreatedAt:  now,
			Descriptor: desc,
		}}
		s.content[id] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.item
}

// getOrCreateContent finds or creates a content entry with zeroed stats.
// Register-on-first-touch: the write path never rejects an unregistered
// id, it onboards it.
func (s *CounterStore) getOrCreateContent(id string, now time.Time) *contentEntry {
	s.mu.RLock()
	e, ok := s.content[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.content[id]; ok {
		return e
	}
	e = &contentEntry{item: ContentItem{
		ID:         id,
		CreatedAt:  now,
		Descriptor: ContentDescriptor{ID: id},
	}}
	s.content[id] = e
	return e
}

// ApplyInteraction bumps the stats block of a content item for one
// interaction. Unregistered ids are created with zeroed stats.
func (s *CounterStore) ApplyInteraction(contentID string, kind ActionKind, now time.Time) error {
	if !kind.Valid() {
		return ErrInvalidActionKind
	}

	e := s.getOrCreateContent(contentID, now)
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := &e.item.Stats
	switch kind {
	case ActionPlay:
		stats.Plays++
		stats.LastPlayedAt = now
	case ActionLike:
		stats.Likes++
		stats.LastLikedAt = now
	case ActionShare:
		stats.Shares++
		stats.LastSharedAt = now
	case ActionDownload:
		stats.Downloads++
	}
	return nil
}

// ContentItem returns a copy of one content item, or ErrContentNotFound.
// Read-side lookups do not auto-create.
func (s *CounterStore) ContentItem(id string) (ContentItem, error) {
	s.mu.RLock()
	e, ok := s.content[id]
	s.mu.RUnlock()
	if !ok {
		return ContentItem{}, ErrContentNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.item, nil
}

// AllContentItems returns copies of all content items
func (s *CounterStore) AllContentItems() []ContentItem {
	s.mu.RLock()
	entries := make([]*contentEntry, 0, len(s.content))
	for _, e := range s.content {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]ContentItem, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.item)
		e.mu.Unlock()
	}
	return out
}

// ContentCount returns the number of registered content items
func (s *CounterStore) ContentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.content)
}

// Totals returns the aggregate counters used for window snapshots
func (s *CounterStore) Totals() Totals {
	var t Totals
	for _, m := range s.AllToolMetrics() {
		t.ToolInvocations += m.Invocations
	}
	for _, m := range s.AllAPIMetrics() {
		t.APIInvocations += m.Invocations
	}
	for _, c := range s.AllContentItems() {
		t.Interactions += c.Stats.Plays + c.Stats.Likes + c.Stats.Shares + c.Stats.Downloads
	}
	t.ContentItems = s.ContentCount()
	return t
}

// SweepContent evicts content items created before cutoff whose play
// count is below minPlays. Returns the ids evicted. Retained items are
// untouched; eviction never decrements per-item stats.
func (s *CounterStore) SweepContent(cutoff time.Time, minPlays int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for id, e := range s.content {
		e.mu.Lock()
		stale := e.item.CreatedAt.Before(cutoff) && e.item.Stats.Plays < minPlays
		e.mu.Unlock()
		if stale {
			delete(s.content, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Reset clears all counters. Administrative operation; the only path
// besides sweeping that may shrink the store.
func (s *CounterStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = make(map[string]*usageEntry)
	s.apis = make(map[string]*usageEntry)
	s.content = make(map[string]*contentEntry)
}
