package ranking

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/soundforge/pulse/pkg/telemetry"
)

// Category selects the ordering of a top-N query
type Category string

const (
	CategoryPopularity Category = "popularity"
	CategoryPlays      Category = "plays"
	CategoryLikes      Category = "likes"
	CategoryShares     Category = "shares"
	CategoryDownloads  Category = "downloads"
	CategoryRecent     Category = "recent"
)

// ErrUnknownCategory is returned for categories outside the known set
var ErrUnknownCategory = fmt.Errorf("unknown ranking category")

// RankedItem is one content item with its computed popularity score
type RankedItem struct {
	telemetry.ContentItem
	Score float64 `json:"score"`
}

// Query answers ranking and search reads over the counter store. All
// operations observe a consistent value per item (the store copies each
// entry under its lock) and never mutate.
type Query struct {
	store          *telemetry.CounterStore
	weights        Weights
	trendingWindow time.Duration
	now            func() time.Time
}

// NewQuery creates a ranking query service
func NewQuery(store *telemetry.CounterStore, weights Weights, trendingWindow time.Duration) *Query {
	if trendingWindow <= 0 {
		trendingWindow = 24 * time.Hour
	}
	return &Query{
		store:          store,
		weights:        weights,
		trendingWindow: trendingWindow,
		now:            time.Now,
	}
}

// ranked scores every item and sorts by the supplied key descending,
// breaking ties by earlier creation time, then by id. The extra id key
// makes equal-score equal-timestamp orderings deterministic instead of
// map-iteration-order outcomes.
func (q *Query) ranked(items []telemetry.ContentItem, key func(RankedItem) float64) []RankedItem {
	now := q.now()
	out := make([]RankedItem, 0, len(items))
	for _, item := range items {
		out = append(out, RankedItem{
			ContentItem: item,
			Score:       PopularityScore(item.Stats, item.CreatedAt, now, q.weights),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := key(out[i]), key(out[j])
		if ki != kj {
			return ki > kj
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func limit(items []RankedItem, n int) []RankedItem {
	if n < 0 {
		n = 0
	}
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}

func categoryKey(category Category) (func(RankedItem) float64, error) {
	switch category {
	case CategoryPopularity:
		return func(r RankedItem) float64 { return r.Score }, nil
	case CategoryPlays:
		return func(r RankedItem) float64 { return float64(r.Stats.Plays) }, nil
	case CategoryLikes:
		return func(r RankedItem) float64 { return float64(r.Stats.Likes) }, nil
	case CategoryShares:
		return func(r RankedItem) float64 { return float64(r.Stats.Shares) }, nil
	case CategoryDownloads:
		return func(r RankedItem) float64 { return float64(r.Stats.Downloads) }, nil
	case CategoryRecent:
		return func(r RankedItem) float64 { return float64(r.CreatedAt.UnixNano()) }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
}

// TopN returns the top n items in a category. When n exceeds the number
// of available items, all items are returned.
func (q *Query) TopN(category Category, n int) ([]RankedItem, error) {
	key, err := categoryKey(category)
	if err != nil {
		return nil, err
	}
	return limit(q.ranked(q.store.AllContentItems(), key), n), nil
}

// Trending returns the top n trending-eligible items ranked by
// popularity score. Eligibility is bounded by content age, so the
// trending set is distinct from the all-time ranking.
func (q *Query) Trending(n int) []RankedItem {
	now := q.now()
	eligible := make([]telemetry.ContentItem, 0)
	for _, item := range q.store.AllContentItems() {
		if IsTrending(item.CreatedAt, now, q.trendingWindow) {
			eligible = append(eligible, item)
		}
	}
	ranked := q.ranked(eligible, func(r RankedItem) float64 { return r.Score })
	return limit(ranked, n)
}

// ByGenre returns the top n items of one genre by popularity score
func (q *Query) ByGenre(genre string, n int) []RankedItem {
	return q.topFiltered(n, func(item telemetry.ContentItem) bool {
		return strings.EqualFold(item.Descriptor.Genre, genre)
	})
}

// ByTool returns the top n items produced by one source tool
func (q *Query) ByTool(tool string, n int) []RankedItem {
	return q.topFiltered(n, func(item telemetry.ContentItem) bool {
		return strings.EqualFold(item.Descriptor.SourceTool, tool)
	})
}

func (q *Query) topFiltered(n int, keep func(telemetry.ContentItem) bool) []RankedItem {
	matched := make([]telemetry.ContentItem, 0)
	for _, item := range q.store.AllContentItems() {
		if keep(item) {
			matched = append(matched, item)
		}
	}
	ranked := q.ranked(matched, func(r RankedItem) float64 { return r.Score })
	return limit(ranked, n)
}

// Search matches a case-insensitive substring against title, artist,
// genre, and tags, ranking matches by popularity score
func (q *Query) Search(query string, n int) []RankedItem {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return []RankedItem{}
	}
	return q.topFiltered(n, func(item telemetry.ContentItem) bool {
		d := item.Descriptor
		if strings.Contains(strings.ToLower(d.Title), needle) ||
			strings.Contains(strings.ToLower(d.Artist), needle) ||
			strings.Contains(strings.ToLower(d.Genre), needle) {
			return true
		}
		for _, tag := range d.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
		return false
	})
}
