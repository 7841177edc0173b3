package telemetry

import (
	"time"
)

// ActionKind identifies a content interaction type
type ActionKind string

const (
	ActionPlay     ActionKind = "play"
	ActionLike     ActionKind = "like"
	ActionShare    ActionKind = "share"
	ActionDownload ActionKind = "download"
)

// Valid reports whether the action kind is one of the known kinds
func (k ActionKind) Valid() bool {
	switch k {
	case ActionPlay, ActionLike, ActionShare, ActionDownload:
		return true
	}
	return false
}

// AnonymousActor is the sentinel identity recorded for callers without one
const AnonymousActor = "anonymous"

// UnknownName is the sentinel recorded when a caller supplies an empty
// tool or API name
const UnknownName = "unknown"

// UsageMetric holds the rolling operational counters for one tool or one
// upstream API. Tools and APIs are tracked independently because "tool
// degraded" and "API degraded" have different remediation paths.
type UsageMetric struct {
	Name         string    `json:"name"`
	Invocations  int64     `json:"invocations"`
	Successes    int64     `json:"successes"`
	Errors       int64     `json:"errors"`
	AvgLatencyMs float64   `json:"avg_latency_ms"`
	LastUpdated  time.Time `json:"last_updated"`
}

// ErrorRate returns errors/(errors+successes), or 0 before any events
func (m UsageMetric) ErrorRate() float64 {
	total := m.Errors + m.Successes
	if total == 0 {
		return 0
	}
	return float64(m.Errors) / float64(total)
}

// StatsBlock holds the interaction counters for one content item
type StatsBlock struct {
	Plays        int64     `json:"plays"`
	Likes        int64     `json:"likes"`
	Shares       int64     `json:"shares"`
	Downloads    int64     `json:"downloads"`
	LastPlayedAt time.Time `json:"last_played_at,omitzero"`
	LastLikedAt  time.Time `json:"last_liked_at,omitzero"`
	LastSharedAt time.Time `json:"last_shared_at,omitzero"`
}

// ContentDescriptor carries the caller-supplied descriptive fields of a
// content item. The engine treats them as opaque except for search and
// category ranking.
type ContentDescriptor struct {
	ID         string   `json:"id,omitempty"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist,omitempty"`
	Genre      string   `json:"genre,omitempty"`
	SourceTool string   `json:"source_tool,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// ContentItem is one registered piece of content plus its stats
type ContentItem struct {
	ID         string            `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	Descriptor ContentDescriptor `json:"descriptor"`
	Stats      StatsBlock        `json:"stats"`
}

// InteractionRecord is one attributed interaction, retained per actor in
// a bounded FIFO history
type InteractionRecord struct {
	ActorID    string            `json:"actor_id"`
	ContentID  string            `json:"content_id"`
	Kind       ActionKind        `json:"kind"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// EventKind identifies a raw event in the current window bucket
type EventKind string

const (
	EventTool        EventKind = "tool"
	EventAPI         EventKind = "api"
	EventInteraction EventKind = "interaction"
)

// Event is one raw ingested event, kept only within the current window
// bucket for fine-grained recent queries
type Event struct {
	Kind       EventKind `json:"kind"`
	Name       string    `json:"name"` // tool/API name or content id
	OccurredAt time.Time `json:"occurred_at"`
}

// WindowSample is an immutable snapshot of the aggregate counters at a
// point in time. Samples are strictly time-ordered and the retained
// history never exceeds the configured horizon.
type WindowSample struct {
	TakenAt         time.Time `json:"taken_at"`
	ToolInvocations int64     `json:"tool_invocations"`
	APIInvocations  int64     `json:"api_invocations"`
	Interactions    int64     `json:"interactions"`
	ContentItems    int       `json:"content_items"`
	Total           int64     `json:"total"`
}

// AlertKind identifies the condition class an alert reports
type AlertKind string

const (
	AlertError       AlertKind = "error"
	AlertResource    AlertKind = "resource"
	AlertPerformance AlertKind = "performance"
)

// Severity grades an alert
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Alert is one active alert condition. Alerts are recomputed from the
// current counters on every evaluation cycle, never accumulated.
type Alert struct {
	Kind        AlertKind `json:"kind"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// Totals is the aggregate counter state consumed by window snapshots
type Totals struct {
	ToolInvocations int64
	APIInvocations  int64
	Interactions    int64
	ContentItems    int
}
