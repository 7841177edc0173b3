package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/soundforge/pulse/pkg/telemetry"
)

func TestPopularityScore(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	stats := telemetry.StatsBlock{Plays: 10, Likes: 5, Shares: 2, Downloads: 1}
	// 10*1 + 5*3 + 2*5 + 1*2 = 37 engagement points

	tests := []struct {
		name      string
		createdAt time.Time
		expected  float64
	}{
		{
			name:      "fresh content gets the full recency bonus",
			createdAt: now,
			expected:  38.0,
		},
		{
			name:      "five day old content gets half the bonus",
			createdAt: now.Add(-5 * 24 * time.Hour),
			expected:  37.5,
		},
		{
			name:      "bonus exhausted at ten days",
			createdAt: now.Add(-10 * 24 * time.Hour),
			expected:  37.0,
		},
		{
			name:      "bonus never goes negative",
			createdAt: now.Add(-15 * 24 * time.Hour),
			expected:  37.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PopularityScore(stats, tt.createdAt, now, DefaultWeights())
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestPopularityScore_ZeroStats(t *testing.T) {
	now := time.Now()
	got := PopularityScore(telemetry.StatsBlock{}, now, now, DefaultWeights())
	assert.InDelta(t, 1.0, got, 1e-9, "brand new content scores only its recency bonus")
}

func TestPopularityScore_CustomWeights(t *testing.T) {
	now := time.Now()
	stats := telemetry.StatsBlock{Plays: 10, Shares: 1}
	w := Weights{Play: 0.5, Share: 10}

	got := PopularityScore(stats, now.Add(-20*24*time.Hour), now, w)
	assert.InDelta(t, 15.0, got, 1e-9)
}

func TestIsTrending(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	tests := []struct {
		name      string
		createdAt time.Time
		expected  bool
	}{
		{
			name:      "two hours old",
			createdAt: now.Add(-2 * time.Hour),
			expected:  true,
		},
		{
			name:      "exactly at the window edge",
			createdAt: now.Add(-24 * time.Hour),
			expected:  true,
		},
		{
			name:      "thirty hours old",
			createdAt: now.Add(-30 * time.Hour),
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTrending(tt.createdAt, now, window))
		})
	}
}
