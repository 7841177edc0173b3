package ranking

import (
	"time"

	"github.com/soundforge/pulse/pkg/telemetry"
)

// Weights are the interaction weights of the popularity score. The
// defaults encode the product decision that sharing signals more value
// than passive plays.
type Weights struct {
	Play     float64 `yaml:"play"`
	Like     float64 `yaml:"like"`
	Share    float64 `yaml:"share"`
	Download float64 `yaml:"download"`
}

// DefaultWeights returns the default score weights
func DefaultWeights() Weights {
	return Weights{Play: 1, Like: 3, Share: 5, Download: 2}
}

// Recency bonus: fresh content gets up to one extra point, decaying
// linearly to zero after ten days so old high-engagement content does
// not permanently dominate. Never negative.
const (
	recencyWindowDays  = 10.0
	recencyBonusPerDay = 0.1
)

// PopularityScore computes the weighted engagement score of a stats
// block plus the capped recency bonus. Pure function of its inputs.
func PopularityScore(stats telemetry.StatsBlock, createdAt, now time.Time, w Weights) float64 {
	score := float64(stats.Plays)*w.Play +
		float64(stats.Likes)*w.Like +
		float64(stats.Shares)*w.Share +
		float64(stats.Downloads)*w.Download

	ageDays := now.Sub(createdAt).Hours() / 24
	bonus := (recencyWindowDays - ageDays) * recencyBonusPerDay
	if bonus < 0 {
		bonus = 0
	}
	return score + bonus
}

// IsTrending reports whether content created at createdAt is still
// inside the trending age window as of now
func IsTrending(createdAt, now time.Time, window time.Duration) bool {
	return now.Sub(createdAt) <= window
}
