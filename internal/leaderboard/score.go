package leaderboard

import (
	"math"
	"time"
)

// Hot-score constants.  The epoch anchors the recency term so scores stay
// small.  Every 45 000 seconds (12.5 h) of age weighs as much as one order
// of magnitude in net votes.
const (
	hotEpoch   = 1134028003
	hotDecayS  = 45000.0
	hotRoundTo = 1e7
)

// HotScore ranks by net votes on a log scale plus a linear recency term.
// For a fixed net score it grows strictly with creation time, so of two
// prompts with equal votes the newer one always ranks higher.
func HotScore(upvotes, downvotes int, createdAt time.Time) float64 {
	s := float64(upvotes - downvotes)
	order := math.Log10(math.Max(math.Abs(s), 1))

	var sign float64
	switch {
	case s > 0:
		sign = 1
	case s < 0:
		sign = -1
	}

	age := float64(createdAt.Unix()-hotEpoch) / hotDecayS
	return math.Round((sign*order+age)*hotRoundTo) / hotRoundTo
}
