package engine

import (
	"math"

	"github.com/marketsentry/btcsentry/internal/models"
)

// SelectContract returns the out-of-the-money contract of the desired
// type whose premium is closest to targetPremium, or nil when no
// candidate survives filtering. Candidates are filtered in order:
// type match, strict OTM (call strike > spot, put strike < spot),
// positive premium (mark, falling back to last). On an exact distance
// tie the first-encountered contract wins; the chain is not re-sorted.
// Pure function.
func SelectContract(chain []models.OptionContract, desired models.OptionType, targetPremium, spot float64) *models.OptionContract {
	var best *models.OptionContract
	bestDiff := math.Inf(1)

	for i := range chain {
		c := &chain[i]
		if c.OptionType != desired {
			continue
		}
		if desired == models.Call && c.StrikePrice <= spot {
			continue
		}
		if desired == models.Put && c.StrikePrice >= spot {
			continue
		}
		premium := c.Premium()
		if premium <= 0 {
			continue
		}

		diff := math.Abs(premium - targetPremium)
		if diff < bestDiff {
			bestDiff = diff
			best = c
		}
	}

	if best == nil {
		return nil
	}
	// Copy so callers can annotate the result without mutating the chain.
	selected := *best
	return &selected
}
