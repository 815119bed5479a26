// Package ranking orders scored candidates and cuts the short-list.
package ranking

import (
	"sort"

	"organmatch/internal/models"
)

const (
	DefaultThreshold = 0.5
	DefaultTopK      = 5
)

// Select keeps candidates with probability strictly above threshold, sorts
// them by probability descending with ties in input order, and returns at
// most topK. A topK of zero or less means no limit. The input is not modified.
func Select(cands []models.MatchResult, threshold float64, topK int) []models.MatchResult {
	kept := make([]models.MatchResult, 0, len(cands))
	for _, c := range cands {
		if c.Probability > threshold {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Probability > kept[j].Probability
	})

	if topK > 0 && len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}

// Best returns the highest probability among cands; ok is false when empty.
func Best(cands []models.MatchResult) (best float64, ok bool) {
	for i, c := range cands {
		if i == 0 || c.Probability > best {
			best = c.Probability
		}
	}
	return best, len(cands) > 0
}
