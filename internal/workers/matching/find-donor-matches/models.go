// internal/workers/matching/find-donor-matches/models.go
package finddonormatches

import (
	"organmatch/internal/matching/service"
	"organmatch/internal/models"
)

type Input = service.MatchRequest

type Output struct {
	RequestID       string               `json:"requestId"`
	Outcome         string               `json:"outcome"`
	HasMatches      bool                 `json:"hasMatches"`
	Matches         []models.MatchResult `json:"matches"`
	EligibleCount   int                  `json:"eligibleCount"`
	BestProbability float64              `json:"bestProbability"`
	Urgency         int                  `json:"urgency"`
}
