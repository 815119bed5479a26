// internal/workers/matching/check-donor-eligibility/models.go
package checkdonoreligibility

import "organmatch/internal/matching/service"

type Input = service.EligibilityRequest

type Output struct {
	DonorID      string   `json:"donorId"`
	Eligible     bool     `json:"eligible"`
	FailedClause string   `json:"failedClause,omitempty"`
	DistanceKm   *float64 `json:"distanceKm"`
}
