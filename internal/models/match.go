// internal/models/match.go
package models

// MatchResult is one ranked donor returned for a receiver.
type MatchResult struct {
	DonorID            string  `json:"donorId"`
	Age                int     `json:"age"`
	Location           string  `json:"location"`
	Probability        float64 `json:"matchProbability"`
	DistanceKm         float64 `json:"distanceKm"`
	HealthScore        int     `json:"healthScore"`
	HospitalName       string  `json:"hospitalName,omitempty"`
	ContactEmail       string  `json:"email,omitempty"`
	ContactPhone       string  `json:"phone,omitempty"`
	TransportAvailable bool    `json:"hospitalTransportation"`
}
