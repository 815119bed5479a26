// internal/models/receiver.go
package models

const (
	UrgencyLow      = 0
	UrgencyMedium   = 1
	UrgencyCritical = 2
)

// Receiver is a recipient's request for an organ. ID is only set for
// dataset rows; online requests may leave it empty.
type Receiver struct {
	ID          string     `json:"receiverId,omitempty"`
	Age         int        `json:"age"`
	Location    string     `json:"location"`
	BloodGroup  BloodGroup `json:"bloodGroup"`
	OrganNeeded string     `json:"organNeeded"`
	TissueType  string     `json:"tissueType"`
	Urgency     int        `json:"urgency"`
}
