// internal/models/donor.go
package models

// Donor is a registered organ offer. Hospital and contact fields are carried
// through to match results and notifications but never scored.
type Donor struct {
	ID                 string     `json:"donorId"`
	Age                int        `json:"age"`
	Location           string     `json:"location"`
	BloodGroup         BloodGroup `json:"bloodGroup"`
	Organ              string     `json:"organ"`
	TissueType         string     `json:"organTissueType"`
	HealthScore        int        `json:"organHealthScore"`
	TransportAvailable bool       `json:"hospitalTransportation"`
	HospitalName       string     `json:"hospitalName,omitempty"`
	ContactEmail       string     `json:"email,omitempty"`
	ContactPhone       string     `json:"phone,omitempty"`
}
