package engine

import (
	"fmt"
	"strings"

	"organmatch/internal/models"
)

const maxAge = 120

// ValidateReceiver checks the fields the filter depends on. An unknown
// location is not a validation error; it only makes geography depend on
// the donor's transport flag.
func ValidateReceiver(r models.Receiver) error {
	var problems []string

	if r.Age < 0 || r.Age > maxAge {
		problems = append(problems, fmt.Sprintf("age %d out of range 0-%d", r.Age, maxAge))
	}
	if strings.TrimSpace(r.Location) == "" {
		problems = append(problems, "location is required")
	}
	if !r.BloodGroup.Valid() {
		problems = append(problems, fmt.Sprintf("unknown blood group %q", r.BloodGroup))
	}
	if strings.TrimSpace(r.OrganNeeded) == "" {
		problems = append(problems, "organNeeded is required")
	}
	if strings.TrimSpace(r.TissueType) == "" {
		problems = append(problems, "tissueType is required")
	}
	if r.Urgency < models.UrgencyLow || r.Urgency > models.UrgencyCritical {
		problems = append(problems, fmt.Sprintf("urgency %d out of range %d-%d", r.Urgency, models.UrgencyLow, models.UrgencyCritical))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ValidateDonor checks a single donor record used in an eligibility query.
func ValidateDonor(d models.Donor) error {
	var problems []string

	if d.Age < 0 || d.Age > maxAge {
		problems = append(problems, fmt.Sprintf("donor age %d out of range 0-%d", d.Age, maxAge))
	}
	if strings.TrimSpace(d.Location) == "" {
		problems = append(problems, "donor location is required")
	}
	if !d.BloodGroup.Valid() {
		problems = append(problems, fmt.Sprintf("unknown donor blood group %q", d.BloodGroup))
	}
	if strings.TrimSpace(d.Organ) == "" {
		problems = append(problems, "donor organ is required")
	}
	if strings.TrimSpace(d.TissueType) == "" {
		problems = append(problems, "donor organTissueType is required")
	}
	if d.HealthScore < 0 || d.HealthScore > 100 {
		problems = append(problems, fmt.Sprintf("organHealthScore %d out of range 0-100", d.HealthScore))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
