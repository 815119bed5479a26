package compatibility

import "organmatch/internal/models"

// lattice maps a donor blood group to every recipient group it may supply.
var lattice = map[models.BloodGroup][]models.BloodGroup{
	models.BloodGroupONeg:  {models.BloodGroupONeg, models.BloodGroupOPos, models.BloodGroupANeg, models.BloodGroupAPos, models.BloodGroupBNeg, models.BloodGroupBPos, models.BloodGroupABNeg, models.BloodGroupABPos},
	models.BloodGroupOPos:  {models.BloodGroupOPos, models.BloodGroupAPos, models.BloodGroupBPos, models.BloodGroupABPos},
	models.BloodGroupANeg:  {models.BloodGroupANeg, models.BloodGroupAPos, models.BloodGroupABNeg, models.BloodGroupABPos},
	models.BloodGroupAPos:  {models.BloodGroupAPos, models.BloodGroupABPos},
	models.BloodGroupBNeg:  {models.BloodGroupBNeg, models.BloodGroupBPos, models.BloodGroupABNeg, models.BloodGroupABPos},
	models.BloodGroupBPos:  {models.BloodGroupBPos, models.BloodGroupABPos},
	models.BloodGroupABNeg: {models.BloodGroupABNeg, models.BloodGroupABPos},
	models.BloodGroupABPos: {models.BloodGroupABPos},
}

// CanDonate reports whether blood from donor may be given to recipient.
// Groups outside the canonical eight are never compatible.
func CanDonate(donor, recipient models.BloodGroup) bool {
	for _, bg := range lattice[donor] {
		if bg == recipient {
			return true
		}
	}
	return false
}

// Recipients returns the groups a donor group can supply.
func Recipients(donor models.BloodGroup) []models.BloodGroup {
	out := make([]models.BloodGroup, len(lattice[donor]))
	copy(out, lattice[donor])
	return out
}
