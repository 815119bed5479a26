// internal/models/blood_group.go
package models

import (
	"fmt"
	"strings"
)

// BloodGroup is one of the eight ABO/Rh groups.
type BloodGroup string

const (
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
)

// BloodGroups lists every canonical group in a stable order.
var BloodGroups = []BloodGroup{
	BloodGroupONeg, BloodGroupOPos,
	BloodGroupANeg, BloodGroupAPos,
	BloodGroupBNeg, BloodGroupBPos,
	BloodGroupABNeg, BloodGroupABPos,
}

// ParseBloodGroup normalises case and surrounding whitespace.
func ParseBloodGroup(s string) (BloodGroup, error) {
	bg := BloodGroup(strings.ToUpper(strings.TrimSpace(s)))
	if !bg.Valid() {
		return "", fmt.Errorf("unknown blood group %q", s)
	}
	return bg, nil
}

func (b BloodGroup) Valid() bool {
	for _, g := range BloodGroups {
		if b == g {
			return true
		}
	}
	return false
}

func (b BloodGroup) String() string {
	return string(b)
}
