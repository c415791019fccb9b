// Package compat implements ABO/Rh donation compatibility and donor
// eligibility rules. Everything here is pure: no I/O, no clocks beyond the
// caller-supplied reference time.
package compat

import (
	"strings"

	"github.com/lifelink/donor-gateway/internal/model"
)

// aboCanDonate maps a donor ABO type to the recipient ABO types it may
// serve. O is the universal ABO donor, AB the universal ABO recipient.
var aboCanDonate = map[string][]string{
	"O":  {"O", "A", "B", "AB"},
	"A":  {"A", "AB"},
	"B":  {"B", "AB"},
	"AB": {"AB"},
}

func split(g model.BloodGroup) (abo string, rhPos bool) {
	s := string(g)
	if strings.HasSuffix(s, "+") {
		return strings.TrimSuffix(s, "+"), true
	}
	return strings.TrimSuffix(s, "-"), false
}

func join(abo string, rhPos bool) model.BloodGroup {
	if rhPos {
		return model.BloodGroup(abo + "+")
	}
	return model.BloodGroup(abo + "-")
}

// CanDonate reports whether a donor of group donor may give to a recipient
// of group recipient. Rh-negative donors serve both Rh signs; Rh-positive
// donors serve Rh-positive recipients only.
func CanDonate(donor, recipient model.BloodGroup) bool {
	dABO, dPos := split(donor)
	rABO, rPos := split(recipient)

	if dPos && !rPos {
		return false
	}
	for _, abo := range aboCanDonate[dABO] {
		if abo == rABO {
			return true
		}
	}
	return false
}

// CompatibleRecipients returns every group a donor of the given group may
// give to. For AB+ donors this is {AB+}; for O- donors it is all 8 groups.
func CompatibleRecipients(donor model.BloodGroup) []model.BloodGroup {
	out := make([]model.BloodGroup, 0, len(model.AllBloodGroups))
	for _, r := range model.AllBloodGroups {
		if CanDonate(donor, r) {
			out = append(out, r)
		}
	}
	return out
}

// CompatibleDonors returns every group that may give to a recipient of the
// given group. O- is always included; for AB+ recipients it is all 8 groups.
func CompatibleDonors(recipient model.BloodGroup) []model.BloodGroup {
	out := make([]model.BloodGroup, 0, len(model.AllBloodGroups))
	for _, d := range model.AllBloodGroups {
		if CanDonate(d, recipient) {
			out = append(out, d)
		}
	}
	return out
}
