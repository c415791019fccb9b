package compat

import (
	"fmt"
	"time"
)

// DefaultCooldownDays is the minimum interval between whole-blood donations.
const DefaultCooldownDays = 90

type Eligibility struct {
	IsEligible       bool       `json:"is_eligible"`
	NextEligibleDate *time.Time `json:"next_eligible_date,omitempty"`
	DaysRemaining    int        `json:"days_remaining"`
	Message          string     `json:"message"`
}

// CheckEligibility decides whether a donor may donate at the reference time
// now. A nil lastDonation means the donor has never donated and is eligible.
// The cooldown boundary is inclusive: exactly cooldownDays since the last
// donation is eligible.
func CheckEligibility(lastDonation *time.Time, now time.Time, cooldownDays int) Eligibility {
	if cooldownDays <= 0 {
		cooldownDays = DefaultCooldownDays
	}
	if lastDonation == nil {
		return Eligibility{
			IsEligible: true,
			Message:    "eligible to donate",
		}
	}

	next := lastDonation.AddDate(0, 0, cooldownDays)
	if !now.Before(next) {
		return Eligibility{
			IsEligible: true,
			Message:    "eligible to donate",
		}
	}

	remaining := int(next.Sub(now).Hours() / 24)
	if next.Sub(now)%(24*time.Hour) != 0 {
		remaining++
	}
	return Eligibility{
		IsEligible:       false,
		NextEligibleDate: &next,
		DaysRemaining:    remaining,
		Message:          fmt.Sprintf("eligible again in %d day(s)", remaining),
	}
}
