package model

import (
	"errors"
	"time"
)

// BloodGroup is an ABO x Rh blood group.
type BloodGroup string

const (
	BloodGroupONeg  BloodGroup = "O-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupABPos BloodGroup = "AB+"
)

// AllBloodGroups lists every valid group. Order is stable for tests and
// query building.
var AllBloodGroups = []BloodGroup{
	BloodGroupONeg, BloodGroupOPos,
	BloodGroupANeg, BloodGroupAPos,
	BloodGroupBNeg, BloodGroupBPos,
	BloodGroupABNeg, BloodGroupABPos,
}

func (g BloodGroup) Valid() bool {
	for _, v := range AllBloodGroups {
		if g == v {
			return true
		}
	}
	return false
}

type DonorProfile struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	TenantID       int64      `json:"tenant_id"`
	BloodGroup     BloodGroup `json:"blood_group"`
	Location       string     `json:"location"`
	ContactPhone   string     `json:"contact_phone"`
	IsDonor        bool       `json:"is_donor"`
	IsActive       bool       `json:"is_active"`
	ContactVisible bool       `json:"contact_visible"`
	LastDonation   *time.Time `json:"last_donation,omitempty"`
	DonationCount  int        `json:"donation_count"`
	UnitsDonated   int        `json:"units_donated"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DonorCard is the directory projection used for candidate selection.
type DonorCard struct {
	DonorID    int64      `json:"donor_id"`
	UserID     int64      `json:"user_id"`
	BloodGroup BloodGroup `json:"blood_group"`
	Location   string     `json:"location"`
}

// DonorFilter controls FindAvailable queries.
type DonorFilter struct {
	BloodGroups []BloodGroup
	Location    *string
	TenantID    *int64
	Limit       int
}

func (f DonorFilter) Validate() error {
	if len(f.BloodGroups) == 0 {
		return errors.New("at least one blood group is required")
	}
	for _, g := range f.BloodGroups {
		if !g.Valid() {
			return errors.New("invalid blood group: " + string(g))
		}
	}
	return nil
}
