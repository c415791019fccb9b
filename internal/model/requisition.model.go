package model

import (
	"errors"
	"time"
)

// RequisitionStatus is the lifecycle state of a blood requisition.
type RequisitionStatus string

const (
	RequisitionActive    RequisitionStatus = "ACTIVE"
	RequisitionFulfilled RequisitionStatus = "FULFILLED"
	RequisitionExpired   RequisitionStatus = "EXPIRED"
	RequisitionCancelled RequisitionStatus = "CANCELLED"
)

// Terminal reports whether no further transition may leave this status.
func (s RequisitionStatus) Terminal() bool {
	return s == RequisitionFulfilled || s == RequisitionExpired || s == RequisitionCancelled
}

type Urgency string

const (
	UrgencyLow    Urgency = "LOW"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyHigh   Urgency = "HIGH"
)

func (u Urgency) Valid() bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh
}

type BloodRequisition struct {
	ID                 int64             `json:"id"`
	RequesterID        int64             `json:"requester_id"`
	TenantID           int64             `json:"tenant_id"`
	PatientName        string            `json:"patient_name"`
	HospitalName       string            `json:"hospital_name"`
	BloodGroup         BloodGroup        `json:"blood_group"`
	UnitsNeeded        int               `json:"units_needed"`
	Urgency            Urgency           `json:"urgency"`
	Location           string            `json:"location"`
	RequiredBy         time.Time         `json:"required_by"`
	ExpiresAt          time.Time         `json:"expires_at"`
	AllowContactReveal bool              `json:"allow_contact_reveal"`
	Status             RequisitionStatus `json:"status"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// RequisitionCreateRequest is the input for opening a requisition.
type RequisitionCreateRequest struct {
	RequesterID        int64
	TenantID           int64
	PatientName        string
	HospitalName       string
	BloodGroup         BloodGroup
	UnitsNeeded        int
	Urgency            Urgency
	Location           string
	RequiredBy         time.Time
	AllowContactReveal bool
}

func (p RequisitionCreateRequest) Validate() error {
	if p.RequesterID == 0 {
		return errors.New("requester_id is required")
	}
	if !p.BloodGroup.Valid() {
		return errors.New("invalid blood group")
	}
	if p.UnitsNeeded <= 0 {
		return errors.New("units_needed must be positive")
	}
	if !p.Urgency.Valid() {
		return errors.New("invalid urgency")
	}
	if p.RequiredBy.IsZero() {
		return errors.New("required_by is required")
	}
	return nil
}

// RequisitionFilter controls list queries.
type RequisitionFilter struct {
	RequesterID *int64
	TenantID    *int64
	Statuses    []RequisitionStatus
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
	Desc        bool
}
