package model

import (
	"errors"
	"time"
)

type ResponseKind string

const (
	ResponseWilling      ResponseKind = "WILLING"
	ResponseNotAvailable ResponseKind = "NOT_AVAILABLE"
	ResponseNotSuitable  ResponseKind = "NOT_SUITABLE"
)

func (r ResponseKind) Valid() bool {
	return r == ResponseWilling || r == ResponseNotAvailable || r == ResponseNotSuitable
}

// DonorResponse records a donor's decision on a requisition. Unique per
// (donor, requisition) pair. The reveal decision is computed once at creation
// and never changed afterwards.
type DonorResponse struct {
	ID                int64        `json:"id"`
	DonorID           int64        `json:"donor_id"`
	RequisitionID     int64        `json:"requisition_id"`
	Response          ResponseKind `json:"response"`
	Message           string       `json:"message,omitempty"`
	ContactPhone      *string      `json:"contact_phone,omitempty"`
	IsContactRevealed bool         `json:"is_contact_revealed"`
	CreatedAt         time.Time    `json:"created_at"`
}

type RespondRequest struct {
	DonorID       int64
	RequisitionID int64
	Response      ResponseKind
	Message       string
}

func (p RespondRequest) Validate() error {
	if p.DonorID == 0 {
		return errors.New("donor_id is required")
	}
	if p.RequisitionID == 0 {
		return errors.New("requisition_id is required")
	}
	if !p.Response.Valid() {
		return errors.New("invalid response")
	}
	return nil
}
