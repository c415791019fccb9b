package requisition

import (
	"fmt"

	"github.com/lifelink/donor-gateway/internal/model"
)

// TransitionError is returned when a transition originates from a terminal
// status. Terminality is sticky: FULFILLED, EXPIRED and CANCELLED never move.
type TransitionError struct {
	From model.RequisitionStatus
	To   model.RequisitionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal requisition transition %s -> %s", e.From, e.To)
}

// transitions is the full legal-transition table. ACTIVE is the only
// non-terminal state; everything it may reach is terminal.
var transitions = map[model.RequisitionStatus][]model.RequisitionStatus{
	model.RequisitionActive: {
		model.RequisitionFulfilled,
		model.RequisitionExpired,
		model.RequisitionCancelled,
	},
	model.RequisitionFulfilled: {},
	model.RequisitionExpired:   {},
	model.RequisitionCancelled: {},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to model.RequisitionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change in memory. The storage
// layer guards the same invariant with a conditional update, so a racing
// transition loses there rather than silently overwriting.
func Transition(req *model.BloodRequisition, to model.RequisitionStatus) error {
	if !CanTransition(req.Status, to) {
		return &TransitionError{From: req.Status, To: to}
	}
	req.Status = to
	return nil
}
