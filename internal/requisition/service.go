package requisition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/pkg/logger"
)

// MaxOpenWindow caps how long a requisition stays dispatchable regardless of
// its required-by date.
const MaxOpenWindow = 72 * time.Hour

var (
	ErrNotFound      = errors.New("requisition not found")
	ErrNotExpired    = errors.New("requisition is not expired")
	ErrStaleStatus   = errors.New("requisition status changed concurrently")
	ErrAlreadyClosed = errors.New("requisition is already in a terminal state")
)

type Repository interface {
	Create(ctx context.Context, req *model.BloodRequisition) (*model.BloodRequisition, error)
	Get(ctx context.Context, id int64) (*model.BloodRequisition, error)
	// UpdateStatus applies from -> to conditionally and reports whether any
	// row changed, so terminality cannot be raced away.
	UpdateStatus(ctx context.Context, id int64, from, to model.RequisitionStatus) (bool, error)
	ListForUser(ctx context.Context, f model.RequisitionFilter) ([]*model.BloodRequisition, int64, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.BloodRequisition, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, p model.RequisitionCreateRequest) (*model.BloodRequisition, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	expires := now.Add(MaxOpenWindow)
	if p.RequiredBy.Before(expires) {
		expires = p.RequiredBy
	}

	req := &model.BloodRequisition{
		RequesterID:        p.RequesterID,
		TenantID:           p.TenantID,
		PatientName:        p.PatientName,
		HospitalName:       p.HospitalName,
		BloodGroup:         p.BloodGroup,
		UnitsNeeded:        p.UnitsNeeded,
		Urgency:            p.Urgency,
		Location:           p.Location,
		RequiredBy:         p.RequiredBy,
		ExpiresAt:          expires,
		AllowContactReveal: p.AllowContactReveal,
		Status:             model.RequisitionActive,
	}
	return s.repo.Create(ctx, req)
}

func (s *Service) Get(ctx context.Context, id int64) (*model.BloodRequisition, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListForUser(ctx context.Context, f model.RequisitionFilter) ([]*model.BloodRequisition, int64, error) {
	return s.repo.ListForUser(ctx, f)
}

func (s *Service) Fulfill(ctx context.Context, id int64) error {
	return s.transition(ctx, id, model.RequisitionFulfilled)
}

func (s *Service) Cancel(ctx context.Context, id int64) error {
	return s.transition(ctx, id, model.RequisitionCancelled)
}

func (s *Service) Expire(ctx context.Context, id int64) error {
	return s.transition(ctx, id, model.RequisitionExpired)
}

func (s *Service) transition(ctx context.Context, id int64, to model.RequisitionStatus) error {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	from := req.Status
	if err := Transition(req, to); err != nil {
		return err
	}

	changed, err := s.repo.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return fmt.Errorf("update requisition status: %w", err)
	}
	if !changed {
		return ErrStaleStatus
	}
	return nil
}

// ExpireOverdue moves every ACTIVE requisition whose expiry has passed into
// EXPIRED. The clock trigger lives in the sweeper binary; this only executes
// the transitions. Individual failures are logged and skipped.
func (s *Service) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	overdue, err := s.repo.ListExpired(ctx, s.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list overdue requisitions: %w", err)
	}

	expired := 0
	for _, req := range overdue {
		changed, err := s.repo.UpdateStatus(ctx, req.ID, model.RequisitionActive, model.RequisitionExpired)
		if err != nil {
			logger.Warn("failed to expire requisition", "requisition_id", req.ID, "error", err)
			continue
		}
		if changed {
			expired++
		}
	}
	return expired, nil
}

// Reuse derives a fresh ACTIVE requisition from an EXPIRED one. This is a
// create, not a mutation: the expired original keeps its status and its
// responses are not carried over.
func (s *Service) Reuse(ctx context.Context, id int64, requiredBy time.Time) (*model.BloodRequisition, error) {
	orig, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if orig.Status != model.RequisitionExpired {
		return nil, ErrNotExpired
	}

	return s.Create(ctx, model.RequisitionCreateRequest{
		RequesterID:        orig.RequesterID,
		TenantID:           orig.TenantID,
		PatientName:        orig.PatientName,
		HospitalName:       orig.HospitalName,
		BloodGroup:         orig.BloodGroup,
		UnitsNeeded:        orig.UnitsNeeded,
		Urgency:            orig.Urgency,
		Location:           orig.Location,
		RequiredBy:         requiredBy,
		AllowContactReveal: orig.AllowContactReveal,
	})
}
