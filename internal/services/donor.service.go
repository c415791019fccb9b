package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/internal/repository"
)

var (
	ErrInvalidBloodGroup = fmt.Errorf("invalid blood group")
	ErrEmptyToken        = fmt.Errorf("device token cannot be empty")
	ErrInvalidUnits      = errors.New("donated units must be positive")
	ErrNotFound          = errors.New("donor not found")
)

type DonorRepository interface {
	Create(ctx context.Context, donor *model.DonorProfile) (*model.DonorProfile, error)
	Get(ctx context.Context, id int64) (*model.DonorProfile, error)
	RecordDonation(ctx context.Context, donorID int64, units int, donatedAt time.Time) error
	Deactivate(ctx context.Context, donorID int64) error
	AddDeviceToken(ctx context.Context, donorID int64, token, platform string) (*model.DeviceToken, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RequisitionCloser marks a requisition fulfilled once the donation that
// satisfies it is recorded.
type RequisitionCloser interface {
	Fulfill(ctx context.Context, id int64) error
}

type DonorService struct {
	donorRepo    DonorRepository
	requisitions RequisitionCloser
	now          func() time.Time
}

func NewDonorService(donorRepo DonorRepository, requisitions RequisitionCloser) *DonorService {
	return &DonorService{
		donorRepo:    donorRepo,
		requisitions: requisitions,
		now:          time.Now,
	}
}

func (s *DonorService) Register(ctx context.Context, donor *model.DonorProfile) (*model.DonorProfile, error) {
	if !donor.BloodGroup.Valid() {
		return nil, ErrInvalidBloodGroup
	}
	donor.IsDonor = true
	donor.IsActive = true
	return s.donorRepo.Create(ctx, donor)
}

func (s *DonorService) Get(ctx context.Context, id int64) (*model.DonorProfile, error) {
	donor, err := s.donorRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDonorNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return donor, nil
}

// RegisterDeviceToken adds a push channel for a donor's device. Re-adding a
// token reactivates it.
func (s *DonorService) RegisterDeviceToken(ctx context.Context, donorID int64, token, platform string) (*model.DeviceToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	if _, err := s.donorRepo.Get(ctx, donorID); err != nil {
		return nil, ErrNotFound
	}
	return s.donorRepo.AddDeviceToken(ctx, donorID, token, platform)
}

// RecordDonation updates the donor's counters and, when the donation was for
// a specific requisition, fulfills it in the same transaction. The donor's
// cooldown window starts here.
func (s *DonorService) RecordDonation(ctx context.Context, donorID int64, units int, requisitionID *int64) error {
	if units <= 0 {
		return ErrInvalidUnits
	}
	donatedAt := s.now()

	return s.donorRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.donorRepo.RecordDonation(ctx, donorID, units, donatedAt); err != nil {
			return fmt.Errorf("record donation: %w", err)
		}
		if requisitionID != nil {
			if err := s.requisitions.Fulfill(ctx, *requisitionID); err != nil {
				// Roll back the counter update too; the caller retries or
				// records the donation without a requisition.
				return fmt.Errorf("fulfill requisition: %w", err)
			}
		}
		return nil
	})
}

func (s *DonorService) Deactivate(ctx context.Context, donorID int64) error {
	return s.donorRepo.Deactivate(ctx, donorID)
}
