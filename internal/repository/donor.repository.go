package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrDonorNotFound = errors.New("donor not found")
)

// DonorRepository is the persistence side of the donor directory.
type DonorRepository struct {
	*pg.DB
}

func NewDonorRepository(db *pg.DB) *DonorRepository {
	return &DonorRepository{db}
}

func (r *DonorRepository) Create(ctx context.Context, donor *model.DonorProfile) (*model.DonorProfile, error) {
	entity := toDonorProfileEntity(donor)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toDonorProfileModel(entity), nil
}

func (r *DonorRepository) Get(ctx context.Context, id int64) (*model.DonorProfile, error) {
	var entity DonorProfileEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonorNotFound
		}
		return nil, err
	}
	return toDonorProfileModel(&entity), nil
}

// FindAvailable returns active opted-in donors matching the filter. Callers
// pass the compatibility-filtered blood group set; eligibility by cooldown is
// applied here against last_donation.
func (r *DonorRepository) FindAvailable(ctx context.Context, f model.DonorFilter, cooldownDays int, now time.Time) ([]*model.DonorCard, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	groups := make([]string, len(f.BloodGroups))
	for i, g := range f.BloodGroups {
		groups[i] = string(g)
	}

	cutoff := now.AddDate(0, 0, -cooldownDays)
	q := r.Read(ctx).WithContext(ctx).
		Model(&DonorProfileEntity{}).
		Where("is_donor = ? AND is_active = ?", true, true).
		Where("blood_group IN ?", groups).
		Where("last_donation IS NULL OR last_donation <= ?", cutoff)

	if f.Location != nil && *f.Location != "" {
		q = q.Where("location = ?", *f.Location)
	}
	if f.TenantID != nil {
		q = q.Where("tenant_id = ?", *f.TenantID)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entities []*DonorProfileEntity
	if err := q.Order("last_donation ASC NULLS FIRST").Limit(limit).Find(&entities).Error; err != nil {
		return nil, err
	}

	cards := make([]*model.DonorCard, len(entities))
	for i, e := range entities {
		cards[i] = &model.DonorCard{
			DonorID:    e.ID,
			UserID:     e.UserID,
			BloodGroup: model.BloodGroup(e.BloodGroup),
			Location:   e.Location,
		}
	}
	return cards, nil
}

// RecordDonation bumps the donor's counters and last-donation date.
func (r *DonorRepository) RecordDonation(ctx context.Context, donorID int64, units int, donatedAt time.Time) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&DonorProfileEntity{}).
		Where("id = ?", donorID).
		Updates(map[string]interface{}{
			"last_donation":  donatedAt,
			"donation_count": gorm.Expr("donation_count + 1"),
			"units_donated":  gorm.Expr("units_donated + ?", units),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDonorNotFound
	}
	return nil
}

// Deactivate flags the profile inactive. Profiles are never deleted.
func (r *DonorRepository) Deactivate(ctx context.Context, donorID int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&DonorProfileEntity{}).
		Where("id = ?", donorID).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDonorNotFound
	}
	return nil
}

func (r *DonorRepository) AddDeviceToken(ctx context.Context, donorID int64, token, platform string) (*model.DeviceToken, error) {
	entity := &DeviceTokenEntity{
		DonorID:  donorID,
		Token:    token,
		Platform: platform,
		IsActive: true,
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toDeviceTokenModel(entity), nil
}

// ActiveTokens resolves active device tokens per donor, keyed by donor id.
// Donors with no active token are absent from the result.
func (r *DonorRepository) ActiveTokens(ctx context.Context, donorIDs []int64) (map[int64][]string, error) {
	if len(donorIDs) == 0 {
		return map[int64][]string{}, nil
	}

	var entities []*DeviceTokenEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("donor_id IN ? AND is_active = ?", donorIDs, true).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}

	out := make(map[int64][]string, len(donorIDs))
	for _, e := range entities {
		out[e.DonorID] = append(out[e.DonorID], e.Token)
	}
	return out, nil
}

// DeactivateTokens flags tokens the provider reported unregistered so future
// sends skip them.
func (r *DonorRepository) DeactivateTokens(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	result := r.Write(ctx).WithContext(ctx).
		Model(&DeviceTokenEntity{}).
		Where("token IN ?", tokens).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}
