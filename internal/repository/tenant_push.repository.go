package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPushConfigNotFound = errors.New("tenant push config not found")
)

type TenantPushConfigRepository struct {
	*pg.DB
}

func NewTenantPushConfigRepository(db *pg.DB) *TenantPushConfigRepository {
	return &TenantPushConfigRepository{db}
}

func (r *TenantPushConfigRepository) Get(ctx context.Context, tenantID int64) (*model.TenantPushConfig, error) {
	var entity TenantPushConfigEntity
	err := r.Read(ctx).WithContext(ctx).Where("tenant_id = ?", tenantID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPushConfigNotFound
		}
		return nil, err
	}
	return toTenantPushConfigModel(&entity), nil
}

// GetMasked is the read path for admin surfaces: credentials are replaced by
// the fixed placeholder, never returned in plaintext or ciphertext.
func (r *TenantPushConfigRepository) GetMasked(ctx context.Context, tenantID int64) (*model.TenantPushConfig, error) {
	cfg, err := r.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	masked := cfg.Masked()
	return &masked, nil
}

func (r *TenantPushConfigRepository) Upsert(ctx context.Context, cfg *model.TenantPushConfig) (*model.TenantPushConfig, error) {
	entity := toTenantPushConfigEntity(cfg)
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"project_id", "credentials", "provider_url",
				"daily_limit", "monthly_limit", "is_active", "is_configured",
			}),
		}).
		Create(entity).Error
	if err != nil {
		return nil, err
	}
	return toTenantPushConfigModel(entity), nil
}

// IncrementCounters adds attempted recipients to both windows atomically in
// the database, so concurrent sends for the same tenant never lose updates.
func (r *TenantPushConfigRepository) IncrementCounters(ctx context.Context, tenantID int64, attempted int64) error {
	if attempted <= 0 {
		return nil
	}
	result := r.Write(ctx).WithContext(ctx).
		Model(&TenantPushConfigEntity{}).
		Where("tenant_id = ?", tenantID).
		Updates(map[string]interface{}{
			"daily_sent":   gorm.Expr("daily_sent + ?", attempted),
			"monthly_sent": gorm.Expr("monthly_sent + ?", attempted),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPushConfigNotFound
	}
	return nil
}

// ResetDailyIfDue zeroes the daily counter when the last reset happened on an
// earlier calendar day. The guard is in the WHERE clause, so many callers
// straddling midnight reset exactly once.
func (r *TenantPushConfigRepository) ResetDailyIfDue(ctx context.Context, tenantID int64, now time.Time) (bool, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	result := r.Write(ctx).WithContext(ctx).
		Model(&TenantPushConfigEntity{}).
		Where("tenant_id = ? AND daily_reset_at < ?", tenantID, dayStart).
		Updates(map[string]interface{}{
			"daily_sent":     0,
			"daily_reset_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ResetMonthlyIfDue is the month-boundary analogue of ResetDailyIfDue.
func (r *TenantPushConfigRepository) ResetMonthlyIfDue(ctx context.Context, tenantID int64, now time.Time) (bool, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	result := r.Write(ctx).WithContext(ctx).
		Model(&TenantPushConfigEntity{}).
		Where("tenant_id = ? AND month_reset_at < ?", tenantID, monthStart).
		Updates(map[string]interface{}{
			"monthly_sent":   0,
			"month_reset_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *TenantPushConfigRepository) MarkTested(ctx context.Context, tenantID int64, testedAt time.Time) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&TenantPushConfigEntity{}).
		Where("tenant_id = ?", tenantID).
		Update("last_tested_at", testedAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPushConfigNotFound
	}
	return nil
}
