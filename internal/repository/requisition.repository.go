package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/internal/requisition"
	"github.com/lifelink/donor-gateway/pkg/pg"
	"gorm.io/gorm"
)

type RequisitionRepository struct {
	*pg.DB
}

func NewRequisitionRepository(db *pg.DB) *RequisitionRepository {
	return &RequisitionRepository{db}
}

func (r *RequisitionRepository) Create(ctx context.Context, req *model.BloodRequisition) (*model.BloodRequisition, error) {
	entity := toRequisitionEntity(req)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toRequisitionModel(entity), nil
}

func (r *RequisitionRepository) Get(ctx context.Context, id int64) (*model.BloodRequisition, error) {
	var entity RequisitionEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, requisition.ErrNotFound
		}
		return nil, err
	}
	return toRequisitionModel(&entity), nil
}

// UpdateStatus applies the transition conditionally: the row only changes if
// it still holds the expected from status. A false return means another
// writer got there first.
func (r *RequisitionRepository) UpdateStatus(ctx context.Context, id int64, from, to model.RequisitionStatus) (bool, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&RequisitionEntity{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *RequisitionRepository) ListForUser(ctx context.Context, f model.RequisitionFilter) ([]*model.BloodRequisition, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&RequisitionEntity{})

	if f.RequesterID != nil {
		q = q.Where("requester_id = ?", *f.RequesterID)
	}
	if f.TenantID != nil {
		q = q.Where("tenant_id = ?", *f.TenantID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*RequisitionEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toRequisitionModels(entities), total, nil
}

// ListExpired returns ACTIVE requisitions whose expiry has passed, oldest
// first, for the sweep job.
func (r *RequisitionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.BloodRequisition, error) {
	if limit <= 0 {
		limit = 200
	}
	var entities []*RequisitionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("status = ? AND expires_at < ?", string(model.RequisitionActive), now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toRequisitionModels(entities), nil
}
