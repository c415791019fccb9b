package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/pkg/pg"
	"gorm.io/gorm/clause"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrEmptyBatch           = errors.New("notification batch is empty")
)

type NotificationRepository struct {
	*pg.DB
}

func NewNotificationRepository(db *pg.DB) *NotificationRepository {
	return &NotificationRepository{db}
}

// CreateBatch persists one row per recipient inside a single transaction.
// All-or-nothing: a partial failure rolls the whole batch back. A retried
// dispatch for the same (donor, requisition) pair upserts on the unique
// index rather than inserting a duplicate.
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []*model.DonorNotification) ([]*model.DonorNotification, error) {
	if len(notifications) == 0 {
		return nil, ErrEmptyBatch
	}

	entities := make([]*NotificationEntity, len(notifications))
	for i, n := range notifications {
		entities[i] = toNotificationEntity(n)
	}

	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		return r.Write(ctx).WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "donor_id"}, {Name: "requisition_id"}},
				// The unique index is partial, so the arbiter needs the same
				// predicate. Broadcast rows with a NULL requisition fall
				// outside it and always insert.
				TargetWhere: clause.Where{Exprs: []clause.Expression{
					clause.Expr{SQL: "requisition_id IS NOT NULL"},
				}},
				DoUpdates: clause.AssignmentColumns([]string{"batch_id", "title", "message", "status"}),
			}).
			Create(&entities).Error
	})
	if err != nil {
		return nil, err
	}
	return toNotificationModels(entities), nil
}

// MarkDelivery bulk-updates delivery status for a set of notification ids.
// Best-effort from the dispatcher's perspective; never touches created rows'
// content.
func (r *NotificationRepository) MarkDelivery(ctx context.Context, ids []int64, status model.DeliveryStatus, sentAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	updates := map[string]interface{}{"status": string(status)}
	if status == model.DeliverySent {
		updates["sent_at"] = sentAt
	}

	return r.Write(ctx).WithContext(ctx).
		Model(&NotificationEntity{}).
		Where("id IN ?", ids).
		Updates(updates).Error
}

func (r *NotificationRepository) ListForDonor(ctx context.Context, donorID int64, limit, offset int) ([]*model.DonorNotification, int64, error) {
	q := r.Read(ctx).WithContext(ctx).
		Model(&NotificationEntity{}).
		Where("donor_id = ?", donorID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var entities []*NotificationEntity
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toNotificationModels(entities), total, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, donorID int64, readAt time.Time) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&NotificationEntity{}).
		Where("id = ? AND donor_id = ? AND read_at IS NULL", id, donorID).
		Update("read_at", readAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := r.Read(ctx).WithContext(ctx).
			Model(&NotificationEntity{}).
			Where("id = ? AND donor_id = ?", id, donorID).
			Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotificationNotFound
		}
	}
	return nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, donorID int64) (int64, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&NotificationEntity{}).
		Where("donor_id = ? AND read_at IS NULL", donorID).
		Count(&count).Error
	return count, err
}

// GetByBatch returns a batch's rows keyed by donor id, used by the
// dispatcher to map per-token outcomes back onto rows.
func (r *NotificationRepository) GetByBatch(ctx context.Context, batchID string) ([]*model.DonorNotification, error) {
	var entities []*NotificationEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("batch_id = ?", batchID).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toNotificationModels(entities), nil
}
