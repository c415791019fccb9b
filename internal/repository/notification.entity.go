package repository

import (
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
)

type NotificationEntity struct {
	ID            int64      `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	DonorID       int64      `db:"donor_id"       gorm:"column:donor_id;not null;index:idx_notifications_donor_req,unique,priority:1"`
	RequisitionID *int64     `db:"requisition_id" gorm:"column:requisition_id;index:idx_notifications_donor_req,unique,priority:2,where:requisition_id IS NOT NULL"`
	TenantID      int64      `db:"tenant_id"      gorm:"column:tenant_id;not null;index"`
	BatchID       string     `db:"batch_id"       gorm:"column:batch_id;not null;index"`
	Type          string     `db:"type"           gorm:"column:type;not null"`
	Title         string     `db:"title"          gorm:"column:title;not null"`
	Message       string     `db:"message"        gorm:"column:message;not null"`
	Status        string     `db:"status"         gorm:"column:status;not null;default:PENDING"`
	SentAt        *time.Time `db:"sent_at"        gorm:"column:sent_at"`
	ReadAt        *time.Time `db:"read_at"        gorm:"column:read_at"`
	CreatedAt     time.Time  `db:"created_at"     gorm:"column:created_at;autoCreateTime"`
}

func (NotificationEntity) TableName() string {
	return "donor_notifications"
}

func toNotificationEntity(m *model.DonorNotification) *NotificationEntity {
	if m == nil {
		return nil
	}
	return &NotificationEntity{
		ID:            m.ID,
		DonorID:       m.DonorID,
		RequisitionID: m.RequisitionID,
		TenantID:      m.TenantID,
		BatchID:       m.BatchID,
		Type:          string(m.Type),
		Title:         m.Title,
		Message:       m.Message,
		Status:        string(m.Status),
		SentAt:        m.SentAt,
		ReadAt:        m.ReadAt,
		CreatedAt:     m.CreatedAt,
	}
}

func toNotificationModel(e *NotificationEntity) *model.DonorNotification {
	if e == nil {
		return nil
	}
	return &model.DonorNotification{
		ID:            e.ID,
		DonorID:       e.DonorID,
		RequisitionID: e.RequisitionID,
		TenantID:      e.TenantID,
		BatchID:       e.BatchID,
		Type:          model.NotificationType(e.Type),
		Title:         e.Title,
		Message:       e.Message,
		Status:        model.DeliveryStatus(e.Status),
		SentAt:        e.SentAt,
		ReadAt:        e.ReadAt,
		CreatedAt:     e.CreatedAt,
	}
}

func toNotificationModels(entities []*NotificationEntity) []*model.DonorNotification {
	if entities == nil {
		return nil
	}
	models := make([]*model.DonorNotification, len(entities))
	for i, e := range entities {
		models[i] = toNotificationModel(e)
	}
	return models
}
