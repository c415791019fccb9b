package model

import "time"

type NotificationType string

const (
	NotificationEmergency NotificationType = "EMERGENCY"
	NotificationBroadcast NotificationType = "BROADCAST"
	NotificationReminder  NotificationType = "REMINDER"
	NotificationResponse  NotificationType = "RESPONSE"
)

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "PENDING"
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryFailed  DeliveryStatus = "FAILED"
)

// DonorNotification is one in-app notification row per recipient. The row is
// the durable record; push delivery status is tracked best-effort on top.
type DonorNotification struct {
	ID            int64            `json:"id"`
	DonorID       int64            `json:"donor_id"`
	RequisitionID *int64           `json:"requisition_id,omitempty"`
	TenantID      int64            `json:"tenant_id"`
	BatchID       string           `json:"batch_id"`
	Type          NotificationType `json:"type"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	Status        DeliveryStatus   `json:"status"`
	SentAt        *time.Time       `json:"sent_at,omitempty"`
	ReadAt        *time.Time       `json:"read_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// DeviceToken is a registered push channel for a donor's device.
type DeviceToken struct {
	ID        int64     `json:"id"`
	DonorID   int64     `json:"donor_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
