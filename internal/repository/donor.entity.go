package repository

import (
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
)

type DonorProfileEntity struct {
	ID             int64      `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	UserID         int64      `db:"user_id"         gorm:"column:user_id;not null;uniqueIndex"`
	TenantID       int64      `db:"tenant_id"       gorm:"column:tenant_id;not null;index"`
	BloodGroup     string     `db:"blood_group"     gorm:"column:blood_group;not null;index"`
	Location       string     `db:"location"        gorm:"column:location;index"`
	ContactPhone   string     `db:"contact_phone"   gorm:"column:contact_phone"`
	IsDonor        bool       `db:"is_donor"        gorm:"column:is_donor;not null;default:false"`
	IsActive       bool       `db:"is_active"       gorm:"column:is_active;not null;default:true"`
	ContactVisible bool       `db:"contact_visible" gorm:"column:contact_visible;not null;default:false"`
	LastDonation   *time.Time `db:"last_donation"   gorm:"column:last_donation"`
	DonationCount  int        `db:"donation_count"  gorm:"column:donation_count;not null;default:0"`
	UnitsDonated   int        `db:"units_donated"   gorm:"column:units_donated;not null;default:0"`
	CreatedAt      time.Time  `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `db:"updated_at"      gorm:"column:updated_at;autoUpdateTime"`
}

func (DonorProfileEntity) TableName() string {
	return "donor_profiles"
}

type DeviceTokenEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	DonorID   int64     `db:"donor_id"   gorm:"column:donor_id;not null;index"`
	Token     string    `db:"token"      gorm:"column:token;not null;uniqueIndex"`
	Platform  string    `db:"platform"   gorm:"column:platform"`
	IsActive  bool      `db:"is_active"  gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (DeviceTokenEntity) TableName() string {
	return "device_tokens"
}

func toDonorProfileEntity(m *model.DonorProfile) *DonorProfileEntity {
	if m == nil {
		return nil
	}
	return &DonorProfileEntity{
		ID:             m.ID,
		UserID:         m.UserID,
		TenantID:       m.TenantID,
		BloodGroup:     string(m.BloodGroup),
		Location:       m.Location,
		ContactPhone:   m.ContactPhone,
		IsDonor:        m.IsDonor,
		IsActive:       m.IsActive,
		ContactVisible: m.ContactVisible,
		LastDonation:   m.LastDonation,
		DonationCount:  m.DonationCount,
		UnitsDonated:   m.UnitsDonated,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toDonorProfileModel(e *DonorProfileEntity) *model.DonorProfile {
	if e == nil {
		return nil
	}
	return &model.DonorProfile{
		ID:             e.ID,
		UserID:         e.UserID,
		TenantID:       e.TenantID,
		BloodGroup:     model.BloodGroup(e.BloodGroup),
		Location:       e.Location,
		ContactPhone:   e.ContactPhone,
		IsDonor:        e.IsDonor,
		IsActive:       e.IsActive,
		ContactVisible: e.ContactVisible,
		LastDonation:   e.LastDonation,
		DonationCount:  e.DonationCount,
		UnitsDonated:   e.UnitsDonated,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func toDeviceTokenModel(e *DeviceTokenEntity) *model.DeviceToken {
	if e == nil {
		return nil
	}
	return &model.DeviceToken{
		ID:        e.ID,
		DonorID:   e.DonorID,
		Token:     e.Token,
		Platform:  e.Platform,
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt,
	}
}
