package repository

import (
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
)

type TenantPushConfigEntity struct {
	TenantID     int64      `db:"tenant_id"      gorm:"primaryKey;column:tenant_id"`
	ProjectID    string     `db:"project_id"     gorm:"column:project_id"`
	Credentials  string     `db:"credentials"    gorm:"column:credentials"`
	ProviderURL  string     `db:"provider_url"   gorm:"column:provider_url"`
	DailyLimit   int64      `db:"daily_limit"    gorm:"column:daily_limit;not null;default:0"`
	MonthlyLimit int64      `db:"monthly_limit"  gorm:"column:monthly_limit;not null;default:0"`
	DailySent    int64      `db:"daily_sent"     gorm:"column:daily_sent;not null;default:0"`
	MonthlySent  int64      `db:"monthly_sent"   gorm:"column:monthly_sent;not null;default:0"`
	DailyResetAt time.Time  `db:"daily_reset_at" gorm:"column:daily_reset_at"`
	MonthResetAt time.Time  `db:"month_reset_at" gorm:"column:month_reset_at"`
	IsActive     bool       `db:"is_active"      gorm:"column:is_active;not null;default:false"`
	IsConfigured bool       `db:"is_configured"  gorm:"column:is_configured;not null;default:false"`
	LastTestedAt *time.Time `db:"last_tested_at" gorm:"column:last_tested_at"`
	CreatedAt    time.Time  `db:"created_at"     gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `db:"updated_at"     gorm:"column:updated_at;autoUpdateTime"`
}

func (TenantPushConfigEntity) TableName() string {
	return "tenant_push_configs"
}

func toTenantPushConfigEntity(m *model.TenantPushConfig) *TenantPushConfigEntity {
	if m == nil {
		return nil
	}
	return &TenantPushConfigEntity{
		TenantID:     m.TenantID,
		ProjectID:    m.ProjectID,
		Credentials:  m.Credentials,
		ProviderURL:  m.ProviderURL,
		DailyLimit:   m.DailyLimit,
		MonthlyLimit: m.MonthlyLimit,
		DailySent:    m.DailySent,
		MonthlySent:  m.MonthlySent,
		DailyResetAt: m.DailyResetAt,
		MonthResetAt: m.MonthResetAt,
		IsActive:     m.IsActive,
		IsConfigured: m.IsConfigured,
		LastTestedAt: m.LastTestedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toTenantPushConfigModel(e *TenantPushConfigEntity) *model.TenantPushConfig {
	if e == nil {
		return nil
	}
	return &model.TenantPushConfig{
		TenantID:     e.TenantID,
		ProjectID:    e.ProjectID,
		Credentials:  e.Credentials,
		ProviderURL:  e.ProviderURL,
		DailyLimit:   e.DailyLimit,
		MonthlyLimit: e.MonthlyLimit,
		DailySent:    e.DailySent,
		MonthlySent:  e.MonthlySent,
		DailyResetAt: e.DailyResetAt,
		MonthResetAt: e.MonthResetAt,
		IsActive:     e.IsActive,
		IsConfigured: e.IsConfigured,
		LastTestedAt: e.LastTestedAt,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}
