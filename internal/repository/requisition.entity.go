package repository

import (
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
)

type RequisitionEntity struct {
	ID                 int64     `db:"id"                   gorm:"primaryKey;autoIncrement;column:id"`
	RequesterID        int64     `db:"requester_id"         gorm:"column:requester_id;not null;index"`
	TenantID           int64     `db:"tenant_id"            gorm:"column:tenant_id;not null;index"`
	PatientName        string    `db:"patient_name"         gorm:"column:patient_name"`
	HospitalName       string    `db:"hospital_name"        gorm:"column:hospital_name"`
	BloodGroup         string    `db:"blood_group"          gorm:"column:blood_group;not null"`
	UnitsNeeded        int       `db:"units_needed"         gorm:"column:units_needed;not null"`
	Urgency            string    `db:"urgency"              gorm:"column:urgency;not null"`
	Location           string    `db:"location"             gorm:"column:location"`
	RequiredBy         time.Time `db:"required_by"          gorm:"column:required_by;not null"`
	ExpiresAt          time.Time `db:"expires_at"           gorm:"column:expires_at;not null;index"`
	AllowContactReveal bool      `db:"allow_contact_reveal" gorm:"column:allow_contact_reveal;not null;default:false"`
	Status             string    `db:"status"               gorm:"column:status;not null;index;default:ACTIVE"`
	CreatedAt          time.Time `db:"created_at"           gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `db:"updated_at"           gorm:"column:updated_at;autoUpdateTime"`
}

func (RequisitionEntity) TableName() string {
	return "blood_requisitions"
}

func toRequisitionEntity(m *model.BloodRequisition) *RequisitionEntity {
	if m == nil {
		return nil
	}
	return &RequisitionEntity{
		ID:                 m.ID,
		RequesterID:        m.RequesterID,
		TenantID:           m.TenantID,
		PatientName:        m.PatientName,
		HospitalName:       m.HospitalName,
		BloodGroup:         string(m.BloodGroup),
		UnitsNeeded:        m.UnitsNeeded,
		Urgency:            string(m.Urgency),
		Location:           m.Location,
		RequiredBy:         m.RequiredBy,
		ExpiresAt:          m.ExpiresAt,
		AllowContactReveal: m.AllowContactReveal,
		Status:             string(m.Status),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toRequisitionModel(e *RequisitionEntity) *model.BloodRequisition {
	if e == nil {
		return nil
	}
	return &model.BloodRequisition{
		ID:                 e.ID,
		RequesterID:        e.RequesterID,
		TenantID:           e.TenantID,
		PatientName:        e.PatientName,
		HospitalName:       e.HospitalName,
		BloodGroup:         model.BloodGroup(e.BloodGroup),
		UnitsNeeded:        e.UnitsNeeded,
		Urgency:            model.Urgency(e.Urgency),
		Location:           e.Location,
		RequiredBy:         e.RequiredBy,
		ExpiresAt:          e.ExpiresAt,
		AllowContactReveal: e.AllowContactReveal,
		Status:             model.RequisitionStatus(e.Status),
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

func toRequisitionModels(entities []*RequisitionEntity) []*model.BloodRequisition {
	if entities == nil {
		return nil
	}
	models := make([]*model.BloodRequisition, len(entities))
	for i, e := range entities {
		models[i] = toRequisitionModel(e)
	}
	return models
}
