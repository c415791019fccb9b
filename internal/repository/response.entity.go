package repository

import (
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
)

type ResponseEntity struct {
	ID                int64     `db:"id"                  gorm:"primaryKey;autoIncrement;column:id"`
	DonorID           int64     `db:"donor_id"            gorm:"column:donor_id;not null;index:idx_responses_donor_req,unique,priority:1"`
	RequisitionID     int64     `db:"requisition_id"      gorm:"column:requisition_id;not null;index:idx_responses_donor_req,unique,priority:2"`
	Response          string    `db:"response"            gorm:"column:response;not null"`
	Message           string    `db:"message"             gorm:"column:message"`
	ContactPhone      *string   `db:"contact_phone"       gorm:"column:contact_phone"`
	IsContactRevealed bool      `db:"is_contact_revealed" gorm:"column:is_contact_revealed;not null;default:false"`
	CreatedAt         time.Time `db:"created_at"          gorm:"column:created_at;autoCreateTime"`
}

func (ResponseEntity) TableName() string {
	return "donor_responses"
}

func toResponseEntity(m *model.DonorResponse) *ResponseEntity {
	if m == nil {
		return nil
	}
	return &ResponseEntity{
		ID:                m.ID,
		DonorID:           m.DonorID,
		RequisitionID:     m.RequisitionID,
		Response:          string(m.Response),
		Message:           m.Message,
		ContactPhone:      m.ContactPhone,
		IsContactRevealed: m.IsContactRevealed,
		CreatedAt:         m.CreatedAt,
	}
}

func toResponseModel(e *ResponseEntity) *model.DonorResponse {
	if e == nil {
		return nil
	}
	return &model.DonorResponse{
		ID:                e.ID,
		DonorID:           e.DonorID,
		RequisitionID:     e.RequisitionID,
		Response:          model.ResponseKind(e.Response),
		Message:           e.Message,
		ContactPhone:      e.ContactPhone,
		IsContactRevealed: e.IsContactRevealed,
		CreatedAt:         e.CreatedAt,
	}
}

func toResponseModels(entities []*ResponseEntity) []*model.DonorResponse {
	if entities == nil {
		return nil
	}
	models := make([]*model.DonorResponse, len(entities))
	for i, e := range entities {
		models[i] = toResponseModel(e)
	}
	return models
}
