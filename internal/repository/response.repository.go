package repository

import (
	"context"
	"errors"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAlreadyResponded = errors.New("donor has already responded to this requisition")
	ErrResponseNotFound = errors.New("response not found")
)

type ResponseRepository struct {
	*pg.DB
}

func NewResponseRepository(db *pg.DB) *ResponseRepository {
	return &ResponseRepository{db}
}

// Create inserts a response, returning ErrAlreadyResponded when the
// (donor, requisition) pair already has one. One response per donor per
// requisition, on every path.
func (r *ResponseRepository) Create(ctx context.Context, resp *model.DonorResponse) (*model.DonorResponse, error) {
	entity := toResponseEntity(resp)

	result := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "donor_id"}, {Name: "requisition_id"}},
			DoNothing: true,
		}).
		Create(entity)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrAlreadyResponded
	}
	return toResponseModel(entity), nil
}

func (r *ResponseRepository) GetByDonorAndRequisition(ctx context.Context, donorID, requisitionID int64) (*model.DonorResponse, error) {
	var entity ResponseEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("donor_id = ? AND requisition_id = ?", donorID, requisitionID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResponseNotFound
		}
		return nil, err
	}
	return toResponseModel(&entity), nil
}

func (r *ResponseRepository) ListForRequisition(ctx context.Context, requisitionID int64) ([]*model.DonorResponse, error) {
	var entities []*ResponseEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("requisition_id = ?", requisitionID).
		Order("created_at ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toResponseModels(entities), nil
}

// Delete removes a donor's response so they can resubmit explicitly.
func (r *ResponseRepository) Delete(ctx context.Context, donorID, requisitionID int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Where("donor_id = ? AND requisition_id = ?", donorID, requisitionID).
		Delete(&ResponseEntity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrResponseNotFound
	}
	return nil
}
