package repository

import (
	"context"
	"testing"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewResponseRepository(db)
	ctx := context.Background()

	phone := "+8801700000000"
	resp := &model.DonorResponse{
		DonorID:           1,
		RequisitionID:     10,
		Response:          model.ResponseWilling,
		Message:           "on my way",
		ContactPhone:      &phone,
		IsContactRevealed: true,
	}

	created, err := repo.Create(ctx, resp)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsContactRevealed)

	t.Run("duplicate pair is rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.DonorResponse{
			DonorID:       1,
			RequisitionID: 10,
			Response:      model.ResponseNotAvailable,
		})
		assert.ErrorIs(t, err, ErrAlreadyResponded)
	})

	t.Run("same donor may answer other requisitions", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.DonorResponse{
			DonorID:       1,
			RequisitionID: 11,
			Response:      model.ResponseNotAvailable,
		})
		assert.NoError(t, err)
	})
}

func TestResponseRepository_GetAndList(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewResponseRepository(db)
	ctx := context.Background()

	for donor := int64(1); donor <= 3; donor++ {
		_, err := repo.Create(ctx, &model.DonorResponse{
			DonorID:       donor,
			RequisitionID: 50,
			Response:      model.ResponseWilling,
		})
		require.NoError(t, err)
	}

	got, err := repo.GetByDonorAndRequisition(ctx, 2, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.DonorID)

	_, err = repo.GetByDonorAndRequisition(ctx, 9, 50)
	assert.ErrorIs(t, err, ErrResponseNotFound)

	all, err := repo.ListForRequisition(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestResponseRepository_Delete(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewResponseRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.DonorResponse{
		DonorID:       1,
		RequisitionID: 60,
		Response:      model.ResponseNotAvailable,
	})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, 1, 60))
	assert.ErrorIs(t, repo.Delete(ctx, 1, 60), ErrResponseNotFound)

	// Retract-then-resubmit is the sanctioned way to change a response.
	_, err = repo.Create(ctx, &model.DonorResponse{
		DonorID:       1,
		RequisitionID: 60,
		Response:      model.ResponseWilling,
	})
	assert.NoError(t, err)
}
