package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/internal/requisition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRequisition(t *testing.T, repo *RequisitionRepository, requesterID int64, status model.RequisitionStatus, expiresAt time.Time) *model.BloodRequisition {
	t.Helper()
	req, err := repo.Create(context.Background(), &model.BloodRequisition{
		RequesterID:        requesterID,
		TenantID:           1,
		PatientName:        "J. Doe",
		HospitalName:       "City General",
		BloodGroup:         model.BloodGroupONeg,
		UnitsNeeded:        2,
		Urgency:            model.UrgencyHigh,
		Location:           "Dhaka",
		RequiredBy:         expiresAt,
		ExpiresAt:          expiresAt,
		AllowContactReveal: true,
		Status:             status,
	})
	require.NoError(t, err)
	return req
}

func TestRequisitionRepository_Get(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewRequisitionRepository(db)
	ctx := context.Background()

	req := seedRequisition(t, repo, 1, model.RequisitionActive, time.Now().Add(time.Hour))

	got, err := repo.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, model.RequisitionActive, got.Status)

	_, err = repo.Get(ctx, 9999)
	assert.ErrorIs(t, err, requisition.ErrNotFound)
}

func TestRequisitionRepository_UpdateStatus(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewRequisitionRepository(db)
	ctx := context.Background()

	req := seedRequisition(t, repo, 1, model.RequisitionActive, time.Now().Add(time.Hour))

	t.Run("conditional update succeeds once", func(t *testing.T) {
		ok, err := repo.UpdateStatus(ctx, req.ID, model.RequisitionActive, model.RequisitionFulfilled)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("second transition from stale status changes nothing", func(t *testing.T) {
		ok, err := repo.UpdateStatus(ctx, req.ID, model.RequisitionActive, model.RequisitionCancelled)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.Get(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RequisitionFulfilled, got.Status)
	})
}

func TestRequisitionRepository_ListForUser(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewRequisitionRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedRequisition(t, repo, 42, model.RequisitionActive, time.Now().Add(time.Hour))
	}
	seedRequisition(t, repo, 7, model.RequisitionActive, time.Now().Add(time.Hour))

	requester := int64(42)
	items, total, err := repo.ListForUser(ctx, model.RequisitionFilter{RequesterID: &requester})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 3)

	items, total, err = repo.ListForUser(ctx, model.RequisitionFilter{
		RequesterID: &requester,
		Statuses:    []model.RequisitionStatus{model.RequisitionCancelled},
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestRequisitionRepository_ListExpired(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewRequisitionRepository(db)
	ctx := context.Background()
	now := time.Now()

	overdue := seedRequisition(t, repo, 1, model.RequisitionActive, now.Add(-time.Hour))
	seedRequisition(t, repo, 1, model.RequisitionActive, now.Add(time.Hour))
	seedRequisition(t, repo, 1, model.RequisitionCancelled, now.Add(-time.Hour))

	items, err := repo.ListExpired(ctx, now, 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, overdue.ID, items[0].ID)
}
