package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDonor(t *testing.T, repo *DonorRepository, userID int64, group model.BloodGroup, lastDonation *time.Time) *model.DonorProfile {
	t.Helper()
	donor, err := repo.Create(context.Background(), &model.DonorProfile{
		UserID:         userID,
		TenantID:       1,
		BloodGroup:     group,
		Location:       "Dhaka",
		ContactPhone:   "+8801700000000",
		IsDonor:        true,
		IsActive:       true,
		ContactVisible: true,
		LastDonation:   lastDonation,
	})
	require.NoError(t, err)
	return donor
}

func TestDonorRepository_FindAvailable(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewDonorRepository(db)
	ctx := context.Background()
	now := time.Now()

	recent := now.AddDate(0, 0, -10)
	old := now.AddDate(0, 0, -120)

	eligible := seedDonor(t, repo, 1, model.BloodGroupONeg, nil)
	seedDonor(t, repo, 2, model.BloodGroupONeg, &recent) // inside cooldown
	veteran := seedDonor(t, repo, 3, model.BloodGroupONeg, &old)
	seedDonor(t, repo, 4, model.BloodGroupAPos, &old) // wrong group

	t.Run("filters by group and cooldown", func(t *testing.T) {
		cards, err := repo.FindAvailable(ctx, model.DonorFilter{
			BloodGroups: []model.BloodGroup{model.BloodGroupONeg},
		}, 90, now)
		require.NoError(t, err)
		require.Len(t, cards, 2)

		ids := []int64{cards[0].DonorID, cards[1].DonorID}
		assert.ElementsMatch(t, []int64{eligible.ID, veteran.ID}, ids)
	})

	t.Run("location filter", func(t *testing.T) {
		loc := "Chittagong"
		cards, err := repo.FindAvailable(ctx, model.DonorFilter{
			BloodGroups: []model.BloodGroup{model.BloodGroupONeg},
			Location:    &loc,
		}, 90, now)
		require.NoError(t, err)
		assert.Empty(t, cards)
	})

	t.Run("inactive donors are skipped", func(t *testing.T) {
		require.NoError(t, repo.Deactivate(ctx, eligible.ID))
		cards, err := repo.FindAvailable(ctx, model.DonorFilter{
			BloodGroups: []model.BloodGroup{model.BloodGroupONeg},
		}, 90, now)
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assert.Equal(t, veteran.ID, cards[0].DonorID)
	})

	t.Run("empty group set is invalid", func(t *testing.T) {
		_, err := repo.FindAvailable(ctx, model.DonorFilter{}, 90, now)
		assert.Error(t, err)
	})
}

func TestDonorRepository_RecordDonation(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewDonorRepository(db)
	ctx := context.Background()

	donor := seedDonor(t, repo, 1, model.BloodGroupBPos, nil)
	donatedAt := time.Now()

	require.NoError(t, repo.RecordDonation(ctx, donor.ID, 2, donatedAt))

	got, err := repo.Get(ctx, donor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.DonationCount)
	assert.Equal(t, 2, got.UnitsDonated)
	require.NotNil(t, got.LastDonation)

	assert.ErrorIs(t, repo.RecordDonation(ctx, 9999, 1, donatedAt), ErrDonorNotFound)
}

func TestDonorRepository_DeviceTokens(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewDonorRepository(db)
	ctx := context.Background()

	a := seedDonor(t, repo, 1, model.BloodGroupONeg, nil)
	b := seedDonor(t, repo, 2, model.BloodGroupONeg, nil)
	c := seedDonor(t, repo, 3, model.BloodGroupONeg, nil)

	_, err := repo.AddDeviceToken(ctx, a.ID, "tok-a1", "android")
	require.NoError(t, err)
	_, err = repo.AddDeviceToken(ctx, a.ID, "tok-a2", "ios")
	require.NoError(t, err)
	_, err = repo.AddDeviceToken(ctx, b.ID, "tok-b1", "android")
	require.NoError(t, err)

	t.Run("resolves tokens per donor", func(t *testing.T) {
		tokens, err := repo.ActiveTokens(ctx, []int64{a.ID, b.ID, c.ID})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"tok-a1", "tok-a2"}, tokens[a.ID])
		assert.Equal(t, []string{"tok-b1"}, tokens[b.ID])
		_, ok := tokens[c.ID]
		assert.False(t, ok, "donor without tokens must be absent")
	})

	t.Run("deactivated tokens disappear", func(t *testing.T) {
		n, err := repo.DeactivateTokens(ctx, []string{"tok-a1", "tok-b1", "tok-unknown"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		tokens, err := repo.ActiveTokens(ctx, []int64{a.ID, b.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{"tok-a2"}, tokens[a.ID])
		_, ok := tokens[b.ID]
		assert.False(t, ok)
	})

	t.Run("empty inputs are no-ops", func(t *testing.T) {
		tokens, err := repo.ActiveTokens(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, tokens)

		n, err := repo.DeactivateTokens(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
