package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPushConfig(t *testing.T, repo *TenantPushConfigRepository, tenantID int64) *model.TenantPushConfig {
	t.Helper()
	now := time.Now()
	cfg, err := repo.Upsert(context.Background(), &model.TenantPushConfig{
		TenantID:     tenantID,
		ProjectID:    "lifelink-demo",
		Credentials:  "aabb:ccdd",
		ProviderURL:  "https://push.example.com",
		DailyLimit:   100,
		MonthlyLimit: 1000,
		DailyResetAt: now,
		MonthResetAt: now,
		IsActive:     true,
		IsConfigured: true,
	})
	require.NoError(t, err)
	return cfg
}

func TestTenantPushConfigRepository_GetMasked(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTenantPushConfigRepository(db)
	ctx := context.Background()

	seedPushConfig(t, repo, 1)

	t.Run("read path never returns the blob", func(t *testing.T) {
		cfg, err := repo.GetMasked(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, model.MaskedSecret, cfg.Credentials)
		assert.Equal(t, "lifelink-demo", cfg.ProjectID)
	})

	t.Run("internal read keeps the blob for the gateway", func(t *testing.T) {
		cfg, err := repo.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "aabb:ccdd", cfg.Credentials)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := repo.Get(ctx, 404)
		assert.ErrorIs(t, err, ErrPushConfigNotFound)
	})
}

func TestTenantPushConfigRepository_IncrementCounters(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTenantPushConfigRepository(db)
	ctx := context.Background()

	seedPushConfig(t, repo, 1)

	for i := 0; i < 10; i++ {
		require.NoError(t, repo.IncrementCounters(ctx, 1, 5))
	}

	cfg, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), cfg.DailySent)
	assert.Equal(t, int64(50), cfg.MonthlySent)

	assert.ErrorIs(t, repo.IncrementCounters(ctx, 404, 1), ErrPushConfigNotFound)
}

func TestTenantPushConfigRepository_LazyResets(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTenantPushConfigRepository(db)
	ctx := context.Background()

	cfg := seedPushConfig(t, repo, 1)
	require.NoError(t, repo.IncrementCounters(ctx, 1, 42))

	t.Run("no reset inside the same day", func(t *testing.T) {
		did, err := repo.ResetDailyIfDue(ctx, 1, time.Now())
		require.NoError(t, err)
		assert.False(t, did)
	})

	t.Run("reset fires exactly once across a day boundary", func(t *testing.T) {
		tomorrow := time.Now().AddDate(0, 0, 1)

		var fired int
		for i := 0; i < 5; i++ {
			did, err := repo.ResetDailyIfDue(ctx, 1, tomorrow)
			require.NoError(t, err)
			if did {
				fired++
			}
		}
		assert.Equal(t, 1, fired)

		got, err := repo.Get(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, got.DailySent)
		assert.Equal(t, int64(42), got.MonthlySent, "monthly window untouched")
	})

	t.Run("monthly reset across a month boundary", func(t *testing.T) {
		nextMonth := cfg.MonthResetAt.AddDate(0, 1, 0)
		did, err := repo.ResetMonthlyIfDue(ctx, 1, nextMonth)
		require.NoError(t, err)
		assert.True(t, did)

		got, err := repo.Get(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, got.MonthlySent)
	})
}

func TestTenantPushConfigRepository_Upsert(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTenantPushConfigRepository(db)
	ctx := context.Background()

	seedPushConfig(t, repo, 1)
	require.NoError(t, repo.IncrementCounters(ctx, 1, 10))

	updated, err := repo.Upsert(ctx, &model.TenantPushConfig{
		TenantID:     1,
		ProjectID:    "lifelink-prod",
		Credentials:  "eeff:0011",
		ProviderURL:  "https://push.example.com",
		DailyLimit:   200,
		MonthlyLimit: 2000,
		IsActive:     true,
		IsConfigured: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "lifelink-prod", updated.ProjectID)

	// Counters survive a config update.
	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.DailySent)
	assert.Equal(t, int64(200), got.DailyLimit)
}

func TestTenantPushConfigRepository_MarkTested(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTenantPushConfigRepository(db)
	ctx := context.Background()

	seedPushConfig(t, repo, 1)

	require.NoError(t, repo.MarkTested(ctx, 1, time.Now()))
	cfg, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, cfg.LastTestedAt)

	assert.ErrorIs(t, repo.MarkTested(ctx, 404, time.Now()), ErrPushConfigNotFound)
}
