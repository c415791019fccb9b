package requisition

import (
	"context"
	"testing"
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory Repository honoring the conditional-update
// contract of the real gorm implementation.
type fakeRepo struct {
	nextID int64
	store  map[int64]*model.BloodRequisition
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{store: make(map[int64]*model.BloodRequisition)}
}

func (r *fakeRepo) Create(_ context.Context, req *model.BloodRequisition) (*model.BloodRequisition, error) {
	r.nextID++
	cp := *req
	cp.ID = r.nextID
	cp.CreatedAt = time.Now()
	r.store[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeRepo) Get(_ context.Context, id int64) (*model.BloodRequisition, error) {
	req, ok := r.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id int64, from, to model.RequisitionStatus) (bool, error) {
	req, ok := r.store[id]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	return true, nil
}

func (r *fakeRepo) ListForUser(_ context.Context, f model.RequisitionFilter) ([]*model.BloodRequisition, int64, error) {
	var out []*model.BloodRequisition
	for _, req := range r.store {
		if f.RequesterID != nil && req.RequesterID != *f.RequesterID {
			continue
		}
		cp := *req
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*model.BloodRequisition, error) {
	var out []*model.BloodRequisition
	for _, req := range r.store {
		if req.Status == model.RequisitionActive && req.ExpiresAt.Before(now) {
			cp := *req
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// racingRepo simulates another writer cancelling the requisition between the
// service's read and its conditional update.
type racingRepo struct {
	*fakeRepo
}

func (r *racingRepo) UpdateStatus(ctx context.Context, id int64, from, to model.RequisitionStatus) (bool, error) {
	if from == model.RequisitionActive && to != model.RequisitionCancelled {
		r.store[id].Status = model.RequisitionCancelled
	}
	return r.fakeRepo.UpdateStatus(ctx, id, from, to)
}

func newTestService(repo Repository, now time.Time) *Service {
	s := NewService(repo)
	s.now = func() time.Time { return now }
	return s
}

func validCreateRequest(requiredBy time.Time) model.RequisitionCreateRequest {
	return model.RequisitionCreateRequest{
		RequesterID:        7,
		TenantID:           1,
		PatientName:        "J. Doe",
		HospitalName:       "City General",
		BloodGroup:         model.BloodGroupONeg,
		UnitsNeeded:        2,
		Urgency:            model.UrgencyHigh,
		Location:           "Dhaka",
		RequiredBy:         requiredBy,
		AllowContactReveal: true,
	}
}

func TestService_Create(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("expiry capped at 72h window", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), now)
		req, err := svc.Create(ctx, validCreateRequest(now.AddDate(0, 0, 10)))
		require.NoError(t, err)
		assert.Equal(t, now.Add(72*time.Hour), req.ExpiresAt)
		assert.Equal(t, model.RequisitionActive, req.Status)
	})

	t.Run("expiry follows earlier required-by date", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), now)
		requiredBy := now.Add(24 * time.Hour)
		req, err := svc.Create(ctx, validCreateRequest(requiredBy))
		require.NoError(t, err)
		assert.Equal(t, requiredBy, req.ExpiresAt)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), now)
		p := validCreateRequest(now.Add(time.Hour))
		p.UnitsNeeded = 0
		_, err := svc.Create(ctx, p)
		assert.Error(t, err)
	})
}

func TestService_Transitions(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("fulfill then cancel fails", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, now)
		req, err := svc.Create(ctx, validCreateRequest(now.Add(time.Hour)))
		require.NoError(t, err)

		require.NoError(t, svc.Fulfill(ctx, req.ID))

		err = svc.Cancel(ctx, req.ID)
		var terr *TransitionError
		require.ErrorAs(t, err, &terr)
	})

	t.Run("losing a concurrent transition yields stale-status error", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(&racingRepo{fakeRepo: repo}, now)
		svc.now = func() time.Time { return now }
		req, err := svc.Create(ctx, validCreateRequest(now.Add(time.Hour)))
		require.NoError(t, err)

		assert.ErrorIs(t, svc.Fulfill(ctx, req.ID), ErrStaleStatus)
	})

	t.Run("unknown requisition", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), now)
		assert.ErrorIs(t, svc.Fulfill(ctx, 404), ErrNotFound)
	})
}

func TestService_ExpireOverdue(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(repo, now)

	overdue, err := svc.Create(ctx, validCreateRequest(now.Add(time.Hour)))
	require.NoError(t, err)
	fresh, err := svc.Create(ctx, validCreateRequest(now.Add(48*time.Hour)))
	require.NoError(t, err)

	// Move the clock past the first requisition's expiry only.
	svc.now = func() time.Time { return now.Add(2 * time.Hour) }

	n, err := svc.ExpireOverdue(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.Get(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequisitionExpired, got.Status)

	got, err = svc.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequisitionActive, got.Status)
}

func TestService_Reuse(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	setup := func(t *testing.T) (*Service, *model.BloodRequisition) {
		repo := newFakeRepo()
		svc := newTestService(repo, now)
		req, err := svc.Create(ctx, validCreateRequest(now.Add(time.Hour)))
		require.NoError(t, err)
		return svc, req
	}

	t.Run("reuse of expired creates a fresh active requisition", func(t *testing.T) {
		svc, req := setup(t)
		require.NoError(t, svc.Expire(ctx, req.ID))

		fresh, err := svc.Reuse(ctx, req.ID, now.Add(24*time.Hour))
		require.NoError(t, err)
		assert.NotEqual(t, req.ID, fresh.ID)
		assert.Equal(t, model.RequisitionActive, fresh.Status)
		assert.Equal(t, req.BloodGroup, fresh.BloodGroup)

		// Original stays expired.
		orig, err := svc.Get(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RequisitionExpired, orig.Status)
	})

	t.Run("reuse of active is rejected", func(t *testing.T) {
		svc, req := setup(t)
		_, err := svc.Reuse(ctx, req.ID, now.Add(24*time.Hour))
		assert.ErrorIs(t, err, ErrNotExpired)
	})

	t.Run("reuse of cancelled is rejected", func(t *testing.T) {
		svc, req := setup(t)
		require.NoError(t, svc.Cancel(ctx, req.ID))
		_, err := svc.Reuse(ctx, req.ID, now.Add(24*time.Hour))
		assert.ErrorIs(t, err, ErrNotExpired)
	})
}
