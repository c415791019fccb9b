package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDonorRepo struct {
	donors      map[int64]*model.DonorProfile
	tokens      []string
	donations   int
	deactivated []int64
	donationErr error
	inTx        bool
	txRollback  bool
}

func newFakeDonorRepo() *fakeDonorRepo {
	return &fakeDonorRepo{donors: make(map[int64]*model.DonorProfile)}
}

func (r *fakeDonorRepo) Create(_ context.Context, donor *model.DonorProfile) (*model.DonorProfile, error) {
	cp := *donor
	cp.ID = int64(len(r.donors) + 1)
	r.donors[cp.ID] = &cp
	return &cp, nil
}

func (r *fakeDonorRepo) Get(_ context.Context, id int64) (*model.DonorProfile, error) {
	d, ok := r.donors[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func (r *fakeDonorRepo) RecordDonation(_ context.Context, donorID int64, units int, donatedAt time.Time) error {
	if r.donationErr != nil {
		return r.donationErr
	}
	d, ok := r.donors[donorID]
	if !ok {
		return errors.New("not found")
	}
	d.DonationCount++
	d.UnitsDonated += units
	d.LastDonation = &donatedAt
	r.donations++
	return nil
}

func (r *fakeDonorRepo) Deactivate(_ context.Context, donorID int64) error {
	r.deactivated = append(r.deactivated, donorID)
	return nil
}

func (r *fakeDonorRepo) AddDeviceToken(_ context.Context, donorID int64, token, platform string) (*model.DeviceToken, error) {
	r.tokens = append(r.tokens, token)
	return &model.DeviceToken{ID: int64(len(r.tokens)), DonorID: donorID, Token: token, Platform: platform, IsActive: true}, nil
}

func (r *fakeDonorRepo) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.inTx = true
	err := fn(ctx)
	r.inTx = false
	if err != nil {
		r.txRollback = true
	}
	return err
}

type fakeCloser struct {
	fulfilled []int64
	err       error
}

func (c *fakeCloser) Fulfill(_ context.Context, id int64) error {
	if c.err != nil {
		return c.err
	}
	c.fulfilled = append(c.fulfilled, id)
	return nil
}

func TestDonorService_Register(t *testing.T) {
	repo := newFakeDonorRepo()
	svc := NewDonorService(repo, &fakeCloser{})

	t.Run("valid donor is activated", func(t *testing.T) {
		d, err := svc.Register(context.Background(), &model.DonorProfile{UserID: 10, BloodGroup: model.BloodGroupAPos})
		require.NoError(t, err)
		assert.True(t, d.IsActive)
		assert.True(t, d.IsDonor)
	})

	t.Run("unknown blood group is rejected", func(t *testing.T) {
		_, err := svc.Register(context.Background(), &model.DonorProfile{UserID: 11, BloodGroup: "X+"})
		assert.ErrorIs(t, err, ErrInvalidBloodGroup)
	})
}

func TestDonorService_RegisterDeviceToken(t *testing.T) {
	repo := newFakeDonorRepo()
	svc := NewDonorService(repo, &fakeCloser{})
	d, err := svc.Register(context.Background(), &model.DonorProfile{UserID: 10, BloodGroup: model.BloodGroupAPos})
	require.NoError(t, err)

	tok, err := svc.RegisterDeviceToken(context.Background(), d.ID, " tok-1 ", "android")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.Token)

	_, err = svc.RegisterDeviceToken(context.Background(), d.ID, "   ", "android")
	assert.ErrorIs(t, err, ErrEmptyToken)

	_, err = svc.RegisterDeviceToken(context.Background(), 999, "tok-2", "android")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDonorService_RecordDonation(t *testing.T) {
	ctx := context.Background()

	t.Run("updates counters and fulfills the requisition together", func(t *testing.T) {
		repo := newFakeDonorRepo()
		closer := &fakeCloser{}
		svc := NewDonorService(repo, closer)
		d, err := svc.Register(ctx, &model.DonorProfile{UserID: 10, BloodGroup: model.BloodGroupAPos})
		require.NoError(t, err)

		reqID := int64(55)
		require.NoError(t, svc.RecordDonation(ctx, d.ID, 2, &reqID))

		stored := repo.donors[d.ID]
		assert.Equal(t, 1, stored.DonationCount)
		assert.Equal(t, 2, stored.UnitsDonated)
		assert.NotNil(t, stored.LastDonation)
		assert.Equal(t, []int64{55}, closer.fulfilled)
	})

	t.Run("fulfillment failure rolls the donation back", func(t *testing.T) {
		repo := newFakeDonorRepo()
		closer := &fakeCloser{err: errors.New("already closed")}
		svc := NewDonorService(repo, closer)
		d, err := svc.Register(ctx, &model.DonorProfile{UserID: 10, BloodGroup: model.BloodGroupAPos})
		require.NoError(t, err)

		reqID := int64(55)
		err = svc.RecordDonation(ctx, d.ID, 2, &reqID)
		require.Error(t, err)
		assert.True(t, repo.txRollback)
	})

	t.Run("zero units rejected", func(t *testing.T) {
		repo := newFakeDonorRepo()
		svc := NewDonorService(repo, &fakeCloser{})
		assert.ErrorIs(t, svc.RecordDonation(ctx, 1, 0, nil), ErrInvalidUnits)
	})
}
