package dispatch

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	gateway "github.com/lifelink/donor-gateway/internal/gateways"
	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	created   []*model.DonorNotification
	marked    map[model.DeliveryStatus][]int64
	createErr error
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{marked: make(map[model.DeliveryStatus][]int64)}
}

func (s *fakeStore) CreateBatch(_ context.Context, notifications []*model.DonorNotification) ([]*model.DonorNotification, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	for _, n := range notifications {
		s.nextID++
		n.ID = s.nextID
		s.created = append(s.created, n)
	}
	return notifications, nil
}

func (s *fakeStore) MarkDelivery(_ context.Context, ids []int64, status model.DeliveryStatus, _ time.Time) error {
	s.marked[status] = append(s.marked[status], ids...)
	return nil
}

type fakeDirectory struct {
	tokens      map[int64][]string
	deactivated []string
}

func (d *fakeDirectory) ActiveTokens(_ context.Context, donorIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string)
	for _, id := range donorIDs {
		if toks, ok := d.tokens[id]; ok {
			out[id] = toks
		}
	}
	return out, nil
}

func (d *fakeDirectory) DeactivateTokens(_ context.Context, tokens []string) (int64, error) {
	d.deactivated = append(d.deactivated, tokens...)
	return int64(len(tokens)), nil
}

type fakeGateway struct {
	client     *gateway.Client
	resolveErr error
	sendErr    error
	sent       [][]string
	// failTokens marks tokens that come back as failed; invalidTokens as dead.
	failTokens    map[string]bool
	invalidTokens map[string]bool
}

func (g *fakeGateway) ResolveClient(_ context.Context, _ int64) (*gateway.Client, error) {
	if g.resolveErr != nil {
		return nil, g.resolveErr
	}
	if g.client != nil {
		return g.client, nil
	}
	return &gateway.Client{Scope: gateway.ScopeTenant, TenantID: 1}, nil
}

func (g *fakeGateway) SendToTokens(_ context.Context, _ *gateway.Client, tokens []string, _ *gateway.PushMessage) (*gateway.MulticastResult, error) {
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	g.sent = append(g.sent, tokens)
	res := &gateway.MulticastResult{}
	for _, tok := range tokens {
		switch {
		case g.invalidTokens[tok]:
			res.FailureCount++
			res.InvalidTokens = append(res.InvalidTokens, tok)
			res.Results = append(res.Results, gateway.TokenResult{Token: tok, ErrorCode: "UNREGISTERED"})
		case g.failTokens[tok]:
			res.FailureCount++
			res.Results = append(res.Results, gateway.TokenResult{Token: tok, ErrorCode: "TRANSIENT"})
		default:
			res.SuccessCount++
			res.Results = append(res.Results, gateway.TokenResult{Token: tok, OK: true})
		}
	}
	return res, nil
}

type fakeCache struct {
	deleted []string
}

func (c *fakeCache) Del(key string) error {
	c.deleted = append(c.deleted, key)
	return nil
}

func emergencyRequest(recipients ...int64) DispatchRequest {
	reqID := int64(55)
	return DispatchRequest{
		RecipientIDs:  recipients,
		RequisitionID: &reqID,
		TenantID:      1,
		Type:          model.NotificationEmergency,
		Title:         "Urgent O- request",
		Message:       "City General needs 3 units",
		Priority:      "high",
	}
}

func TestDispatchValidation(t *testing.T) {
	d := New(newFakeStore(), &fakeDirectory{}, &fakeGateway{}, nil)

	_, err := d.Dispatch(context.Background(), DispatchRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrNoRecipients)

	_, err = d.Dispatch(context.Background(), DispatchRequest{RecipientIDs: []int64{1}})
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("row per recipient, push only where channels exist", func(t *testing.T) {
		store := newFakeStore()
		dir := &fakeDirectory{tokens: map[int64][]string{
			1: {"tok-a"},
			2: {"tok-b"},
		}}
		gw := &fakeGateway{}
		cache := &fakeCache{}
		d := New(store, dir, gw, cache)

		res, err := d.Dispatch(ctx, emergencyRequest(1, 2, 3))
		require.NoError(t, err)

		assert.NotEmpty(t, res.BatchID)
		assert.Equal(t, 2, res.NotificationsSent)
		assert.Equal(t, 0, res.Failures)
		assert.Equal(t, 1, res.NoChannel)

		require.Len(t, store.created, 3)
		for _, row := range store.created {
			assert.Equal(t, res.BatchID, row.BatchID)
			assert.Equal(t, model.DeliveryPending, row.Status)
		}

		sent := store.marked[model.DeliverySent]
		sort.Slice(sent, func(i, j int) bool { return sent[i] < sent[j] })
		assert.Equal(t, []int64{1, 2}, sent)
		assert.Empty(t, store.marked[model.DeliveryFailed])

		assert.Contains(t, cache.deleted, NotificationListKey(3))
		assert.Contains(t, cache.deleted, UnreadCountKey(3))
		assert.Len(t, cache.deleted, 6)
	})

	t.Run("invalid tokens are removed from the directory", func(t *testing.T) {
		store := newFakeStore()
		dir := &fakeDirectory{tokens: map[int64][]string{
			1: {"tok-dead"},
			2: {"tok-live"},
		}}
		gw := &fakeGateway{invalidTokens: map[string]bool{"tok-dead": true}}
		d := New(store, dir, gw, nil)

		res, err := d.Dispatch(ctx, emergencyRequest(1, 2))
		require.NoError(t, err)

		assert.Equal(t, 1, res.NotificationsSent)
		assert.Equal(t, 1, res.Failures)
		assert.Equal(t, 1, res.InvalidTokensRemoved)
		assert.Equal(t, []string{"tok-dead"}, dir.deactivated)
	})

	t.Run("one live token out of several still counts delivered", func(t *testing.T) {
		store := newFakeStore()
		dir := &fakeDirectory{tokens: map[int64][]string{
			1: {"tok-old", "tok-new"},
		}}
		gw := &fakeGateway{failTokens: map[string]bool{"tok-old": true}}
		d := New(store, dir, gw, nil)

		res, err := d.Dispatch(ctx, emergencyRequest(1))
		require.NoError(t, err)
		assert.Equal(t, 1, res.NotificationsSent)
		assert.Equal(t, 0, res.Failures)
	})

	t.Run("push failure keeps the rows and reports failures", func(t *testing.T) {
		store := newFakeStore()
		dir := &fakeDirectory{tokens: map[int64][]string{
			1: {"tok-a"},
			2: {"tok-b"},
		}}
		gw := &fakeGateway{sendErr: errors.New("relay unreachable")}
		d := New(store, dir, gw, nil)

		res, err := d.Dispatch(ctx, emergencyRequest(1, 2, 3))
		require.NoError(t, err)

		assert.Equal(t, 0, res.NotificationsSent)
		assert.Equal(t, 2, res.Failures)
		assert.Equal(t, 1, res.NoChannel)
		require.Len(t, store.created, 3)
		assert.Empty(t, store.marked[model.DeliverySent])
	})

	t.Run("persistence failure aborts before any push", func(t *testing.T) {
		store := newFakeStore()
		store.createErr = errors.New("db down")
		gw := &fakeGateway{}
		d := New(store, &fakeDirectory{}, gw, nil)

		_, err := d.Dispatch(ctx, emergencyRequest(1, 2))
		require.Error(t, err)
		assert.Empty(t, gw.sent)
	})
}
