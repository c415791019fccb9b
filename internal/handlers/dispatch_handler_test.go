package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/lifelink/donor-gateway/internal/dispatch"
	gateway "github.com/lifelink/donor-gateway/internal/gateways"
	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDispatchService struct {
	mock.Mock
}

func (m *MockDispatchService) Dispatch(ctx context.Context, req dispatch.DispatchRequest) (*dispatch.DispatchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.DispatchResult), args.Error(1)
}

type MockTenantConfigService struct {
	mock.Mock
}

func (m *MockTenantConfigService) GetMasked(ctx context.Context, tenantID int64) (*model.TenantPushConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TenantPushConfig), args.Error(1)
}

func (m *MockTenantConfigService) Upsert(ctx context.Context, cfg *model.TenantPushConfig) (*model.TenantPushConfig, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TenantPushConfig), args.Error(1)
}

func (m *MockTenantConfigService) MarkTested(ctx context.Context, tenantID int64, testedAt time.Time) error {
	args := m.Called(ctx, tenantID, testedAt)
	return args.Error(0)
}

type stubSealer struct{}

func (stubSealer) Encrypt(plaintext string) (string, error) {
	return "aa11:" + plaintext, nil
}

// recordingGateway stands in for the push gateway on the admin surface.
type recordingGateway struct {
	tenants []int64
	tested  []int64
	testErr error
}

func (r *recordingGateway) InvalidateTenant(tenantID int64) {
	r.tenants = append(r.tenants, tenantID)
}

func (r *recordingGateway) TestTenant(_ context.Context, tenantID int64) error {
	if r.testErr != nil {
		return r.testErr
	}
	r.tested = append(r.tested, tenantID)
	return nil
}

func TestDispatchHandler_Dispatch(t *testing.T) {
	t.Run("successful dispatch", func(t *testing.T) {
		svc := new(MockDispatchService)
		handler := NewDispatchHandler(svc, new(MockTenantConfigService), stubSealer{}, &recordingGateway{})

		body, _ := json.Marshal(dispatchRequest{
			RecipientIDs: []int64{1, 2},
			TenantID:     1,
			Type:         "EMERGENCY",
			Title:        "Urgent O- request",
			Message:      "3 units needed",
		})

		svc.On("Dispatch", mock.Anything, mock.MatchedBy(func(r dispatch.DispatchRequest) bool {
			return len(r.RecipientIDs) == 2 && r.Type == model.NotificationEmergency
		})).Return(&dispatch.DispatchResult{BatchID: "b-1", NotificationsSent: 2}, nil)

		ctx := setupTestContext("POST", "/dispatch", body)
		handler.Dispatch(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("no recipients is a client error", func(t *testing.T) {
		svc := new(MockDispatchService)
		handler := NewDispatchHandler(svc, new(MockTenantConfigService), stubSealer{}, &recordingGateway{})

		body, _ := json.Marshal(dispatchRequest{Title: "x"})
		svc.On("Dispatch", mock.Anything, mock.Anything).Return(nil, dispatch.ErrNoRecipients)

		ctx := setupTestContext("POST", "/dispatch", body)
		handler.Dispatch(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestDispatchHandler_PutPushConfig(t *testing.T) {
	t.Run("stores sealed credentials and evicts the cached client", func(t *testing.T) {
		configs := new(MockTenantConfigService)
		gw := &recordingGateway{}
		handler := NewDispatchHandler(new(MockDispatchService), configs, stubSealer{}, gw)

		body, _ := json.Marshal(putPushConfigRequest{
			ProjectID:   "proj-7",
			Credentials: "service-account-json",
			DailyLimit:  1000,
			IsActive:    true,
		})

		configs.On("Upsert", mock.Anything, mock.MatchedBy(func(c *model.TenantPushConfig) bool {
			return c.TenantID == 7 && c.Credentials == "aa11:service-account-json" && c.IsConfigured
		})).Return(&model.TenantPushConfig{
			TenantID:    7,
			ProjectID:   "proj-7",
			Credentials: "aa11:service-account-json",
		}, nil)

		ctx := setupTestContext("PUT", "/tenants/7/push-config", body)
		ctx.SetUserValue("id", "7")
		handler.PutPushConfig(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		assert.Equal(t, []int64{7}, gw.tenants)

		// Response body never carries the stored blob.
		var got model.TenantPushConfig
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
		assert.NotContains(t, string(ctx.Response.Body()), "service-account-json")
	})

	t.Run("masked credential echo is rejected", func(t *testing.T) {
		handler := NewDispatchHandler(new(MockDispatchService), new(MockTenantConfigService), stubSealer{}, &recordingGateway{})

		body, _ := json.Marshal(putPushConfigRequest{ProjectID: "proj-7", Credentials: model.MaskedSecret})
		ctx := setupTestContext("PUT", "/tenants/7/push-config", body)
		ctx.SetUserValue("id", "7")
		handler.PutPushConfig(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestDispatchHandler_TestPushConfig(t *testing.T) {
	t.Run("successful test is recorded on the config", func(t *testing.T) {
		configs := new(MockTenantConfigService)
		gw := &recordingGateway{}
		handler := NewDispatchHandler(new(MockDispatchService), configs, stubSealer{}, gw)

		configs.On("MarkTested", mock.Anything, int64(7), mock.AnythingOfType("time.Time")).Return(nil)

		ctx := setupTestContext("POST", "/tenants/7/push-config/test", nil)
		ctx.SetUserValue("id", "7")
		handler.TestPushConfig(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		assert.Equal(t, []int64{7}, gw.tested)
		configs.AssertExpectations(t)
	})

	t.Run("tenant without its own client is a conflict", func(t *testing.T) {
		configs := new(MockTenantConfigService)
		gw := &recordingGateway{testErr: gateway.ErrTenantNotConfigured}
		handler := NewDispatchHandler(new(MockDispatchService), configs, stubSealer{}, gw)

		ctx := setupTestContext("POST", "/tenants/7/push-config/test", nil)
		ctx.SetUserValue("id", "7")
		handler.TestPushConfig(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
		configs.AssertNotCalled(t, "MarkTested", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("delivery failure is a gateway error, nothing recorded", func(t *testing.T) {
		configs := new(MockTenantConfigService)
		gw := &recordingGateway{testErr: errors.New("relay unreachable")}
		handler := NewDispatchHandler(new(MockDispatchService), configs, stubSealer{}, gw)

		ctx := setupTestContext("POST", "/tenants/7/push-config/test", nil)
		ctx.SetUserValue("id", "7")
		handler.TestPushConfig(ctx)

		assert.Equal(t, 502, ctx.Response.StatusCode())
		configs.AssertNotCalled(t, "MarkTested", mock.Anything, mock.Anything, mock.Anything)
	})
}
