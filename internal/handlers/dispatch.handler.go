package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/fasthttp/router"
	"github.com/lifelink/donor-gateway/internal/dispatch"
	gateway "github.com/lifelink/donor-gateway/internal/gateways"
	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/internal/repository"
	xhttp "github.com/lifelink/donor-gateway/pkg/http"
)

type DispatchService interface {
	Dispatch(ctx context.Context, req dispatch.DispatchRequest) (*dispatch.DispatchResult, error)
}

type TenantConfigService interface {
	GetMasked(ctx context.Context, tenantID int64) (*model.TenantPushConfig, error)
	Upsert(ctx context.Context, cfg *model.TenantPushConfig) (*model.TenantPushConfig, error)
	MarkTested(ctx context.Context, tenantID int64, testedAt time.Time) error
}

// CredentialSealer encrypts incoming credentials before they are stored.
type CredentialSealer interface {
	Encrypt(plaintext string) (string, error)
}

// ClientGateway is the slice of the push gateway the admin surface uses:
// cache eviction after config changes and end-to-end config tests.
type ClientGateway interface {
	InvalidateTenant(tenantID int64)
	TestTenant(ctx context.Context, tenantID int64) error
}

type DispatchHandler struct {
	svc     DispatchService
	configs TenantConfigService
	sealer  CredentialSealer
	gateway ClientGateway
}

func RegisterDispatchRoutes(e *router.Group, h *DispatchHandler) {
	e.POST("/dispatch", h.Dispatch)
	e.GET("/tenants/{id}/push-config", h.GetPushConfig)
	e.PUT("/tenants/{id}/push-config", h.PutPushConfig)
	e.POST("/tenants/{id}/push-config/test", h.TestPushConfig)
}

func NewDispatchHandler(svc DispatchService, configs TenantConfigService, sealer CredentialSealer, gw ClientGateway) *DispatchHandler {
	return &DispatchHandler{svc: svc, configs: configs, sealer: sealer, gateway: gw}
}

type dispatchRequest struct {
	RecipientIDs  []int64           `json:"recipient_ids"`
	RequisitionID *int64            `json:"requisition_id"`
	TenantID      int64             `json:"tenant_id"`
	Type          string            `json:"type"`
	Title         string            `json:"title"`
	Message       string            `json:"message"`
	Data          map[string]string `json:"data"`
	Priority      string            `json:"priority"`
}

type putPushConfigRequest struct {
	ProjectID    string `json:"project_id"`
	Credentials  string `json:"credentials"`
	ProviderURL  string `json:"provider_url"`
	DailyLimit   int64  `json:"daily_limit"`
	MonthlyLimit int64  `json:"monthly_limit"`
	IsActive     bool   `json:"is_active"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *DispatchHandler) Dispatch(ctx *xhttp.RequestCtx) {
	var req dispatchRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	result, err := h.svc.Dispatch(ctx, dispatch.DispatchRequest{
		RecipientIDs:  req.RecipientIDs,
		RequisitionID: req.RequisitionID,
		TenantID:      req.TenantID,
		Type:          model.NotificationType(req.Type),
		Title:         req.Title,
		Message:       req.Message,
		Data:          req.Data,
		Priority:      req.Priority,
	})
	if err != nil {
		if errors.Is(err, dispatch.ErrNoRecipients) || errors.Is(err, dispatch.ErrEmptyTitle) {
			writeError(ctx, 400, err.Error())
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, result)
}

func (h *DispatchHandler) GetPushConfig(ctx *xhttp.RequestCtx) {
	tenantID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	cfg, err := h.configs.GetMasked(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrPushConfigNotFound) {
			writeError(ctx, 404, err.Error())
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, cfg)
}

func (h *DispatchHandler) PutPushConfig(ctx *xhttp.RequestCtx) {
	tenantID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	var req putPushConfigRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.ProjectID == "" || req.Credentials == "" {
		writeError(ctx, 400, "project_id and credentials are required")
		return
	}
	// A masked credential echoing back an earlier GET is never stored.
	if req.Credentials == model.MaskedSecret {
		writeError(ctx, 400, "credentials are masked, provide the real value")
		return
	}

	sealed, err := h.sealer.Encrypt(req.Credentials)
	if err != nil {
		writeError(ctx, 400, "invalid credentials: "+err.Error())
		return
	}

	cfg, err := h.configs.Upsert(ctx, &model.TenantPushConfig{
		TenantID:     tenantID,
		ProjectID:    req.ProjectID,
		Credentials:  sealed,
		ProviderURL:  req.ProviderURL,
		DailyLimit:   req.DailyLimit,
		MonthlyLimit: req.MonthlyLimit,
		IsActive:     req.IsActive,
		IsConfigured: true,
	})
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}

	// The next dispatch for this tenant rebuilds its client from the new
	// credentials.
	h.gateway.InvalidateTenant(tenantID)

	writeJSON(ctx, 200, cfg.Masked())
}

// TestPushConfig sends one throwaway notification through the tenant's own
// credentials and records when it last succeeded.
func (h *DispatchHandler) TestPushConfig(ctx *xhttp.RequestCtx) {
	tenantID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}

	if err := h.gateway.TestTenant(ctx, tenantID); err != nil {
		if errors.Is(err, gateway.ErrTenantNotConfigured) {
			writeError(ctx, 409, err.Error())
			return
		}
		writeError(ctx, 502, "test delivery failed: "+err.Error())
		return
	}

	testedAt := time.Now()
	if err := h.configs.MarkTested(ctx, tenantID, testedAt); err != nil {
		if errors.Is(err, repository.ErrPushConfigNotFound) {
			writeError(ctx, 404, err.Error())
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]interface{}{"tested_at": testedAt})
}
