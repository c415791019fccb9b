package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/internal/services"
	xhttp "github.com/lifelink/donor-gateway/pkg/http"
)

type DonorService interface {
	Register(ctx context.Context, donor *model.DonorProfile) (*model.DonorProfile, error)
	Get(ctx context.Context, id int64) (*model.DonorProfile, error)
	RegisterDeviceToken(ctx context.Context, donorID int64, token, platform string) (*model.DeviceToken, error)
	RecordDonation(ctx context.Context, donorID int64, units int, requisitionID *int64) error
	Deactivate(ctx context.Context, donorID int64) error
}

type DonorHandler struct {
	svc DonorService
}

func RegisterDonorRoutes(e *router.Group, h *DonorHandler) {
	e.POST("/donors", h.Register)
	e.GET("/donors/{id}", h.Get)
	e.POST("/donors/{id}/device-tokens", h.RegisterDeviceToken)
	e.POST("/donors/{id}/donations", h.RecordDonation)
	e.POST("/donors/{id}/deactivate", h.Deactivate)
}

func NewDonorHandler(svc DonorService) *DonorHandler {
	return &DonorHandler{svc: svc}
}

type registerDonorRequest struct {
	UserID         int64  `json:"user_id"`
	TenantID       int64  `json:"tenant_id"`
	BloodGroup     string `json:"blood_group"`
	Location       string `json:"location"`
	ContactPhone   string `json:"contact_phone"`
	ContactVisible bool   `json:"contact_visible"`
}

type deviceTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type recordDonationRequest struct {
	Units         int    `json:"units"`
	RequisitionID *int64 `json:"requisition_id"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *DonorHandler) Register(ctx *xhttp.RequestCtx) {
	var req registerDonorRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	created, err := h.svc.Register(ctx, &model.DonorProfile{
		UserID:         req.UserID,
		TenantID:       req.TenantID,
		BloodGroup:     model.BloodGroup(req.BloodGroup),
		Location:       req.Location,
		ContactPhone:   req.ContactPhone,
		ContactVisible: req.ContactVisible,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidBloodGroup) {
			writeError(ctx, 400, err.Error())
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 201, created)
}

func (h *DonorHandler) Get(ctx *xhttp.RequestCtx) {
	donorID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	donor, err := h.svc.Get(ctx, donorID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, err.Error())
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, donor)
}

func (h *DonorHandler) RegisterDeviceToken(ctx *xhttp.RequestCtx) {
	donorID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	var req deviceTokenRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	token, err := h.svc.RegisterDeviceToken(ctx, donorID, req.Token, req.Platform)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyToken):
			writeError(ctx, 400, err.Error())
		case errors.Is(err, services.ErrNotFound):
			writeError(ctx, 404, err.Error())
		default:
			writeError(ctx, 500, err.Error())
		}
		return
	}
	writeJSON(ctx, 201, token)
}

func (h *DonorHandler) RecordDonation(ctx *xhttp.RequestCtx) {
	donorID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	var req recordDonationRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if err := h.svc.RecordDonation(ctx, donorID, req.Units, req.RequisitionID); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidUnits):
			writeError(ctx, 400, err.Error())
		case errors.Is(err, services.ErrNotFound):
			writeError(ctx, 404, err.Error())
		default:
			writeError(ctx, 500, err.Error())
		}
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "ok"})
}

func (h *DonorHandler) Deactivate(ctx *xhttp.RequestCtx) {
	donorID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	if err := h.svc.Deactivate(ctx, donorID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, err.Error())
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "ok"})
}
