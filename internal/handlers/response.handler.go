package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/internal/response"
	xhttp "github.com/lifelink/donor-gateway/pkg/http"
)

type ResponseService interface {
	Respond(ctx context.Context, req model.RespondRequest) (*model.DonorResponse, error)
	Retract(ctx context.Context, donorID, requisitionID int64) error
	ListResponses(ctx context.Context, requisitionID int64) ([]*model.DonorResponse, error)
	MarkNotificationRead(ctx context.Context, notificationID, donorID int64) error
}

type NotificationReader interface {
	ListForDonor(ctx context.Context, donorID int64, limit, offset int) ([]*model.DonorNotification, int64, error)
	CountUnread(ctx context.Context, donorID int64) (int64, error)
}

type ResponseHandler struct {
	svc           ResponseService
	notifications NotificationReader
}

func RegisterResponseRoutes(e *router.Group, h *ResponseHandler) {
	e.POST("/requisitions/{id}/responses", h.Respond)
	e.DELETE("/requisitions/{id}/responses", h.Retract)
	e.GET("/requisitions/{id}/responses", h.ListResponses)
	e.GET("/donors/{id}/notifications", h.ListNotifications)
	e.GET("/donors/{id}/notifications/unread-count", h.UnreadCount)
	e.POST("/donors/{id}/notifications/{notification_id}/read", h.MarkRead)
}

func NewResponseHandler(svc ResponseService, notifications NotificationReader) *ResponseHandler {
	return &ResponseHandler{svc: svc, notifications: notifications}
}

type respondRequest struct {
	DonorID  int64  `json:"donor_id"`
	Response string `json:"response"`
	Message  string `json:"message"`
}

type retractRequest struct {
	DonorID int64 `json:"donor_id"`
}

type responseListResponse struct {
	Items []*model.DonorResponse `json:"items"`
}

type notificationListResponse struct {
	Items []*model.DonorNotification `json:"items"`
	Total int64                      `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *ResponseHandler) Respond(ctx *xhttp.RequestCtx) {
	requisitionID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	var req respondRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	created, err := h.svc.Respond(ctx, model.RespondRequest{
		DonorID:       req.DonorID,
		RequisitionID: requisitionID,
		Response:      model.ResponseKind(req.Response),
		Message:       req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, response.ErrRequisitionMissing), errors.Is(err, response.ErrDonorNotFound):
			writeError(ctx, 404, err.Error())
		case errors.Is(err, response.ErrAlreadyResponded):
			writeError(ctx, 409, err.Error())
		case errors.Is(err, response.ErrRequisitionClosed):
			writeError(ctx, 410, err.Error())
		default:
			writeError(ctx, 400, err.Error())
		}
		return
	}
	writeJSON(ctx, 201, created)
}

func (h *ResponseHandler) Retract(ctx *xhttp.RequestCtx) {
	requisitionID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	var req retractRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if err := h.svc.Retract(ctx, req.DonorID, requisitionID); err != nil {
		writeError(ctx, 404, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "ok"})
}

func (h *ResponseHandler) ListResponses(ctx *xhttp.RequestCtx) {
	requisitionID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	items, err := h.svc.ListResponses(ctx, requisitionID)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, responseListResponse{Items: items})
}

func (h *ResponseHandler) ListNotifications(ctx *xhttp.RequestCtx) {
	donorID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	limit, offset := 50, 0
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			offset = n
		}
	}
	items, total, err := h.notifications.ListForDonor(ctx, donorID, limit, offset)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, notificationListResponse{Items: items, Total: total})
}

func (h *ResponseHandler) UnreadCount(ctx *xhttp.RequestCtx) {
	donorID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	count, err := h.notifications.CountUnread(ctx, donorID)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]int64{"unread": count})
}

func (h *ResponseHandler) MarkRead(ctx *xhttp.RequestCtx) {
	donorID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	notificationID, err := pathInt64(ctx, "notification_id")
	if err != nil {
		writeError(ctx, 400, "invalid notification_id")
		return
	}
	if err := h.svc.MarkNotificationRead(ctx, notificationID, donorID); err != nil {
		writeError(ctx, 404, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "ok"})
}
