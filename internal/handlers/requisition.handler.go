package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/internal/requisition"
	xhttp "github.com/lifelink/donor-gateway/pkg/http"
)

type RequisitionService interface {
	Create(ctx context.Context, p model.RequisitionCreateRequest) (*model.BloodRequisition, error)
	Get(ctx context.Context, id int64) (*model.BloodRequisition, error)
	ListForUser(ctx context.Context, f model.RequisitionFilter) ([]*model.BloodRequisition, int64, error)
	Fulfill(ctx context.Context, id int64) error
	Cancel(ctx context.Context, id int64) error
	Reuse(ctx context.Context, id int64, requiredBy time.Time) (*model.BloodRequisition, error)
}

type RequisitionHandler struct {
	svc RequisitionService
}

func RegisterRequisitionRoutes(e *router.Group, h *RequisitionHandler) {
	e.POST("/requisitions", h.CreateRequisition)
	e.GET("/requisitions", h.ListRequisitions)
	e.GET("/requisitions/{id}", h.GetRequisition)
	e.POST("/requisitions/{id}/fulfill", h.FulfillRequisition)
	e.POST("/requisitions/{id}/cancel", h.CancelRequisition)
	e.POST("/requisitions/{id}/reuse", h.ReuseRequisition)
}

func NewRequisitionHandler(svc RequisitionService) *RequisitionHandler {
	return &RequisitionHandler{svc: svc}
}

type createRequisitionRequest struct {
	RequesterID        int64  `json:"requester_id"`
	TenantID           int64  `json:"tenant_id"`
	PatientName        string `json:"patient_name"`
	HospitalName       string `json:"hospital_name"`
	BloodGroup         string `json:"blood_group"`
	UnitsNeeded        int    `json:"units_needed"`
	Urgency            string `json:"urgency"`
	Location           string `json:"location"`
	RequiredBy         string `json:"required_by"`
	AllowContactReveal bool   `json:"allow_contact_reveal"`
}

type reuseRequisitionRequest struct {
	RequiredBy string `json:"required_by"`
}

type requisitionListResponse struct {
	Items []*model.BloodRequisition `json:"items"`
	Total int64                     `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *RequisitionHandler) CreateRequisition(ctx *xhttp.RequestCtx) {
	var req createRequisitionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	requiredBy, err := parseTime(req.RequiredBy)
	if err != nil {
		writeError(ctx, 400, "invalid required_by: "+err.Error())
		return
	}
	p := model.RequisitionCreateRequest{
		RequesterID:        req.RequesterID,
		TenantID:           req.TenantID,
		PatientName:        req.PatientName,
		HospitalName:       req.HospitalName,
		BloodGroup:         model.BloodGroup(req.BloodGroup),
		UnitsNeeded:        req.UnitsNeeded,
		Urgency:            model.Urgency(req.Urgency),
		Location:           req.Location,
		RequiredBy:         requiredBy,
		AllowContactReveal: req.AllowContactReveal,
	}
	created, err := h.svc.Create(ctx, p)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, created)
}

func (h *RequisitionHandler) GetRequisition(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	rq, err := h.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, requisition.ErrNotFound) {
			writeError(ctx, 404, err.Error())
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, rq)
}

func (h *RequisitionHandler) ListRequisitions(ctx *xhttp.RequestCtx) {
	var f model.RequisitionFilter

	if v := query(ctx, "requester_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.RequesterID = &id
		}
	}
	if v := query(ctx, "tenant_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.TenantID = &id
		}
	}
	if v := query(ctx, "status"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] != "" {
				f.Statuses = append(f.Statuses, model.RequisitionStatus(parts[i]))
			}
		}
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.ListForUser(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, requisitionListResponse{Items: items, Total: total})
}

func (h *RequisitionHandler) FulfillRequisition(ctx *xhttp.RequestCtx) {
	h.transition(ctx, h.svc.Fulfill)
}

func (h *RequisitionHandler) CancelRequisition(ctx *xhttp.RequestCtx) {
	h.transition(ctx, h.svc.Cancel)
}

func (h *RequisitionHandler) transition(ctx *xhttp.RequestCtx, op func(context.Context, int64) error) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	if err := op(ctx, id); err != nil {
		switch {
		case errors.Is(err, requisition.ErrNotFound):
			writeError(ctx, 404, err.Error())
		case errors.Is(err, requisition.ErrStaleStatus), errors.Is(err, requisition.ErrAlreadyClosed):
			writeError(ctx, 409, err.Error())
		default:
			var terr *requisition.TransitionError
			if errors.As(err, &terr) {
				writeError(ctx, 409, err.Error())
				return
			}
			writeError(ctx, 500, err.Error())
		}
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "ok"})
}

func (h *RequisitionHandler) ReuseRequisition(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	var req reuseRequisitionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	requiredBy, err := parseTime(req.RequiredBy)
	if err != nil {
		writeError(ctx, 400, "invalid required_by: "+err.Error())
		return
	}
	created, err := h.svc.Reuse(ctx, id, requiredBy)
	if err != nil {
		switch {
		case errors.Is(err, requisition.ErrNotFound):
			writeError(ctx, 404, err.Error())
		case errors.Is(err, requisition.ErrNotExpired):
			writeError(ctx, 409, err.Error())
		default:
			writeError(ctx, 400, err.Error())
		}
		return
	}
	writeJSON(ctx, 201, created)
}

/* -------------------------------- Helpers ----------------------------------- */

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, ok := ctx.UserValue(name).(string)
	if !ok {
		return 0, errors.New("missing path parameter " + name)
	}
	return strconv.ParseInt(v, 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
