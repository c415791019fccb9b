package response

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lifelink/donor-gateway/internal/compat"
	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/internal/repository"
	"github.com/lifelink/donor-gateway/internal/requisition"
	"github.com/lifelink/donor-gateway/pkg/logger"
)

var (
	ErrRequisitionClosed  = errors.New("requisition is no longer accepting responses")
	ErrAlreadyResponded   = errors.New("donor has already responded to this requisition")
	ErrDonorNotFound      = errors.New("donor not found")
	ErrRequisitionMissing = errors.New("requisition not found")
)

// RequesterNotificationJob is the queue payload telling the processor to
// notify a requester that a donor answered.
type RequesterNotificationJob struct {
	RequisitionID     int64              `json:"requisition_id"`
	RequesterID       int64              `json:"requester_id"`
	TenantID          int64              `json:"tenant_id"`
	DonorID           int64              `json:"donor_id"`
	Response          model.ResponseKind `json:"response"`
	RespondedAt       time.Time          `json:"responded_at"`
	IsContactRevealed bool               `json:"is_contact_revealed"`
	ContactPhone      string             `json:"contact_phone,omitempty"`
}

type RequisitionStore interface {
	Get(ctx context.Context, id int64) (*model.BloodRequisition, error)
}

type ResponseStore interface {
	Create(ctx context.Context, resp *model.DonorResponse) (*model.DonorResponse, error)
	ListForRequisition(ctx context.Context, requisitionID int64) ([]*model.DonorResponse, error)
	Delete(ctx context.Context, donorID, requisitionID int64) error
}

type DonorStore interface {
	Get(ctx context.Context, id int64) (*model.DonorProfile, error)
	FindAvailable(ctx context.Context, f model.DonorFilter, cooldownDays int, now time.Time) ([]*model.DonorCard, error)
}

type NotificationStore interface {
	MarkRead(ctx context.Context, id, donorID int64, readAt time.Time) error
}

// Publisher is the queue side of the coordinator. Satisfied by queue.Queue.
type Publisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

// Coordinator records donor answers to requisitions and kicks off the
// requester-facing follow-up asynchronously.
type Coordinator struct {
	requisitions  RequisitionStore
	responses     ResponseStore
	donors        DonorStore
	notifications NotificationStore
	publisher     Publisher
	cooldownDays  int
	now           func() time.Time
}

func New(requisitions RequisitionStore, responses ResponseStore, donors DonorStore, notifications NotificationStore, publisher Publisher) *Coordinator {
	return &Coordinator{
		requisitions:  requisitions,
		responses:     responses,
		donors:        donors,
		notifications: notifications,
		publisher:     publisher,
		cooldownDays:  compat.DefaultCooldownDays,
		now:           time.Now,
	}
}

// Respond records a donor's answer. Duplicates are rejected on every path,
// whether the donor came from a push notification or found the requisition
// directly; a donor who changes their mind retracts first. The contact
// reveal decision is made here, once, and persisted with the response.
func (c *Coordinator) Respond(ctx context.Context, req model.RespondRequest) (*model.DonorResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rq, err := c.requisitions.Get(ctx, req.RequisitionID)
	if err != nil {
		if errors.Is(err, requisition.ErrNotFound) {
			return nil, ErrRequisitionMissing
		}
		return nil, fmt.Errorf("load requisition: %w", err)
	}
	now := c.now()
	if rq.Status != model.RequisitionActive || now.After(rq.ExpiresAt) {
		return nil, ErrRequisitionClosed
	}

	donor, err := c.donors.Get(ctx, req.DonorID)
	if err != nil {
		if errors.Is(err, repository.ErrDonorNotFound) {
			return nil, ErrDonorNotFound
		}
		return nil, fmt.Errorf("load donor: %w", err)
	}

	resp := &model.DonorResponse{
		DonorID:       donor.ID,
		RequisitionID: rq.ID,
		Response:      req.Response,
		Message:       req.Message,
	}
	if req.Response == model.ResponseWilling && rq.AllowContactReveal && donor.ContactVisible {
		resp.IsContactRevealed = true
		phone := donor.ContactPhone
		resp.ContactPhone = &phone
	}

	created, err := c.responses.Create(ctx, resp)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyResponded) {
			return nil, ErrAlreadyResponded
		}
		return nil, fmt.Errorf("record response: %w", err)
	}

	c.publishRequesterJob(ctx, rq, created)
	return created, nil
}

// publishRequesterJob enqueues the requester follow-up. A queue outage must
// not fail the response, the donor's answer is already durable.
func (c *Coordinator) publishRequesterJob(ctx context.Context, rq *model.BloodRequisition, resp *model.DonorResponse) {
	if c.publisher == nil {
		return
	}
	job := RequesterNotificationJob{
		RequisitionID:     rq.ID,
		RequesterID:       rq.RequesterID,
		TenantID:          rq.TenantID,
		DonorID:           resp.DonorID,
		Response:          resp.Response,
		RespondedAt:       resp.CreatedAt,
		IsContactRevealed: resp.IsContactRevealed,
	}
	if resp.IsContactRevealed && resp.ContactPhone != nil {
		job.ContactPhone = *resp.ContactPhone
	}
	if _, err := c.publisher.PublishJSON(ctx, job, map[string]string{"kind": "requester-notification"}); err != nil {
		logger.Error("failed to enqueue requester notification",
			"requisition_id", rq.ID, "donor_id", resp.DonorID, "error", err)
	}
}

// Retract removes a donor's previous answer so a corrected one can be
// submitted.
func (c *Coordinator) Retract(ctx context.Context, donorID, requisitionID int64) error {
	return c.responses.Delete(ctx, donorID, requisitionID)
}

// ListResponses returns every recorded answer for a requisition, reveal
// decisions as persisted at response time.
func (c *Coordinator) ListResponses(ctx context.Context, requisitionID int64) ([]*model.DonorResponse, error) {
	return c.responses.ListForRequisition(ctx, requisitionID)
}

// FindCandidates selects donors worth notifying for a requisition: groups
// that can give to the patient's group, donation cooldown satisfied, active
// in the directory.
func (c *Coordinator) FindCandidates(ctx context.Context, rq *model.BloodRequisition, limit int) ([]*model.DonorCard, error) {
	groups := compat.CompatibleDonors(rq.BloodGroup)
	filter := model.DonorFilter{
		BloodGroups: groups,
		TenantID:    &rq.TenantID,
		Limit:       limit,
	}
	if rq.Location != "" {
		loc := rq.Location
		filter.Location = &loc
	}
	return c.donors.FindAvailable(ctx, filter, c.cooldownDays, c.now())
}

// MarkNotificationRead flags an in-app notification read for its owner.
func (c *Coordinator) MarkNotificationRead(ctx context.Context, notificationID, donorID int64) error {
	return c.notifications.MarkRead(ctx, notificationID, donorID, c.now())
}
