package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gateway "github.com/lifelink/donor-gateway/internal/gateways"
	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/pkg/logger"
	"github.com/lifelink/donor-gateway/pkg/prom"
)

var (
	ErrNoRecipients = errors.New("dispatch requires at least one recipient")
	ErrEmptyTitle   = errors.New("dispatch requires a title")
)

// NotificationStore persists notification rows and their delivery outcome.
type NotificationStore interface {
	CreateBatch(ctx context.Context, notifications []*model.DonorNotification) ([]*model.DonorNotification, error)
	MarkDelivery(ctx context.Context, ids []int64, status model.DeliveryStatus, sentAt time.Time) error
}

// TokenDirectory resolves donors to their active push channels and retires
// the dead ones.
type TokenDirectory interface {
	ActiveTokens(ctx context.Context, donorIDs []int64) (map[int64][]string, error)
	DeactivateTokens(ctx context.Context, tokens []string) (int64, error)
}

// PushGateway is the delivery side of a dispatch. Satisfied by
// gateway.Gateway.
type PushGateway interface {
	ResolveClient(ctx context.Context, tenantID int64) (*gateway.Client, error)
	SendToTokens(ctx context.Context, client *gateway.Client, tokens []string, msg *gateway.PushMessage) (*gateway.MulticastResult, error)
}

// CacheInvalidator drops read-side cache keys after new rows land.
type CacheInvalidator interface {
	Del(key string) error
}

type DispatchRequest struct {
	RecipientIDs  []int64
	RequisitionID *int64
	TenantID      int64
	Type          model.NotificationType
	Title         string
	Message       string
	Data          map[string]string
	Priority      string
}

func (r DispatchRequest) Validate() error {
	if len(r.RecipientIDs) == 0 {
		return ErrNoRecipients
	}
	if r.Title == "" {
		return ErrEmptyTitle
	}
	return nil
}

// DispatchResult reports a completed dispatch. Partial push failure is a
// normal outcome; the in-app rows exist either way.
type DispatchResult struct {
	BatchID              string `json:"batch_id"`
	NotificationsSent    int    `json:"notifications_sent"`
	Failures             int    `json:"failures"`
	NoChannel            int    `json:"no_channel"`
	InvalidTokensRemoved int    `json:"invalid_tokens_removed"`
}

// Dispatcher fans a notification out to a recipient set: one durable row per
// recipient first, push delivery on top. Losing the push never loses the
// notification.
type Dispatcher struct {
	store     NotificationStore
	directory TokenDirectory
	gateway   PushGateway
	cache     CacheInvalidator
	now       func() time.Time
}

func New(store NotificationStore, directory TokenDirectory, gw PushGateway, cache CacheInvalidator) *Dispatcher {
	return &Dispatcher{
		store:     store,
		directory: directory,
		gateway:   gw,
		cache:     cache,
		now:       time.Now,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	started := d.now()

	batchID := uuid.NewString()
	rows := make([]*model.DonorNotification, 0, len(req.RecipientIDs))
	for _, donorID := range req.RecipientIDs {
		rows = append(rows, &model.DonorNotification{
			DonorID:       donorID,
			RequisitionID: req.RequisitionID,
			TenantID:      req.TenantID,
			BatchID:       batchID,
			Type:          req.Type,
			Title:         req.Title,
			Message:       req.Message,
			Status:        model.DeliveryPending,
		})
	}

	rows, err := d.store.CreateBatch(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("persist notification batch: %w", err)
	}

	rowByDonor := make(map[int64]*model.DonorNotification, len(rows))
	for _, row := range rows {
		rowByDonor[row.DonorID] = row
	}

	tokensByDonor, err := d.directory.ActiveTokens(ctx, req.RecipientIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve device tokens: %w", err)
	}

	var tokens []string
	donorByToken := make(map[string]int64)
	channelDonors := make(map[int64]bool)
	result := &DispatchResult{BatchID: batchID}
	for _, donorID := range req.RecipientIDs {
		donorTokens := tokensByDonor[donorID]
		if len(donorTokens) == 0 {
			// The in-app row stays; there is just no push channel for it.
			result.NoChannel++
			continue
		}
		channelDonors[donorID] = true
		for _, tok := range donorTokens {
			tokens = append(tokens, tok)
			donorByToken[tok] = donorID
		}
	}

	if len(tokens) > 0 {
		d.deliver(ctx, req, tokens, donorByToken, channelDonors, rowByDonor, result)
	}

	d.invalidateRecipientCaches(req.RecipientIDs)

	prom.AddDispatchBatchDuration(d.now().Sub(started).Seconds(), req.Priority)
	logger.Info("notification batch dispatched",
		"batch_id", batchID,
		"tenant_id", req.TenantID,
		"recipients", len(req.RecipientIDs),
		"sent", result.NotificationsSent,
		"failed", result.Failures,
		"no_channel", result.NoChannel)
	return result, nil
}

// deliver pushes to the resolved tokens and records delivery on the rows.
// Everything in here is best effort: the batch rows are already durable.
func (d *Dispatcher) deliver(ctx context.Context, req DispatchRequest, tokens []string, donorByToken map[string]int64, channelDonors map[int64]bool, rowByDonor map[int64]*model.DonorNotification, result *DispatchResult) {
	client, err := d.gateway.ResolveClient(ctx, req.TenantID)
	if err != nil {
		logger.Error("push client resolution failed, batch stays pending",
			"tenant_id", req.TenantID, "batch_id", result.BatchID, "error", err)
		result.Failures = len(channelDonors)
		return
	}

	msg := &gateway.PushMessage{
		Title:    req.Title,
		Body:     req.Message,
		Data:     req.Data,
		Priority: req.Priority,
	}
	sendRes, err := d.gateway.SendToTokens(ctx, client, tokens, msg)
	if err != nil {
		logger.Error("push delivery failed for batch",
			"tenant_id", req.TenantID, "batch_id", result.BatchID, "error", err)
		result.Failures = len(channelDonors)
		return
	}

	// A donor counts delivered when any one of its tokens got through.
	deliveredDonors := make(map[int64]bool)
	for _, tr := range sendRes.Results {
		if tr.OK {
			deliveredDonors[donorByToken[tr.Token]] = true
		}
	}

	var sentIDs, failedIDs []int64
	for donorID := range channelDonors {
		row, ok := rowByDonor[donorID]
		if !ok {
			continue
		}
		if deliveredDonors[donorID] {
			sentIDs = append(sentIDs, row.ID)
		} else {
			failedIDs = append(failedIDs, row.ID)
		}
	}
	result.NotificationsSent = len(sentIDs)
	result.Failures = len(failedIDs)

	now := d.now()
	if len(sentIDs) > 0 {
		if err := d.store.MarkDelivery(ctx, sentIDs, model.DeliverySent, now); err != nil {
			logger.Error("failed to mark notifications sent", "batch_id", result.BatchID, "error", err)
		}
	}
	if len(failedIDs) > 0 {
		if err := d.store.MarkDelivery(ctx, failedIDs, model.DeliveryFailed, now); err != nil {
			logger.Error("failed to mark notifications failed", "batch_id", result.BatchID, "error", err)
		}
	}

	if len(sendRes.InvalidTokens) > 0 {
		removed, err := d.directory.DeactivateTokens(ctx, sendRes.InvalidTokens)
		if err != nil {
			logger.Error("failed to deactivate invalid tokens",
				"count", len(sendRes.InvalidTokens), "error", err)
		} else {
			result.InvalidTokensRemoved = int(removed)
			prom.AddCounter(prom.SystemDispatch, prom.MetricInvalidTokensRemovedTotal, float64(removed))
		}
	}

	scope := "tenant"
	if client.IsDefault() {
		scope = "default"
	}
	prom.AddCounterVec(prom.SystemDispatch, prom.MetricNotificationsSentTotal, float64(result.NotificationsSent), scope)
	prom.AddCounterVec(prom.SystemDispatch, prom.MetricNotificationsFailedTotal, float64(result.Failures), scope)
}

// NotificationListKey and UnreadCountKey are the read-side cache keys a
// dispatch invalidates for each recipient.
func NotificationListKey(donorID int64) string {
	return fmt.Sprintf("notifications:donor:%d", donorID)
}

func UnreadCountKey(donorID int64) string {
	return fmt.Sprintf("notifications:unread:%d", donorID)
}

func (d *Dispatcher) invalidateRecipientCaches(donorIDs []int64) {
	if d.cache == nil {
		return
	}
	for _, donorID := range donorIDs {
		if err := d.cache.Del(NotificationListKey(donorID)); err != nil {
			logger.Warn("cache invalidation failed", "donor_id", donorID, "error", err)
		}
		if err := d.cache.Del(UnreadCountKey(donorID)); err != nil {
			logger.Warn("cache invalidation failed", "donor_id", donorID, "error", err)
		}
	}
}
