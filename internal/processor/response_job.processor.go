package processor

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/lifelink/donor-gateway/internal/dispatch"
	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/internal/queue"
	"github.com/lifelink/donor-gateway/internal/response"
	"github.com/lifelink/donor-gateway/pkg/logger"
)

// Dispatcher is the notification fan-out the processor drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.DispatchRequest) (*dispatch.DispatchResult, error)
}

// ResponseJobProcessor consumes requester-notification jobs: every time a
// donor answers a requisition, the requester gets an in-app/push
// notification about it.
type ResponseJobProcessor struct {
	dispatcher  Dispatcher
	idempotency *IdempotencyService
}

func NewResponseJobProcessor(dispatcher Dispatcher, idempotency *IdempotencyService) *ResponseJobProcessor {
	return &ResponseJobProcessor{
		dispatcher:  dispatcher,
		idempotency: idempotency,
	}
}

func (p *ResponseJobProcessor) GetType() string {
	return "requester-notification"
}

// jobKey identifies one donor's answer to one requisition; a retried queue
// message maps to the same key, so the requester is notified at most once.
func jobKey(job response.RequesterNotificationJob) string {
	return strconv.FormatInt(job.RequisitionID, 10) + ":" + strconv.FormatInt(job.DonorID, 10)
}

func (p *ResponseJobProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var job response.RequesterNotificationJob
	if err := json.Unmarshal(queueMessage.Data, &job); err != nil {
		logger.Error("Failed to unmarshal requester notification job", "error", err)
		return err // malformed payload, let retries exhaust into the DLQ
	}
	if job.RequesterID == 0 || job.RequisitionID == 0 {
		logger.Error("Requester notification job missing ids", "job", string(queueMessage.Data))
		return errors.New("invalid requester notification job")
	}

	key := jobKey(job)

	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, key)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			logger.Info("Requester already notified, skipping", "job_key", key)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("Giving up on requester notification", "job_key", key)
			return nil // ACK, the DLQ copy is the record
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			return errors.New("lock held by another consumer")
		}
		logger.Error("Failed to acquire lock", "job_key", key, "error", err)
		return err
	}

	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	logger.Info("Notifying requester of donor response",
		"job_key", key,
		"requester_id", job.RequesterID,
		"response", job.Response,
		"retry_count", procCtx.RetryCount)

	data := map[string]string{
		"requisition_id": strconv.FormatInt(job.RequisitionID, 10),
		"response":       string(job.Response),
	}
	// The reveal decision was made and persisted when the response was
	// recorded; the push only relays it.
	if job.IsContactRevealed && job.ContactPhone != "" {
		data["contact_phone"] = job.ContactPhone
	}

	req := dispatch.DispatchRequest{
		RecipientIDs:  []int64{job.RequesterID},
		RequisitionID: &job.RequisitionID,
		TenantID:      job.TenantID,
		Type:          model.NotificationResponse,
		Title:         responseTitle(job.Response),
		Message:       responseBody(job.Response),
		Data:          data,
		Priority:      "high",
	}

	if _, err := p.dispatcher.Dispatch(ctx, req); err != nil {
		logger.Error("Failed to dispatch requester notification", "job_key", key, "error", err)
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "job_key", key, "error", markErr)
		}
		return err // NACK to retry from queue
	}

	if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
		logger.Error("Failed to mark success", "job_key", key, "error", markErr)
	}
	return nil
}

func responseTitle(kind model.ResponseKind) string {
	if kind == model.ResponseWilling {
		return "A donor can help"
	}
	return "A donor has responded"
}

func responseBody(kind model.ResponseKind) string {
	switch kind {
	case model.ResponseWilling:
		return "A donor is willing to donate for your blood request. Open the request to see their response."
	case model.ResponseNotAvailable:
		return "A donor responded that they are not available right now."
	default:
		return "A donor responded to your blood request."
	}
}
