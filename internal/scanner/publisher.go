package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/GodsB1025/trade-monitor/internal/interfaces"
	"github.com/GodsB1025/trade-monitor/internal/models"
)

const maxSMSMessageLength = 160

// QueuePublishError reports a failure after the change record was already
// persisted. The change is durable and counted; only the notification task is
// missing, which operators recover from the logged task details.
type QueuePublishError struct {
	Stage string // "task_payload" or "pending_push"
	Err   error
}

func (e *QueuePublishError) Error() string {
	return fmt.Sprintf("queue publish failed at %s: %v", e.Stage, e.Err)
}

func (e *QueuePublishError) Unwrap() error {
	return e.Err
}

// Publisher persists a detected change and enqueues its notification task.
// The order is fixed: insert the record first, then write the task payload
// hash, then push the task ID onto the channel's pending list. A record
// without a task beats a task without a record, so late failures are logged
// and never rolled back.
type Publisher struct {
	changes interfaces.ChangeRecordStorage
	coord   interfaces.CoordinationStore
	logger  arbor.ILogger
}

// NewPublisher creates a queue publisher.
func NewPublisher(changes interfaces.ChangeRecordStorage, coord interfaces.CoordinationStore, logger arbor.ILogger) *Publisher {
	return &Publisher{
		changes: changes,
		coord:   coord,
		logger:  logger,
	}
}

// Publish stores the change record and enqueues the notification task for the
// target's channel. Returns the task ID on full success. A plain error means
// the record was not persisted; a *QueuePublishError means the record IS
// persisted and only the queue step failed.
func (p *Publisher) Publish(ctx context.Context, target *models.WatchTarget, record *models.ChangeRecord) (string, error) {
	if err := p.changes.Insert(ctx, record); err != nil {
		return "", fmt.Errorf("failed to persist change record: %w", err)
	}

	task := &models.NotificationTask{
		TaskID:         uuid.New().String(),
		OwnerID:        target.OwnerID,
		Channel:        target.NotificationChannel,
		Message:        composeMessage(target, record),
		ChangeRecordID: record.ID,
		PublishedAt:    time.Now().UTC(),
	}

	if err := p.coord.HashSet(ctx, models.TaskKey(task.TaskID), task.Fields()); err != nil {
		p.logFailedTask(task, record, "task_payload", err)
		return "", &QueuePublishError{Stage: "task_payload", Err: err}
	}

	if err := p.coord.ListPush(ctx, models.PendingQueueKey(task.Channel), task.TaskID); err != nil {
		p.logFailedTask(task, record, "pending_push", err)
		return "", &QueuePublishError{Stage: "pending_push", Err: err}
	}

	p.logger.Info().
		Str("task_id", task.TaskID).
		Str("record_id", record.ID).
		Str("target_id", target.ID).
		Str("channel", string(task.Channel)).
		Msg("Notification task published")

	return task.TaskID, nil
}

// logFailedTask records everything needed to replay the notification by hand.
func (p *Publisher) logFailedTask(task *models.NotificationTask, record *models.ChangeRecord, stage string, err error) {
	p.logger.Error().
		Err(err).
		Str("stage", stage).
		Str("task_id", task.TaskID).
		Str("record_id", record.ID).
		Str("owner_id", task.OwnerID).
		Str("channel", string(task.Channel)).
		Msg("Change record persisted but notification enqueue failed")
}

// composeMessage builds the delivery text for a change. SMS is truncated to a
// single segment; email carries the full summary with title and sources.
func composeMessage(target *models.WatchTarget, record *models.ChangeRecord) string {
	switch target.NotificationChannel {
	case models.ChannelSMS:
		msg := fmt.Sprintf("[%s] %s: %s", record.Importance, target.QueryKeyword, record.SummaryText)
		if runes := []rune(msg); len(runes) > maxSMSMessageLength {
			msg = string(runes[:maxSMSMessageLength-3]) + "..."
		}
		return msg
	default:
		msg := fmt.Sprintf("[%s] Update for %q", record.Importance, target.QueryKeyword)
		if record.Title != "" {
			msg += "\n" + record.Title
		}
		msg += "\n\n" + record.SummaryText
		for _, url := range record.SourceURLs {
			msg += "\nSource: " + url
		}
		return msg
	}
}
