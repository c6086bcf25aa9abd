package models

import (
	"fmt"
	"strings"
	"time"
)

// Coordination store key layout for the reliable notification queue.
const (
	taskKeyPrefix       = "notify:task:"
	pendingKeyPrefix    = "notify:pending:"
	processingKeyPrefix = "notify:processing:"
)

// NotificationTask is the queue job descriptor handed off to delivery workers.
// The full payload lives in a hash keyed by TaskID; only the TaskID travels
// through the pending/processing lists.
type NotificationTask struct {
	TaskID         string              `json:"task_id"`
	OwnerID        string              `json:"owner_id"`
	Channel        NotificationChannel `json:"channel"`
	Message        string              `json:"message"`
	ChangeRecordID string              `json:"change_record_id"`
	PublishedAt    time.Time           `json:"published_at"`
}

// TaskKey returns the hash key holding a task's payload.
func TaskKey(taskID string) string {
	return taskKeyPrefix + taskID
}

// PendingQueueKey returns the pending list key for a channel.
func PendingQueueKey(c NotificationChannel) string {
	return pendingKeyPrefix + strings.ToLower(string(c))
}

// ProcessingQueueKey returns the processing list key for a channel.
func ProcessingQueueKey(c NotificationChannel) string {
	return processingKeyPrefix + strings.ToLower(string(c))
}

// Fields encodes the task as a flat field map for the coordination store hash.
func (t *NotificationTask) Fields() map[string]string {
	return map[string]string{
		"task_id":          t.TaskID,
		"owner_id":         t.OwnerID,
		"channel":          string(t.Channel),
		"message":          t.Message,
		"change_record_id": t.ChangeRecordID,
		"published_at":     t.PublishedAt.UTC().Format(time.RFC3339),
	}
}

// TaskFromFields rebuilds a task from its hash payload. Consumers use this
// after moving a task ID from pending to processing.
func TaskFromFields(fields map[string]string) (*NotificationTask, error) {
	taskID := fields["task_id"]
	if taskID == "" {
		return nil, fmt.Errorf("task payload missing task_id")
	}

	channel := NotificationChannel(fields["channel"])
	if !channel.Valid() {
		return nil, fmt.Errorf("task %s has invalid channel %q", taskID, fields["channel"])
	}

	task := &NotificationTask{
		TaskID:         taskID,
		OwnerID:        fields["owner_id"],
		Channel:        channel,
		Message:        fields["message"],
		ChangeRecordID: fields["change_record_id"],
	}

	if raw := fields["published_at"]; raw != "" {
		publishedAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("task %s has invalid published_at: %w", taskID, err)
		}
		task.PublishedAt = publishedAt
	}

	return task, nil
}
