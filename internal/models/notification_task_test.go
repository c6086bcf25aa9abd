package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueKeys(t *testing.T) {
	assert.Equal(t, "notify:task:abc", TaskKey("abc"))
	assert.Equal(t, "notify:pending:email", PendingQueueKey(ChannelEmail))
	assert.Equal(t, "notify:pending:sms", PendingQueueKey(ChannelSMS))
	assert.Equal(t, "notify:processing:email", ProcessingQueueKey(ChannelEmail))
	assert.Equal(t, "notify:processing:sms", ProcessingQueueKey(ChannelSMS))
}

func TestNotificationTaskFieldsRoundTrip(t *testing.T) {
	publishedAt := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	task := &NotificationTask{
		TaskID:         "task-1",
		OwnerID:        "user-1",
		Channel:        ChannelEmail,
		Message:        "[HIGH] Update for \"steel tariffs\"",
		ChangeRecordID: "chg_abc",
		PublishedAt:    publishedAt,
	}

	fields := task.Fields()
	assert.Equal(t, "task-1", fields["task_id"])
	assert.Equal(t, "EMAIL", fields["channel"])
	assert.Equal(t, "2025-06-01T12:30:00Z", fields["published_at"])

	rebuilt, err := TaskFromFields(fields)
	require.NoError(t, err)
	assert.Equal(t, task.TaskID, rebuilt.TaskID)
	assert.Equal(t, task.OwnerID, rebuilt.OwnerID)
	assert.Equal(t, task.Channel, rebuilt.Channel)
	assert.Equal(t, task.Message, rebuilt.Message)
	assert.Equal(t, task.ChangeRecordID, rebuilt.ChangeRecordID)
	assert.True(t, publishedAt.Equal(rebuilt.PublishedAt))
}

func TestTaskFromFieldsValidation(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{
			name:   "missing task_id",
			fields: map[string]string{"channel": "EMAIL"},
		},
		{
			name:   "invalid channel",
			fields: map[string]string{"task_id": "t1", "channel": "CARRIER_PIGEON"},
		},
		{
			name:   "invalid published_at",
			fields: map[string]string{"task_id": "t1", "channel": "SMS", "published_at": "yesterday"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TaskFromFields(tt.fields)
			assert.Error(t, err)
		})
	}
}

func TestNotificationChannelValid(t *testing.T) {
	assert.True(t, ChannelEmail.Valid())
	assert.True(t, ChannelSMS.Valid())
	assert.False(t, NotificationChannel("FAX").Valid())
	assert.False(t, NotificationChannel("").Valid())
}
