package scanner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GodsB1025/trade-monitor/internal/common"
	"github.com/GodsB1025/trade-monitor/internal/interfaces"
	"github.com/GodsB1025/trade-monitor/internal/models"
)

// faultyCoord injects failures into individual coordination operations.
type faultyCoord struct {
	interfaces.CoordinationStore
	hashSetErr  error
	listPushErr error
}

func (c *faultyCoord) HashSet(ctx context.Context, key string, fields map[string]string) error {
	if c.hashSetErr != nil {
		return c.hashSetErr
	}
	return c.CoordinationStore.HashSet(ctx, key, fields)
}

func (c *faultyCoord) ListPush(ctx context.Context, key, value string) error {
	if c.listPushErr != nil {
		return c.listPushErr
	}
	return c.CoordinationStore.ListPush(ctx, key, value)
}

func makeRecord(target *models.WatchTarget, summary string) *models.ChangeRecord {
	normalized := NormalizeSummary(summary)
	return &models.ChangeRecord{
		ID:            "chg_test",
		WatchTargetID: target.ID,
		OwnerID:       target.OwnerID,
		ContentHash:   ContentHash(normalized),
		Title:         "Update",
		SummaryText:   normalized,
		SourceURLs:    []string{"https://example.org/notice"},
		Importance:    models.ImportanceHigh,
	}
}

func TestPublishHappyPath(t *testing.T) {
	changes := &memChangeStorage{}
	coord := newTestCoordStore(t)
	publisher := NewPublisher(changes, coord, common.GetLogger())
	target := testTarget("wt-1", "steel tariffs", models.ChannelEmail)
	ctx := context.Background()

	record := makeRecord(target, longSummary("pub"))
	taskID, err := publisher.Publish(ctx, target, record)
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	// Record persisted
	exists, err := changes.ExistsByHash(ctx, target.ID, record.ContentHash)
	require.NoError(t, err)
	assert.True(t, exists)

	// Task payload stored under the task hash key
	fields, err := coord.HashGetAll(ctx, models.TaskKey(taskID))
	require.NoError(t, err)
	task, err := models.TaskFromFields(fields)
	require.NoError(t, err)
	assert.Equal(t, target.OwnerID, task.OwnerID)
	assert.Equal(t, models.ChannelEmail, task.Channel)
	assert.Equal(t, record.ID, task.ChangeRecordID)
	assert.NotEmpty(t, task.Message)
	assert.False(t, task.PublishedAt.IsZero())

	// Task ID queued on the channel's pending list
	pending, err := coord.ListRange(ctx, models.PendingQueueKey(models.ChannelEmail))
	require.NoError(t, err)
	assert.Equal(t, []string{taskID}, pending)

	// The other channel's queue is untouched
	smsLen, err := coord.ListLen(ctx, models.PendingQueueKey(models.ChannelSMS))
	require.NoError(t, err)
	assert.Equal(t, 0, smsLen)
}

func TestPublishInsertFailureStopsPipeline(t *testing.T) {
	changes := &memChangeStorage{insertErr: errors.New("disk full")}
	coord := newTestCoordStore(t)
	publisher := NewPublisher(changes, coord, common.GetLogger())
	target := testTarget("wt-1", "steel tariffs", models.ChannelEmail)
	ctx := context.Background()

	_, err := publisher.Publish(ctx, target, makeRecord(target, longSummary("fail")))
	require.Error(t, err)

	// Not a queue error: the record never made it to storage
	var queueErr *QueuePublishError
	assert.False(t, errors.As(err, &queueErr))

	// Nothing was queued
	length, err := coord.ListLen(ctx, models.PendingQueueKey(models.ChannelEmail))
	require.NoError(t, err)
	assert.Equal(t, 0, length)
}

func TestPublishHashSetFailureKeepsRecord(t *testing.T) {
	changes := &memChangeStorage{}
	coord := &faultyCoord{
		CoordinationStore: newTestCoordStore(t),
		hashSetErr:        errors.New("store unavailable"),
	}
	publisher := NewPublisher(changes, coord, common.GetLogger())
	target := testTarget("wt-1", "steel tariffs", models.ChannelEmail)
	record := makeRecord(target, longSummary("hashfail"))
	ctx := context.Background()

	_, err := publisher.Publish(ctx, target, record)
	require.Error(t, err)

	var queueErr *QueuePublishError
	require.ErrorAs(t, err, &queueErr)
	assert.Equal(t, "task_payload", queueErr.Stage)

	// The change record stays persisted despite the queue failure
	exists, err := changes.ExistsByHash(ctx, target.ID, record.ContentHash)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPublishListPushFailureKeepsRecordAndPayload(t *testing.T) {
	inner := newTestCoordStore(t)
	changes := &memChangeStorage{}
	coord := &faultyCoord{
		CoordinationStore: inner,
		listPushErr:       errors.New("store unavailable"),
	}
	publisher := NewPublisher(changes, coord, common.GetLogger())
	target := testTarget("wt-1", "steel tariffs", models.ChannelSMS)
	record := makeRecord(target, longSummary("pushfail"))
	ctx := context.Background()

	_, err := publisher.Publish(ctx, target, record)
	require.Error(t, err)

	var queueErr *QueuePublishError
	require.ErrorAs(t, err, &queueErr)
	assert.Equal(t, "pending_push", queueErr.Stage)

	exists, err := changes.ExistsByHash(ctx, target.ID, record.ContentHash)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestComposeMessageSMSTruncation(t *testing.T) {
	target := testTarget("wt-1", "steel tariffs", models.ChannelSMS)
	record := makeRecord(target, longSummary("sms")+" "+longSummary("sms-more"))

	msg := composeMessage(target, record)
	assert.LessOrEqual(t, utf8.RuneCountInString(msg), maxSMSMessageLength)
	assert.Contains(t, msg, "[HIGH]")
}

func TestComposeMessageSMSTruncatesOnRuneBoundary(t *testing.T) {
	target := testTarget("wt-1", "철강 관세", models.ChannelSMS)
	record := makeRecord(target, strings.Repeat("철강 수입 관세율이 인상되었습니다. ", 20))

	msg := composeMessage(target, record)
	assert.True(t, utf8.ValidString(msg))
	assert.LessOrEqual(t, utf8.RuneCountInString(msg), maxSMSMessageLength)
	assert.True(t, strings.HasSuffix(msg, "..."))
}

func TestComposeMessageEmailCarriesSources(t *testing.T) {
	target := testTarget("wt-1", "steel tariffs", models.ChannelEmail)
	record := makeRecord(target, longSummary("email"))

	msg := composeMessage(target, record)
	assert.Contains(t, msg, record.SummaryText)
	assert.Contains(t, msg, "https://example.org/notice")
	assert.Contains(t, msg, "steel tariffs")
}
