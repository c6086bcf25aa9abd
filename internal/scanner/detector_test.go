package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GodsB1025/trade-monitor/internal/common"
	"github.com/GodsB1025/trade-monitor/internal/models"
)

func TestNormalizeSummary(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapses inner whitespace", "a  b\t\tc", "a b c"},
		{"trims ends", "  hello world  ", "hello world"},
		{"collapses newlines", "line one\n\nline two", "line one line two"},
		{"empty", "", ""},
		{"whitespace only", " \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSummary(tt.input))
		})
	}
}

func TestContentHashStability(t *testing.T) {
	a := ContentHash(NormalizeSummary("tariff  raised to\n25%"))
	b := ContentHash(NormalizeSummary("tariff raised to 25%"))
	c := ContentHash(NormalizeSummary("tariff raised to 30%"))

	// Formatting-only differences hash identically
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestDetectFiltersNoise(t *testing.T) {
	changes := &memChangeStorage{}
	detector := NewDetector(changes, 80, "NO_UPDATES_FOUND", common.GetLogger())
	target := testTarget("wt-1", "steel tariffs", models.ChannelEmail)
	ctx := context.Background()

	tests := []struct {
		name   string
		result *models.EnrichmentResult
	}{
		{"nil result", nil},
		{"failed result", &models.EnrichmentResult{ErrorKind: models.ErrorKindTimeout}},
		{"empty summary", &models.EnrichmentResult{Succeeded: true, SummaryText: "   "}},
		{"sentinel", &models.EnrichmentResult{Succeeded: true, SummaryText: "NO_UPDATES_FOUND"}},
		{"below min length", &models.EnrichmentResult{Succeeded: true, SummaryText: "too short to matter"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := detector.Detect(ctx, target, tt.result)
			require.NoError(t, err)
			assert.Nil(t, record)
		})
	}

	count, _ := changes.Count(ctx)
	assert.Equal(t, 0, count)
}

func TestDetectNewChange(t *testing.T) {
	changes := &memChangeStorage{}
	detector := NewDetector(changes, 80, "NO_UPDATES_FOUND", common.GetLogger())
	target := testTarget("wt-1", "steel tariffs", models.ChannelEmail)
	ctx := context.Background()

	result := successResult(longSummary("alpha"))
	record, err := detector.Detect(ctx, target, result)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "wt-1", record.WatchTargetID)
	assert.Equal(t, "user-1", record.OwnerID)
	assert.Equal(t, ContentHash(NormalizeSummary(result.SummaryText)), record.ContentHash)
	assert.Equal(t, result.Title, record.Title)
	assert.Equal(t, result.SourceURLs, record.SourceURLs)
	assert.False(t, record.DetectedAt.IsZero())
}

func TestDetectSuppressesDuplicates(t *testing.T) {
	changes := &memChangeStorage{}
	detector := NewDetector(changes, 80, "NO_UPDATES_FOUND", common.GetLogger())
	target := testTarget("wt-1", "steel tariffs", models.ChannelEmail)
	other := testTarget("wt-2", "aluminum quotas", models.ChannelSMS)
	ctx := context.Background()

	summary := longSummary("beta")

	record, err := detector.Detect(ctx, target, successResult(summary))
	require.NoError(t, err)
	require.NotNil(t, record)
	require.NoError(t, changes.Insert(ctx, record))

	// Same content again for the same target is suppressed
	dup, err := detector.Detect(ctx, target, successResult(summary))
	require.NoError(t, err)
	assert.Nil(t, dup)

	// Same content for a different target is a fresh change
	fresh, err := detector.Detect(ctx, other, successResult(summary))
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, "wt-2", fresh.WatchTargetID)
}

func TestDetectNormalizesBeforeDedup(t *testing.T) {
	changes := &memChangeStorage{}
	detector := NewDetector(changes, 40, "NO_UPDATES_FOUND", common.GetLogger())
	target := testTarget("wt-1", "steel tariffs", models.ChannelEmail)
	ctx := context.Background()

	first, err := detector.Detect(ctx, target, successResult("the quota   was raised\nto fifty thousand units"))
	require.NoError(t, err)
	require.NotNil(t, first)
	require.NoError(t, changes.Insert(ctx, first))

	// Same text with different whitespace is the same change
	second, err := detector.Detect(ctx, target, successResult("the quota was raised to fifty thousand units"))
	require.NoError(t, err)
	assert.Nil(t, second)
}
