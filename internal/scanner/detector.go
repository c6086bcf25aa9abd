package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/GodsB1025/trade-monitor/internal/interfaces"
	"github.com/GodsB1025/trade-monitor/internal/models"
)

// Detector decides whether an enrichment result is a new, meaningful change
// for a watch target. Noise filters run first (failure, sentinel, minimum
// length), then the content hash is checked against the target's durable
// change history.
type Detector struct {
	changes   interfaces.ChangeRecordStorage
	logger    arbor.ILogger
	minLength int
	sentinel  string
}

// NewDetector creates a change detector with the configured noise filters.
func NewDetector(changes interfaces.ChangeRecordStorage, minLength int, sentinel string, logger arbor.ILogger) *Detector {
	return &Detector{
		changes:   changes,
		logger:    logger,
		minLength: minLength,
		sentinel:  sentinel,
	}
}

// NormalizeSummary collapses all whitespace runs to single spaces and trims
// the ends, so formatting-only differences hash identically.
func NormalizeSummary(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContentHash returns the hex sha256 of the normalized summary text.
func ContentHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Detect evaluates one enrichment result. It returns a ready-to-insert change
// record when the result is a genuinely new change, or nil when the result is
// a failure, noise, or a duplicate of an already-recorded change.
func (d *Detector) Detect(ctx context.Context, target *models.WatchTarget, result *models.EnrichmentResult) (*models.ChangeRecord, error) {
	if result == nil || !result.Succeeded {
		return nil, nil
	}

	normalized := NormalizeSummary(result.SummaryText)
	if normalized == "" {
		return nil, nil
	}
	if d.sentinel != "" && normalized == d.sentinel {
		d.logger.Debug().
			Str("target_id", target.ID).
			Msg("No updates found for target")
		return nil, nil
	}
	if utf8.RuneCountInString(normalized) < d.minLength {
		d.logger.Debug().
			Str("target_id", target.ID).
			Int("length", utf8.RuneCountInString(normalized)).
			Int("min_length", d.minLength).
			Msg("Summary below minimum length, treated as noise")
		return nil, nil
	}

	hash := ContentHash(normalized)

	exists, err := d.changes.ExistsByHash(ctx, target.ID, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		d.logger.Debug().
			Str("target_id", target.ID).
			Str("content_hash", hash).
			Msg("Change already recorded, skipping duplicate")
		return nil, nil
	}

	return &models.ChangeRecord{
		ID:            "chg_" + uuid.New().String(),
		WatchTargetID: target.ID,
		OwnerID:       target.OwnerID,
		ContentHash:   hash,
		Title:         result.Title,
		SummaryText:   normalized,
		SourceURLs:    result.SourceURLs,
		Importance:    result.Importance,
		DetectedAt:    time.Now().UTC(),
	}, nil
}
