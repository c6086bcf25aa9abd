package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/GodsB1025/trade-monitor/internal/interfaces"
	"github.com/GodsB1025/trade-monitor/internal/models"
)

// ChangeRecordStorage implements the ChangeRecordStorage interface for Badger.
// Records are insert-only; the (WatchTargetID, ContentHash) pair is checked
// before insert so the same change is never recorded twice.
type ChangeRecordStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChangeRecordStorage creates a new ChangeRecordStorage instance
func NewChangeRecordStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ChangeRecordStorage {
	return &ChangeRecordStorage{
		db:     db,
		logger: logger,
	}
}

// Insert stores a new change record. Returns ErrDuplicateChange when a record
// with the same (watch target, content hash) pair already exists.
func (s *ChangeRecordStorage) Insert(ctx context.Context, record *models.ChangeRecord) error {
	if record.ID == "" {
		return fmt.Errorf("change record ID is required")
	}
	if record.WatchTargetID == "" {
		return fmt.Errorf("change record watch target ID is required")
	}
	if record.ContentHash == "" {
		return fmt.Errorf("change record content hash is required")
	}

	exists, err := s.ExistsByHash(ctx, record.WatchTargetID, record.ContentHash)
	if err != nil {
		return err
	}
	if exists {
		return interfaces.ErrDuplicateChange
	}

	if err := s.db.Store().Insert(record.ID, *record); err != nil {
		if err == badgerhold.ErrKeyExists {
			return interfaces.ErrDuplicateChange
		}
		return fmt.Errorf("failed to insert change record: %w", err)
	}

	s.logger.Debug().
		Str("record_id", record.ID).
		Str("target_id", record.WatchTargetID).
		Str("content_hash", record.ContentHash).
		Msg("Change record inserted")
	return nil
}

// ExistsByHash reports whether a change with this content hash was already
// recorded for the target. This is the idempotency boundary that makes
// lock-expiry-driven re-scans safe.
func (s *ChangeRecordStorage) ExistsByHash(ctx context.Context, watchTargetID, contentHash string) (bool, error) {
	count, err := s.db.Store().Count(&models.ChangeRecord{},
		badgerhold.Where("WatchTargetID").Eq(watchTargetID).
			And("ContentHash").Eq(contentHash))
	if err != nil {
		return false, fmt.Errorf("failed to check change record existence: %w", err)
	}
	return count > 0, nil
}

// ListByTarget returns a target's change history, newest first.
func (s *ChangeRecordStorage) ListByTarget(ctx context.Context, watchTargetID string, limit int) ([]*models.ChangeRecord, error) {
	query := badgerhold.Where("WatchTargetID").Eq(watchTargetID).
		SortBy("DetectedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.ChangeRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list change records: %w", err)
	}

	result := make([]*models.ChangeRecord, 0, len(records))
	for i := range records {
		result = append(result, &records[i])
	}
	return result, nil
}

// Count returns the total number of change records
func (s *ChangeRecordStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.ChangeRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count change records: %w", err)
	}
	return int(count), nil
}
