package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/GodsB1025/trade-monitor/internal/interfaces"
	"github.com/GodsB1025/trade-monitor/internal/models"
)

// WatchTargetStorage implements the WatchTargetStorage interface for Badger
type WatchTargetStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewWatchTargetStorage creates a new WatchTargetStorage instance
func NewWatchTargetStorage(db *BadgerDB, logger arbor.ILogger) interfaces.WatchTargetStorage {
	return &WatchTargetStorage{
		db:     db,
		logger: logger,
	}
}

// Store inserts or updates a watch target, preserving CreatedAt on update.
func (s *WatchTargetStorage) Store(ctx context.Context, target *models.WatchTarget) error {
	if target.ID == "" {
		return fmt.Errorf("watch target ID is required")
	}

	now := time.Now()
	target.UpdatedAt = now

	var existing models.WatchTarget
	err := s.db.Store().Get(target.ID, &existing)
	if err == nil {
		target.CreatedAt = existing.CreatedAt
	} else if err == badgerhold.ErrNotFound {
		target.CreatedAt = now
	} else {
		return fmt.Errorf("failed to check watch target existence: %w", err)
	}

	if err := s.db.Store().Upsert(target.ID, *target); err != nil {
		return fmt.Errorf("failed to store watch target: %w", err)
	}

	return nil
}

// Get retrieves a watch target by ID
func (s *WatchTargetStorage) Get(ctx context.Context, id string) (*models.WatchTarget, error) {
	var target models.WatchTarget
	err := s.db.Store().Get(id, &target)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrTargetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watch target: %w", err)
	}
	return &target, nil
}

// List returns all watch targets ordered by creation time, newest first.
func (s *WatchTargetStorage) List(ctx context.Context) ([]*models.WatchTarget, error) {
	var targets []models.WatchTarget
	err := s.db.Store().Find(&targets, badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list watch targets: %w", err)
	}

	result := make([]*models.WatchTarget, 0, len(targets))
	for i := range targets {
		result = append(result, &targets[i])
	}
	return result, nil
}

// ListActive returns all targets eligible for a scan cycle.
func (s *WatchTargetStorage) ListActive(ctx context.Context) ([]*models.WatchTarget, error) {
	var targets []models.WatchTarget
	err := s.db.Store().Find(&targets, badgerhold.Where("MonitoringActive").Eq(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list active watch targets: %w", err)
	}

	result := make([]*models.WatchTarget, 0, len(targets))
	for i := range targets {
		result = append(result, &targets[i])
	}
	return result, nil
}

// UpdateLastScanned stamps the target's last scan attempt. Called after every
// attempt regardless of outcome so staleness can be diagnosed.
func (s *WatchTargetStorage) UpdateLastScanned(ctx context.Context, id string, scannedAt time.Time) error {
	var target models.WatchTarget
	err := s.db.Store().Get(id, &target)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrTargetNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get watch target for scan stamp: %w", err)
	}

	target.LastScannedAt = &scannedAt

	if err := s.db.Store().Upsert(id, target); err != nil {
		return fmt.Errorf("failed to update last scanned time: %w", err)
	}
	return nil
}

// Delete removes a watch target
func (s *WatchTargetStorage) Delete(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.WatchTarget{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrTargetNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete watch target: %w", err)
	}
	return nil
}

// CountActive returns the number of targets eligible for scanning
func (s *WatchTargetStorage) CountActive(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.WatchTarget{}, badgerhold.Where("MonitoringActive").Eq(true))
	if err != nil {
		return 0, fmt.Errorf("failed to count active watch targets: %w", err)
	}
	return int(count), nil
}
