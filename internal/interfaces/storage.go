package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/GodsB1025/trade-monitor/internal/models"
)

// ErrTargetNotFound is returned when a watch target does not exist.
var ErrTargetNotFound = errors.New("watch target not found")

// ErrDuplicateChange is returned when a change record with the same
// (watch target, content hash) pair already exists.
var ErrDuplicateChange = errors.New("change record already exists for content hash")

// WatchTargetStorage - interface for watch target persistence.
// Targets are written by the bookmark API; the scanner reads the active set
// and stamps LastScannedAt after each attempt.
type WatchTargetStorage interface {
	Store(ctx context.Context, target *models.WatchTarget) error
	Get(ctx context.Context, id string) (*models.WatchTarget, error)
	List(ctx context.Context) ([]*models.WatchTarget, error)
	ListActive(ctx context.Context) ([]*models.WatchTarget, error)
	UpdateLastScanned(ctx context.Context, id string, scannedAt time.Time) error
	Delete(ctx context.Context, id string) error
	CountActive(ctx context.Context) (int, error)
}

// ChangeRecordStorage - interface for the durable change history.
// Records are insert-only; ExistsByHash backs the detector's idempotency
// check.
type ChangeRecordStorage interface {
	Insert(ctx context.Context, record *models.ChangeRecord) error
	ExistsByHash(ctx context.Context, watchTargetID, contentHash string) (bool, error)
	ListByTarget(ctx context.Context, watchTargetID string, limit int) ([]*models.ChangeRecord, error)
	Count(ctx context.Context) (int, error)
}
