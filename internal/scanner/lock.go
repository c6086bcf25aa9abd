package scanner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/GodsB1025/trade-monitor/internal/interfaces"
)

// ScanLockKey is the coordination store key guarding the scan cycle.
const ScanLockKey = "monitor:scan:lock"

// LockManager acquires and releases the exclusive scan lock. Each acquisition
// writes a fresh random token; release is compare-and-delete on that token, so
// a holder whose lock expired mid-cycle can never delete a successor's lock.
type LockManager struct {
	store  interfaces.CoordinationStore
	logger arbor.ILogger
	ttl    time.Duration
}

// NewLockManager creates a lock manager with the configured lock TTL.
func NewLockManager(store interfaces.CoordinationStore, ttl time.Duration, logger arbor.ILogger) *LockManager {
	return &LockManager{
		store:  store,
		logger: logger,
		ttl:    ttl,
	}
}

// TryAcquire attempts to take the scan lock. Returns the holder token and
// true on success; empty token and false when another cycle holds the lock.
// Never blocks waiting for the lock.
func (m *LockManager) TryAcquire(ctx context.Context) (string, bool, error) {
	token := uuid.New().String()

	acquired, err := m.store.SetIfAbsent(ctx, ScanLockKey, token, m.ttl)
	if err != nil {
		return "", false, err
	}
	if !acquired {
		m.logger.Debug().Msg("Scan lock is held by another cycle")
		return "", false, nil
	}

	m.logger.Debug().
		Str("token", token).
		Dur("ttl", m.ttl).
		Msg("Scan lock acquired")
	return token, true, nil
}

// Release frees the lock if this holder still owns it. A failed compare means
// the lock expired and may have been re-acquired; that is logged, not an
// error, because the TTL already protected the successor.
func (m *LockManager) Release(ctx context.Context, token string) error {
	released, err := m.store.CompareAndDelete(ctx, ScanLockKey, token)
	if err != nil {
		return err
	}
	if !released {
		m.logger.Warn().
			Str("token", token).
			Msg("Scan lock was not released: token no longer current (lock likely expired mid-cycle)")
		return nil
	}

	m.logger.Debug().Str("token", token).Msg("Scan lock released")
	return nil
}

// TTL returns the configured lock lifetime.
func (m *LockManager) TTL() time.Duration {
	return m.ttl
}
