package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a coordination store key does not exist.
var ErrKeyNotFound = errors.New("coordination key not found")

// ErrNoTask is returned by ListMoveWithTimeout when the source list stays
// empty for the whole timeout window.
var ErrNoTask = errors.New("no task available")

// CoordinationStore exposes the atomic primitives the scanner builds on: a
// conditional set with expiry for the scan lock, hash fields for task
// payloads, and two-list move/remove operations for the reliable queue.
// Semantics mirror the Redis commands delivery workers already speak
// (SET NX PX, HSET, LPUSH, BLMOVE, LREM); every operation is atomic with
// respect to concurrent callers.
type CoordinationStore interface {
	// SetIfAbsent stores value under key only when the key is absent (or its
	// previous value expired). Returns true when the write happened.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Get returns the current value, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// CompareAndDelete deletes key only when its current value equals
	// expected. Returns true when the delete happened. The check and delete
	// are a single atomic step.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)

	// HashSet merges fields into the hash stored at key, creating it if
	// needed.
	HashSet(ctx context.Context, key string, fields map[string]string) error

	// HashGetAll returns every field of the hash, or ErrKeyNotFound.
	HashGetAll(ctx context.Context, key string) (map[string]string, error)

	// HashDeleteField removes one field; removing the last field removes the
	// hash. Missing keys and fields are not errors.
	HashDeleteField(ctx context.Context, key, field string) error

	// ListPush pushes value onto the head of the list at key.
	ListPush(ctx context.Context, key, value string) error

	// ListMoveWithTimeout atomically moves the tail element of src onto the
	// head of dst and returns it. When src is empty it polls until timeout,
	// then returns ErrNoTask.
	ListMoveWithTimeout(ctx context.Context, src, dst string, timeout time.Duration) (string, error)

	// ListRemoveByValue removes up to count occurrences of value, scanning
	// from the head; count <= 0 removes all occurrences. Returns the number
	// removed.
	ListRemoveByValue(ctx context.Context, key, value string, count int) (int, error)

	// ListRange returns the full list contents, head first. Missing lists
	// yield an empty slice.
	ListRange(ctx context.Context, key string) ([]string, error)

	// ListLen returns the list length; missing lists have length zero.
	ListLen(ctx context.Context, key string) (int, error)
}
