package coordination

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/GodsB1025/trade-monitor/internal/interfaces"
)

// Key prefixes partition the coordination namespace from badgerhold's typed
// records. Lists and hashes are stored as single JSON-encoded values so every
// mutation is one atomic transaction.
const (
	stringPrefix = "coord:str:"
	listPrefix   = "coord:list:"
	hashPrefix   = "coord:hash:"
)

const movePollInterval = 100 * time.Millisecond

// BadgerStore implements the CoordinationStore primitives on raw Badger
// transactions. Badger gives serializable transactions and native entry TTL,
// which is all the lock and queue semantics need.
type BadgerStore struct {
	db     *badger.DB
	logger arbor.ILogger
}

// NewBadgerStore creates a coordination store on an existing Badger handle.
func NewBadgerStore(db *badger.DB, logger arbor.ILogger) interfaces.CoordinationStore {
	return &BadgerStore{
		db:     db,
		logger: logger,
	}
}

// update runs fn inside a read-write transaction, retrying on conflict.
// Conflicts are expected under concurrent queue access and resolve quickly.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	for {
		err := s.db.Update(fn)
		if err == badger.ErrConflict {
			continue
		}
		return err
	}
}

// SetIfAbsent stores value under key only when no live value exists. Expired
// entries are treated as absent; Badger drops them at read time once the TTL
// passes.
func (s *BadgerStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	acquired := false
	err := s.update(func(txn *badger.Txn) error {
		k := []byte(stringPrefix + key)
		_, err := txn.Get(k)
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		entry := badger.NewEntry(k, []byte(value))
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		acquired = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return acquired, nil
}

// Get returns the current value for key, or ErrKeyNotFound.
func (s *BadgerStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(stringPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return "", interfaces.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, nil
}

// CompareAndDelete deletes key only when its current value equals expected.
// The read and delete share one transaction, so a lock released after expiry
// can never delete another holder's token.
func (s *BadgerStore) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	deleted := false
	err := s.update(func(txn *badger.Txn) error {
		k := []byte(stringPrefix + key)
		item, err := txn.Get(k)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		var current string
		if err := item.Value(func(val []byte) error {
			current = string(val)
			return nil
		}); err != nil {
			return err
		}
		if current != expected {
			return nil
		}

		if err := txn.Delete(k); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to compare-and-delete key %s: %w", key, err)
	}
	return deleted, nil
}

func readHash(txn *badger.Txn, key string) (map[string]string, error) {
	item, err := txn.Get([]byte(hashPrefix + key))
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string)
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &fields)
	}); err != nil {
		return nil, err
	}
	return fields, nil
}

func writeHash(txn *badger.Txn, key string, fields map[string]string) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return txn.Set([]byte(hashPrefix+key), data)
}

// HashSet merges fields into the hash at key, creating it if needed.
func (s *BadgerStore) HashSet(ctx context.Context, key string, fields map[string]string) error {
	err := s.update(func(txn *badger.Txn) error {
		current, err := readHash(txn, key)
		if err == badger.ErrKeyNotFound {
			current = make(map[string]string)
		} else if err != nil {
			return err
		}
		for k, v := range fields {
			current[k] = v
		}
		return writeHash(txn, key, current)
	})
	if err != nil {
		return fmt.Errorf("failed to set hash %s: %w", key, err)
	}
	return nil
}

// HashGetAll returns every field of the hash at key, or ErrKeyNotFound.
func (s *BadgerStore) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	var fields map[string]string
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		fields, err = readHash(txn, key)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hash %s: %w", key, err)
	}
	return fields, nil
}

// HashDeleteField removes one field from the hash. Deleting the last field
// deletes the hash key itself; missing keys and fields are no-ops.
func (s *BadgerStore) HashDeleteField(ctx context.Context, key, field string) error {
	err := s.update(func(txn *badger.Txn) error {
		current, err := readHash(txn, key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if _, ok := current[field]; !ok {
			return nil
		}
		delete(current, field)
		if len(current) == 0 {
			return txn.Delete([]byte(hashPrefix + key))
		}
		return writeHash(txn, key, current)
	})
	if err != nil {
		return fmt.Errorf("failed to delete hash field %s.%s: %w", key, field, err)
	}
	return nil
}

func readList(txn *badger.Txn, key string) ([]string, error) {
	item, err := txn.Get([]byte(listPrefix + key))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []string
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &list)
	}); err != nil {
		return nil, err
	}
	return list, nil
}

func writeList(txn *badger.Txn, key string, list []string) error {
	if len(list) == 0 {
		err := txn.Delete([]byte(listPrefix + key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return txn.Set([]byte(listPrefix+key), data)
}

// ListPush pushes value onto the head of the list at key.
func (s *BadgerStore) ListPush(ctx context.Context, key, value string) error {
	err := s.update(func(txn *badger.Txn) error {
		list, err := readList(txn, key)
		if err != nil {
			return err
		}
		list = append([]string{value}, list...)
		return writeList(txn, key, list)
	})
	if err != nil {
		return fmt.Errorf("failed to push to list %s: %w", key, err)
	}
	return nil
}

// tryMove pops the tail of src and pushes it onto the head of dst in one
// transaction. Returns ErrKeyNotFound when src is empty.
func (s *BadgerStore) tryMove(src, dst string) (string, error) {
	var moved string
	err := s.update(func(txn *badger.Txn) error {
		srcList, err := readList(txn, src)
		if err != nil {
			return err
		}
		if len(srcList) == 0 {
			return badger.ErrKeyNotFound
		}

		moved = srcList[len(srcList)-1]
		if err := writeList(txn, src, srcList[:len(srcList)-1]); err != nil {
			return err
		}

		dstList, err := readList(txn, dst)
		if err != nil {
			return err
		}
		dstList = append([]string{moved}, dstList...)
		return writeList(txn, dst, dstList)
	})
	if err != nil {
		return "", err
	}
	return moved, nil
}

// ListMoveWithTimeout moves the tail of src onto the head of dst and returns
// it, polling until timeout when src is empty. The task is visible in dst
// before the caller sees it, so a consumer crash cannot lose it.
func (s *BadgerStore) ListMoveWithTimeout(ctx context.Context, src, dst string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		moved, err := s.tryMove(src, dst)
		if err == nil {
			return moved, nil
		}
		if err != badger.ErrKeyNotFound {
			return "", fmt.Errorf("failed to move from %s to %s: %w", src, dst, err)
		}

		if timeout <= 0 || !time.Now().Before(deadline) {
			return "", interfaces.ErrNoTask
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(movePollInterval):
		}
	}
}

// ListRemoveByValue removes up to count occurrences of value scanning from the
// head; count <= 0 removes all. Returns the number removed.
func (s *BadgerStore) ListRemoveByValue(ctx context.Context, key, value string, count int) (int, error) {
	removed := 0
	err := s.update(func(txn *badger.Txn) error {
		removed = 0
		list, err := readList(txn, key)
		if err != nil {
			return err
		}

		kept := make([]string, 0, len(list))
		for _, v := range list {
			if v == value && (count <= 0 || removed < count) {
				removed++
				continue
			}
			kept = append(kept, v)
		}
		if removed == 0 {
			return nil
		}
		return writeList(txn, key, kept)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to remove from list %s: %w", key, err)
	}
	return removed, nil
}

// ListRange returns the full list contents, head first.
func (s *BadgerStore) ListRange(ctx context.Context, key string) ([]string, error) {
	var list []string
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		list, err = readList(txn, key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read list %s: %w", key, err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

// ListLen returns the list length; missing lists have length zero.
func (s *BadgerStore) ListLen(ctx context.Context, key string) (int, error) {
	list, err := s.ListRange(ctx, key)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}
