package scanner

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/GodsB1025/trade-monitor/internal/common"
	"github.com/GodsB1025/trade-monitor/internal/coordination"
	"github.com/GodsB1025/trade-monitor/internal/interfaces"
	"github.com/GodsB1025/trade-monitor/internal/models"
)

func newTestCoordStore(t *testing.T) interfaces.CoordinationStore {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return coordination.NewBadgerStore(db, common.GetLogger())
}

// memChangeStorage is an in-memory ChangeRecordStorage for scanner tests.
type memChangeStorage struct {
	mu        sync.Mutex
	records   []*models.ChangeRecord
	insertErr error
}

func (s *memChangeStorage) Insert(ctx context.Context, record *models.ChangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, r := range s.records {
		if r.WatchTargetID == record.WatchTargetID && r.ContentHash == record.ContentHash {
			return interfaces.ErrDuplicateChange
		}
	}
	clone := *record
	s.records = append(s.records, &clone)
	return nil
}

func (s *memChangeStorage) ExistsByHash(ctx context.Context, watchTargetID, contentHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.WatchTargetID == watchTargetID && r.ContentHash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

func (s *memChangeStorage) ListByTarget(ctx context.Context, watchTargetID string, limit int) ([]*models.ChangeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ChangeRecord
	for _, r := range s.records {
		if r.WatchTargetID == watchTargetID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memChangeStorage) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

// memTargetStorage is an in-memory WatchTargetStorage for scanner tests.
type memTargetStorage struct {
	mu      sync.Mutex
	targets map[string]*models.WatchTarget
	stamps  map[string]time.Time
}

func newMemTargetStorage(targets ...*models.WatchTarget) *memTargetStorage {
	s := &memTargetStorage{
		targets: make(map[string]*models.WatchTarget),
		stamps:  make(map[string]time.Time),
	}
	for _, t := range targets {
		s.targets[t.ID] = t
	}
	return s
}

func (s *memTargetStorage) Store(ctx context.Context, target *models.WatchTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[target.ID] = target
	return nil
}

func (s *memTargetStorage) Get(ctx context.Context, id string) (*models.WatchTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.targets[id]
	if !ok {
		return nil, interfaces.ErrTargetNotFound
	}
	return target, nil
}

func (s *memTargetStorage) List(ctx context.Context) ([]*models.WatchTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.WatchTarget, 0, len(s.targets))
	for _, t := range s.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memTargetStorage) ListActive(ctx context.Context) ([]*models.WatchTarget, error) {
	all, _ := s.List(ctx)
	var out []*models.WatchTarget
	for _, t := range all {
		if t.MonitoringActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memTargetStorage) UpdateLastScanned(ctx context.Context, id string, scannedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.targets[id]; !ok {
		return interfaces.ErrTargetNotFound
	}
	s.stamps[id] = scannedAt
	return nil
}

func (s *memTargetStorage) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.targets[id]; !ok {
		return interfaces.ErrTargetNotFound
	}
	delete(s.targets, id)
	return nil
}

func (s *memTargetStorage) CountActive(ctx context.Context) (int, error) {
	active, _ := s.ListActive(ctx)
	return len(active), nil
}

func (s *memTargetStorage) stampedAt(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp, ok := s.stamps[id]
	return stamp, ok
}

// stubEnricher answers enrichment calls from a function.
type stubEnricher struct {
	fn func(ctx context.Context, keyword string) *models.EnrichmentResult
}

func (e *stubEnricher) FetchLatest(ctx context.Context, keyword string) *models.EnrichmentResult {
	return e.fn(ctx, keyword)
}

func successResult(summary string) *models.EnrichmentResult {
	return &models.EnrichmentResult{
		Title:       "Update",
		SummaryText: summary,
		SourceURLs:  []string{"https://example.org/notice"},
		Importance:  models.ImportanceMedium,
		Succeeded:   true,
	}
}

func testTarget(id, keyword string, channel models.NotificationChannel) *models.WatchTarget {
	return &models.WatchTarget{
		ID:                  id,
		OwnerID:             "user-1",
		QueryKeyword:        keyword,
		MonitoringActive:    true,
		NotificationChannel: channel,
	}
}

// longSummary builds a summary comfortably above the noise threshold.
func longSummary(marker string) string {
	return "Regulatory update " + marker + ": the import licensing requirements were revised today with new documentation rules taking effect at the start of the next quarter."
}
