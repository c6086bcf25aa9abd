package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/GodsB1025/trade-monitor/internal/interfaces"
	"github.com/GodsB1025/trade-monitor/internal/models"
)

// ErrScanInProgress is returned when a scan cycle is already running, here or
// on another instance. Callers report it as a busy outcome, not a failure.
var ErrScanInProgress = errors.New("scan cycle already in progress")

// CycleResult summarizes one completed scan cycle.
type CycleResult struct {
	Scanned      int // Targets whose scan was attempted this cycle
	ChangesFound int // New change records persisted this cycle
}

// Orchestrator runs the scan cycle: take the lock, fan out over active
// targets under a concurrency cap, and aggregate results. One target's
// failure never aborts the cycle; the cycle deadline is shorter than the lock
// TTL so the lock is always released by its own holder.
type Orchestrator struct {
	targets     interfaces.WatchTargetStorage
	enricher    interfaces.EnrichmentProvider
	detector    *Detector
	publisher   *Publisher
	lock        *LockManager
	logger      arbor.ILogger
	cycleLimit  time.Duration
	concurrency int
}

// NewOrchestrator creates a scan orchestrator.
func NewOrchestrator(
	targets interfaces.WatchTargetStorage,
	enricher interfaces.EnrichmentProvider,
	detector *Detector,
	publisher *Publisher,
	lock *LockManager,
	cycleLimit time.Duration,
	concurrency int,
	logger arbor.ILogger,
) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Orchestrator{
		targets:     targets,
		enricher:    enricher,
		detector:    detector,
		publisher:   publisher,
		lock:        lock,
		logger:      logger,
		cycleLimit:  cycleLimit,
		concurrency: concurrency,
	}
}

// RunCycle executes one full scan cycle. Returns ErrScanInProgress when the
// lock is held elsewhere. Any other error means the cycle could not start;
// per-target failures are absorbed into the result instead.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleResult, error) {
	token, acquired, err := o.lock.TryAcquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire scan lock: %w", err)
	}
	if !acquired {
		return nil, ErrScanInProgress
	}

	// Release with a background context so cancellation of the cycle cannot
	// strand the lock until TTL expiry.
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.lock.Release(releaseCtx, token); err != nil {
			o.logger.Warn().Err(err).Msg("Failed to release scan lock")
		}
	}()

	cycleCtx, cancel := context.WithTimeout(ctx, o.cycleLimit)
	defer cancel()

	targets, err := o.targets.ListActive(cycleCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active targets: %w", err)
	}

	startTime := time.Now()
	o.logger.Info().
		Int("target_count", len(targets)).
		Int("concurrency", o.concurrency).
		Msg("Starting scan cycle")

	if len(targets) == 0 {
		return &CycleResult{}, nil
	}

	sem := make(chan struct{}, o.concurrency)
	results := make(chan bool, len(targets))
	var wg sync.WaitGroup
	scanned := 0

	for _, target := range targets {
		select {
		case <-cycleCtx.Done():
			o.logger.Warn().
				Int("scanned", scanned).
				Int("remaining", len(targets)-scanned).
				Msg("Cycle deadline reached, skipping remaining targets")
		default:
		}
		if cycleCtx.Err() != nil {
			break
		}

		scanned++
		wg.Add(1)
		go func(t *models.WatchTarget) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-cycleCtx.Done():
				results <- false
				return
			}
			defer func() { <-sem }()

			results <- o.scanTarget(cycleCtx, t)
		}(target)
	}

	wg.Wait()
	close(results)

	changesFound := 0
	for found := range results {
		if found {
			changesFound++
		}
	}

	o.logger.Info().
		Int("scanned", scanned).
		Int("changes_found", changesFound).
		Dur("duration", time.Since(startTime)).
		Msg("Scan cycle completed")

	return &CycleResult{
		Scanned:      scanned,
		ChangesFound: changesFound,
	}, nil
}

// scanTarget runs the enrich-detect-publish pipeline for one target and
// reports whether a new change was persisted. All failures, including panics
// from the pipeline, are contained here so one target cannot take down the
// cycle.
func (o *Orchestrator) scanTarget(ctx context.Context, target *models.WatchTarget) (found bool) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("target_id", target.ID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Recovered from panic while scanning target")
			found = false
		}
	}()

	// Stamp the attempt regardless of outcome.
	defer func() {
		stampCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.targets.UpdateLastScanned(stampCtx, target.ID, time.Now().UTC()); err != nil {
			o.logger.Warn().Err(err).Str("target_id", target.ID).Msg("Failed to stamp last scan time")
		}
	}()

	result := o.enricher.FetchLatest(ctx, target.QueryKeyword)
	if !result.Succeeded {
		o.logger.Warn().
			Str("target_id", target.ID).
			Str("keyword", target.QueryKeyword).
			Str("error_kind", string(result.ErrorKind)).
			Msg("Enrichment failed for target, treating as no change")
		return false
	}

	record, err := o.detector.Detect(ctx, target, result)
	if err != nil {
		o.logger.Error().
			Err(err).
			Str("target_id", target.ID).
			Msg("Change detection failed for target")
		return false
	}
	if record == nil {
		return false
	}

	_, err = o.publisher.Publish(ctx, target, record)
	if err != nil {
		var queueErr *QueuePublishError
		if errors.As(err, &queueErr) {
			// Record persisted; the change still counts for this cycle.
			return true
		}
		o.logger.Error().
			Err(err).
			Str("target_id", target.ID).
			Msg("Failed to persist detected change")
		return false
	}

	return true
}
