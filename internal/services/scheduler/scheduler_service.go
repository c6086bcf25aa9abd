package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/GodsB1025/trade-monitor/internal/common"
	"github.com/GodsB1025/trade-monitor/internal/scanner"
)

// Service drives the optional internal triggers: the periodic scan cycle and
// the queue reclaim sweep. The HTTP trigger endpoint stays the contract
// surface for external schedulers, so the scan job is disabled by default.
type Service struct {
	config       *common.Config
	orchestrator *scanner.Orchestrator
	reclaimer    *scanner.Reclaimer
	cron         *cron.Cron
	logger       arbor.ILogger
	mu           sync.Mutex
	running      bool
}

// NewService creates the scheduler service.
func NewService(config *common.Config, orchestrator *scanner.Orchestrator, reclaimer *scanner.Reclaimer, logger arbor.ILogger) *Service {
	return &Service{
		config:       config,
		orchestrator: orchestrator,
		reclaimer:    reclaimer,
		cron:         cron.New(),
		logger:       logger,
	}
}

// Start registers the enabled jobs and starts the cron loop.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if s.config.Scheduler.Enabled {
		if _, err := s.cron.AddFunc(s.config.Scheduler.Schedule, s.runScanCycle); err != nil {
			return fmt.Errorf("failed to register scan cycle job: %w", err)
		}
		s.logger.Info().
			Str("schedule", s.config.Scheduler.Schedule).
			Msg("Internal scan cycle trigger enabled")
	}

	if s.config.Queue.Reclaim.Enabled {
		if _, err := s.cron.AddFunc(s.config.Queue.Reclaim.Interval, s.runReclaimSweep); err != nil {
			return fmt.Errorf("failed to register reclaim sweep job: %w", err)
		}
		s.logger.Info().
			Str("interval", s.config.Queue.Reclaim.Interval).
			Msg("Queue reclaim sweep enabled")
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for in-flight jobs to finish.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning reports whether the cron loop is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) runScanCycle() {
	result, err := s.orchestrator.RunCycle(context.Background())
	if errors.Is(err, scanner.ErrScanInProgress) {
		s.logger.Debug().Msg("Scheduled scan skipped: cycle already in progress")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled scan cycle failed")
		return
	}

	s.logger.Info().
		Int("scanned", result.Scanned).
		Int("changes_found", result.ChangesFound).
		Msg("Scheduled scan cycle completed")
}

func (s *Service) runReclaimSweep() {
	requeued, err := s.reclaimer.Sweep(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("Reclaim sweep failed")
		return
	}
	if requeued > 0 {
		s.logger.Info().Int("requeued", requeued).Msg("Reclaim sweep requeued stale tasks")
	}
}
