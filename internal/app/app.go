package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/GodsB1025/trade-monitor/internal/common"
	"github.com/GodsB1025/trade-monitor/internal/coordination"
	"github.com/GodsB1025/trade-monitor/internal/enrichment"
	"github.com/GodsB1025/trade-monitor/internal/interfaces"
	"github.com/GodsB1025/trade-monitor/internal/scanner"
	"github.com/GodsB1025/trade-monitor/internal/services/scheduler"
	storage "github.com/GodsB1025/trade-monitor/internal/storage/badger"
)

// App wires together storage, coordination, the scan pipeline and the
// scheduler. It owns the lifecycle of everything below the HTTP layer.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DB            *storage.BadgerDB
	TargetStorage interfaces.WatchTargetStorage
	ChangeStorage interfaces.ChangeRecordStorage
	Coordination  interfaces.CoordinationStore
	Enricher      interfaces.EnrichmentProvider

	LockManager  *scanner.LockManager
	Detector     *scanner.Detector
	Publisher    *scanner.Publisher
	Orchestrator *scanner.Orchestrator
	Reclaimer    *scanner.Reclaimer
	Scheduler    *scheduler.Service
}

// New builds the application from validated configuration.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	db, err := storage.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	targetStorage := storage.NewWatchTargetStorage(db, logger)
	changeStorage := storage.NewChangeRecordStorage(db, logger)
	coord := coordination.NewBadgerStore(db.DB(), logger)

	var enricher interfaces.EnrichmentProvider
	if config.Enrichment.APIKey != "" {
		client, err := enrichment.NewClient(&config.Enrichment, config.Scanner.NoUpdateSentinel, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize enrichment client: %w", err)
		}
		enricher = client
	} else {
		enricher = enrichment.NewDisabledProvider(logger)
	}

	lockTTL, err := config.Scanner.LockTTLDuration()
	if err != nil {
		db.Close()
		return nil, err
	}
	cycleTimeout, err := config.Scanner.CycleTimeoutDuration()
	if err != nil {
		db.Close()
		return nil, err
	}
	staleAfter, err := config.Queue.Reclaim.StaleAfterDuration()
	if err != nil {
		db.Close()
		return nil, err
	}

	lockManager := scanner.NewLockManager(coord, lockTTL, logger)
	detector := scanner.NewDetector(changeStorage, config.Scanner.MinContentLength, config.Scanner.NoUpdateSentinel, logger)
	publisher := scanner.NewPublisher(changeStorage, coord, logger)
	orchestrator := scanner.NewOrchestrator(
		targetStorage,
		enricher,
		detector,
		publisher,
		lockManager,
		cycleTimeout,
		config.Scanner.Concurrency,
		logger,
	)
	reclaimer := scanner.NewReclaimer(coord, staleAfter, logger)
	schedulerService := scheduler.NewService(config, orchestrator, reclaimer, logger)

	logger.Info().
		Str("environment", config.Environment).
		Int("scanner_concurrency", config.Scanner.Concurrency).
		Bool("enrichment_enabled", config.Enrichment.APIKey != "").
		Msg("Application initialized")

	return &App{
		Config:        config,
		Logger:        logger,
		DB:            db,
		TargetStorage: targetStorage,
		ChangeStorage: changeStorage,
		Coordination:  coord,
		Enricher:      enricher,
		LockManager:   lockManager,
		Detector:      detector,
		Publisher:     publisher,
		Orchestrator:  orchestrator,
		Reclaimer:     reclaimer,
		Scheduler:     schedulerService,
	}, nil
}

// Start launches background services.
func (a *App) Start() error {
	return a.Scheduler.Start()
}

// Close stops background services and releases storage.
func (a *App) Close() error {
	if err := a.Scheduler.Stop(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
	}
	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	a.Logger.Info().Msg("Application closed")
	return nil
}
