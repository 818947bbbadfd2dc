package cli

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/retailbridge/rms-commerce-sync/internal/adapters/api"
	"github.com/retailbridge/rms-commerce-sync/internal/adapters/checkpoint"
	"github.com/retailbridge/rms-commerce-sync/internal/adapters/lock"
	"github.com/retailbridge/rms-commerce-sync/internal/adapters/persistence"
	"github.com/retailbridge/rms-commerce-sync/internal/application/orders"
	"github.com/retailbridge/rms-commerce-sync/internal/application/sync"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/catalog"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/taxonomy"
	"github.com/retailbridge/rms-commerce-sync/internal/infrastructure/config"
	"github.com/retailbridge/rms-commerce-sync/internal/infrastructure/database"
)

// App bundles the wired components the CLI commands work against.
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Repo     *persistence.GormRMSRepository
	Client   *api.ShopClient
	Detector *sync.ChangeDetector
	Ingest   *orders.IngestOrderHandler
	Updates  *checkpoint.FileUpdateStore
	Progress *checkpoint.FileProgressStore
}

// BuildApp wires the engine from configuration. metrics may be nil; the CLI
// runs without a registry.
func BuildApp(configPath string, metrics sync.MetricsSink, orderMetrics orders.Metrics) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Logging.Apply()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := persistence.NewGormRMSRepository(db)

	retry := api.NewRetryExecutor(cfg.Commerce.Retry.MaxAttempts, cfg.Commerce.Retry.BackoffBase, cfg.Commerce.Retry.Jitter, nil)
	if metrics != nil {
		retry.OnAttempts = metrics.APIRetries
	}
	client := api.NewShopClient(cfg.Commerce.ShopURL, cfg.Commerce.Token, cfg.Commerce.APIVersion, cfg.Commerce.RatePerSecond, retry, nil)

	updates := checkpoint.NewFileUpdateStore(cfg.Sync.CheckpointPath, cfg.Sync.SuccessThreshold, cfg.Sync.CheckpointDays, nil)
	progress := checkpoint.NewFileProgressStore(cfg.Sync.CheckpointPath, nil)

	var runLock sync.RunLock
	if cfg.Sync.LockEnabled && cfg.Sync.RedisURL != "" {
		redisClient, err := lock.NewClient(cfg.Sync.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		runLock = lock.NewRedisLock(redisClient, nil)
	}

	resolver := taxonomy.NewResolver(0, 0)
	pipeline := sync.NewPipeline(client, resolver, progress, metrics, nil)

	detector := sync.NewChangeDetector(
		repo,
		pipeline,
		runLock,
		updates,
		persistence.NewSyncRunRecorder(repo),
		metrics,
		nil,
		detectorConfig(cfg, runLock),
	)

	ingest := orders.NewIngestOrderHandler(repo, client, orderMetrics, cfg.Orders.StoreID, orders.CustomerPolicy{
		AllowOrdersWithoutCustomer: cfg.Orders.AllowWithoutCustomer,
		DefaultCustomerID:          cfg.Orders.DefaultCustomerIDPtr(),
		RequireCustomerEmail:       cfg.Orders.RequireEmail,
		GuestCustomerName:          cfg.Orders.GuestName,
	})

	return &App{
		Config:   cfg,
		DB:       db,
		Repo:     repo,
		Client:   client,
		Detector: detector,
		Ingest:   ingest,
		Updates:  updates,
		Progress: progress,
	}, nil
}

// detectorConfig maps settings onto the change detector. Sync runs always
// include zero-stock rows: a sold-out item must still flow through so its
// product goes DRAFT and its on-hand count is zeroed.
func detectorConfig(cfg *config.Config, runLock sync.RunLock) sync.DetectorConfig {
	return sync.DetectorConfig{
		LockEnabled:   cfg.Sync.LockEnabled && runLock != nil,
		LockTTL:       cfg.Sync.LockTTL(),
		RunTimeout:    cfg.Sync.RunTimeout(),
		UseCheckpoint: cfg.Sync.UseCheckpoint,
		Filter:        catalog.RowFilter{IncludeZeroStock: true},
		Pipeline: sync.Options{
			BatchSize:            cfg.Sync.BatchSize,
			MaxConcurrentBatches: cfg.Sync.MaxConcurrentJobs,
			CheckpointInterval:   cfg.Sync.CheckpointInterval,
		},
	}
}

// Close releases the app's connections.
func (a *App) Close() {
	_ = database.Close(a.DB)
}
