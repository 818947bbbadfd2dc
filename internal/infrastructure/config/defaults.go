package config

import "time"

// SetDefaults sets default values for all configuration fields
func SetDefaults(cfg *Config) {
	// Database defaults
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlserver"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 1433
	}
	if cfg.Database.PoolSize == 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Database.Timeout == 0 {
		cfg.Database.Timeout = 30
	}

	// Commerce defaults
	if cfg.Commerce.APIVersion == "" {
		cfg.Commerce.APIVersion = "2024-07"
	}
	if cfg.Commerce.RatePerSecond == 0 {
		cfg.Commerce.RatePerSecond = 2
	}
	if cfg.Commerce.Timeout == 0 {
		cfg.Commerce.Timeout = 30 * time.Second
	}
	if cfg.Commerce.Retry.MaxAttempts == 0 {
		cfg.Commerce.Retry.MaxAttempts = 3
	}
	if cfg.Commerce.Retry.BackoffBase == 0 {
		cfg.Commerce.Retry.BackoffBase = 1 * time.Second
	}
	if cfg.Commerce.Retry.Jitter == 0 {
		cfg.Commerce.Retry.Jitter = 500 * time.Millisecond
	}

	// Sync defaults
	if cfg.Sync.IntervalMinutes == 0 {
		cfg.Sync.IntervalMinutes = 5
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 10
	}
	if cfg.Sync.MaxConcurrentJobs == 0 {
		cfg.Sync.MaxConcurrentJobs = 3
	}
	if cfg.Sync.TimeoutMinutes == 0 {
		cfg.Sync.TimeoutMinutes = 30
	}
	if cfg.Sync.LockTimeoutSeconds == 0 {
		cfg.Sync.LockTimeoutSeconds = 1800
	}
	if cfg.Sync.SuccessThreshold == 0 {
		cfg.Sync.SuccessThreshold = 0.95
	}
	if cfg.Sync.CheckpointDays == 0 {
		cfg.Sync.CheckpointDays = 30
	}
	if cfg.Sync.CheckpointInterval == 0 {
		cfg.Sync.CheckpointInterval = 50
	}
	if cfg.Sync.CheckpointPath == "" {
		cfg.Sync.CheckpointPath = "./data"
	}
	if cfg.Sync.FullSyncHour == 0 && cfg.Sync.FullSyncMinute == 0 {
		cfg.Sync.FullSyncHour = 2
	}

	// Orders defaults
	if cfg.Orders.GuestName == "" {
		cfg.Orders.GuestName = "Online Guest"
	}
	if cfg.Orders.StoreID == 0 {
		cfg.Orders.StoreID = 1
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
