package config

import (
	"strings"
	"time"
)

// SyncConfig holds the sync engine configuration
type SyncConfig struct {
	// Change-detect tick interval
	IntervalMinutes int `mapstructure:"interval_minutes" validate:"min=1"`

	// Products per pipeline batch (K)
	BatchSize int `mapstructure:"batch_size" validate:"min=1"`

	// Batches in flight (P)
	MaxConcurrentJobs int `mapstructure:"max_concurrent_jobs" validate:"min=1"`

	// Per-run timeout
	TimeoutMinutes int `mapstructure:"timeout_minutes" validate:"min=1"`

	// Distributed lock
	LockEnabled        bool   `mapstructure:"lock_enabled"`
	LockTimeoutSeconds int    `mapstructure:"lock_timeout_seconds" validate:"min=1"`
	RedisURL           string `mapstructure:"redis_url"`

	// Watermark checkpoint
	UseCheckpoint      bool    `mapstructure:"use_checkpoint"`
	SuccessThreshold   float64 `mapstructure:"success_threshold" validate:"min=0,max=1"`
	CheckpointDays     int     `mapstructure:"checkpoint_days" validate:"min=1"`
	CheckpointInterval int     `mapstructure:"checkpoint_interval" validate:"min=1"`
	CheckpointPath     string  `mapstructure:"checkpoint_path" validate:"required"`

	// Nightly full sync
	FullSyncEnabled  bool   `mapstructure:"full_sync_enabled"`
	FullSyncHour     int    `mapstructure:"full_sync_hour" validate:"min=0,max=23"`
	FullSyncMinute   int    `mapstructure:"full_sync_minute" validate:"min=0,max=59"`
	FullSyncTimezone string `mapstructure:"full_sync_timezone"`
	// Comma-separated weekday names; empty means every day
	FullSyncDays string `mapstructure:"full_sync_days"`
}

// Interval returns the change-detect tick interval as a duration
func (c *SyncConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// RunTimeout returns the per-run timeout as a duration
func (c *SyncConfig) RunTimeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// LockTTL returns the lock TTL as a duration
func (c *SyncConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTimeoutSeconds) * time.Second
}

// Location resolves the full-sync timezone, defaulting to UTC
func (c *SyncConfig) Location() (*time.Location, error) {
	if c.FullSyncTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.FullSyncTimezone)
}

// Weekdays parses the FULL_SYNC_DAYS mask into weekday values
func (c *SyncConfig) Weekdays() []time.Weekday {
	if strings.TrimSpace(c.FullSyncDays) == "" {
		return nil
	}
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	var days []time.Weekday
	for _, part := range strings.Split(c.FullSyncDays, ",") {
		if day, ok := names[strings.ToLower(strings.TrimSpace(part))]; ok {
			days = append(days, day)
		}
	}
	return days
}
