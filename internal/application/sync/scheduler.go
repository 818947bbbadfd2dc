package sync

import (
	"context"
	"time"

	"github.com/retailbridge/rms-commerce-sync/internal/application/common"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

// Scheduler defaults.
const (
	DefaultTickInterval    = 5 * time.Minute
	DefaultMaintenanceHour = 4
)

// SchedulerConfig tunes the three background jobs.
type SchedulerConfig struct {
	// TickInterval drives the change-detect loop.
	TickInterval time.Duration
	// FullSyncEnabled turns the nightly full sync on.
	FullSyncEnabled  bool
	FullSyncHour     int
	FullSyncMinute   int
	FullSyncLocation *time.Location
	// FullSyncWeekdays restricts full syncs to the listed days; empty means
	// every day.
	FullSyncWeekdays []time.Weekday
	// ProgressRetention bounds how long finished progress checkpoints are
	// kept before maintenance trims them.
	ProgressRetention time.Duration
}

func (c *SchedulerConfig) normalize() {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.FullSyncLocation == nil {
		c.FullSyncLocation = time.UTC
	}
	if c.ProgressRetention <= 0 {
		c.ProgressRetention = 7 * 24 * time.Hour
	}
}

// Scheduler drives the recurring jobs: change-detect on an interval, full
// sync at a nightly slot, and daily maintenance. All three run on the same
// goroutine as Run's caller via its context.
type Scheduler struct {
	detector *ChangeDetector
	progress ProgressStore
	clock    shared.Clock
	cfg      SchedulerConfig
}

// NewScheduler wires a scheduler over a detector.
func NewScheduler(detector *ChangeDetector, progress ProgressStore, clock shared.Clock, cfg SchedulerConfig) *Scheduler {
	cfg.normalize()
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Scheduler{detector: detector, progress: progress, clock: clock, cfg: cfg}
}

// Run blocks until ctx is cancelled, dispatching jobs as their slots come
// due. Overlapping change-detect ticks are skipped rather than queued.
func (s *Scheduler) Run(ctx context.Context) error {
	log := common.LoggerFromContext(ctx)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	fullSync := s.nextFullSyncTimer()
	maintenance := time.NewTimer(s.untilNextDaily(DefaultMaintenanceHour, 0))
	defer maintenance.Stop()
	if fullSync != nil {
		defer fullSync.Stop()
	}

	var fullSyncC <-chan time.Time
	if fullSync != nil {
		fullSyncC = fullSync.C
	}

	log.WithField("interval", s.cfg.TickInterval).Info("scheduler started")

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopping")
			return ctx.Err()

		case <-ticker.C:
			if s.detector.State() == StateRunning {
				// Misfire policy: skip, never queue.
				log.Debug("previous tick still running; skipping")
				continue
			}
			if _, err := s.detector.RunChangeDetect(ctx); err != nil {
				log.WithError(err).Error("change-detect run failed")
			}

		case <-fullSyncC:
			s.runFullSync(ctx)
			fullSync.Reset(s.untilNextFullSync())

		case <-maintenance.C:
			s.runMaintenance(ctx)
			maintenance.Reset(s.untilNextDaily(DefaultMaintenanceHour, 0))
		}
	}
}

func (s *Scheduler) runFullSync(ctx context.Context) {
	log := common.LoggerFromContext(ctx)
	log.Info("starting scheduled full sync")
	if _, err := s.detector.RunFullSync(ctx, false); err != nil {
		log.WithError(err).Error("full sync failed")
	}
}

func (s *Scheduler) runMaintenance(ctx context.Context) {
	log := common.LoggerFromContext(ctx)
	removed, err := s.progress.GC(s.cfg.ProgressRetention)
	if err != nil {
		log.WithError(err).Warn("progress checkpoint cleanup failed")
		return
	}
	if removed > 0 {
		log.WithField("removed", removed).Info("trimmed stale progress checkpoints")
	}
}

func (s *Scheduler) nextFullSyncTimer() *time.Timer {
	if !s.cfg.FullSyncEnabled {
		return nil
	}
	return time.NewTimer(s.untilNextFullSync())
}

func (s *Scheduler) untilNextFullSync() time.Duration {
	next := shared.NextDailyOccurrence(s.clock.Now(), s.cfg.FullSyncHour, s.cfg.FullSyncMinute, s.cfg.FullSyncLocation, s.cfg.FullSyncWeekdays)
	return next.Sub(s.clock.Now())
}

func (s *Scheduler) untilNextDaily(hour, minute int) time.Duration {
	next := shared.NextDailyOccurrence(s.clock.Now(), hour, minute, time.UTC, nil)
	return next.Sub(s.clock.Now())
}
