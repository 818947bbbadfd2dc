package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/retailbridge/rms-commerce-sync/internal/adapters/cli"
	"github.com/retailbridge/rms-commerce-sync/internal/adapters/metrics"
	"github.com/retailbridge/rms-commerce-sync/internal/application/sync"
	"github.com/retailbridge/rms-commerce-sync/internal/infrastructure/pidfile"
)

const defaultPIDFile = "/tmp/rms-sync-daemon.pid"

func main() {
	forceFlag := flag.Bool("force", false, "Kill any existing daemon and start a new one")
	configFlag := flag.String("config", "", "Path to config file")
	metricsAddr := flag.String("metrics-addr", ":9090", "Listen address for the /metrics endpoint (empty disables)")
	pidPath := flag.String("pidfile", defaultPIDFile, "Path to the PID file")
	flag.Parse()

	fmt.Println("RMS Commerce Sync Daemon v0.1.0")
	fmt.Println("===============================")

	// Acquire PID file lock to prevent multiple instances
	pf := pidfile.New(*pidPath)
	if err := pf.Acquire(); err != nil {
		if *forceFlag {
			fmt.Println("Force mode enabled - attempting to kill existing daemon...")
			if killErr := pf.KillExisting(); killErr != nil {
				log.Fatalf("Failed to kill existing daemon: %v", killErr)
			}
			if err := pf.Acquire(); err != nil {
				log.Fatalf("Failed to acquire PID file lock after killing existing daemon: %v", err)
			}
		} else {
			log.Fatalf("Failed to acquire PID file lock: %v\nUse --force to kill the existing daemon", err)
		}
	}
	defer func() {
		if err := pf.Release(); err != nil {
			log.Printf("Warning: failed to release PID file: %v", err)
		}
	}()

	if err := run(*configFlag, *metricsAddr); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(configPath, metricsAddr string) error {
	// Metrics registry and collectors
	metrics.InitRegistry()
	syncMetrics := metrics.NewSyncMetricsCollector()
	orderMetrics := metrics.NewOrderMetricsCollector()
	if err := syncMetrics.Register(metrics.Registry); err != nil {
		return fmt.Errorf("failed to register sync metrics: %w", err)
	}
	if err := orderMetrics.Register(metrics.Registry); err != nil {
		return fmt.Errorf("failed to register order metrics: %w", err)
	}

	app, err := cli.BuildApp(configPath, syncMetrics, orderMetrics)
	if err != nil {
		return err
	}
	defer app.Close()

	logrus.WithFields(logrus.Fields{
		"interval":  app.Config.Sync.Interval(),
		"full_sync": app.Config.Sync.FullSyncEnabled,
	}).Info("daemon configured")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics endpoint
	var metricsServer *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		metricsServer = &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			logrus.WithField("addr", metricsAddr).Info("metrics endpoint listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.WithError(err).Error("metrics server failed")
			}
		}()
	}

	location, err := app.Config.Sync.Location()
	if err != nil {
		return fmt.Errorf("invalid full sync timezone: %w", err)
	}

	scheduler := sync.NewScheduler(app.Detector, app.Progress, nil, sync.SchedulerConfig{
		TickInterval:     app.Config.Sync.Interval(),
		FullSyncEnabled:  app.Config.Sync.FullSyncEnabled,
		FullSyncHour:     app.Config.Sync.FullSyncHour,
		FullSyncMinute:   app.Config.Sync.FullSyncMinute,
		FullSyncLocation: location,
		FullSyncWeekdays: app.Config.Sync.Weekdays(),
	})

	err = scheduler.Run(ctx)

	// Graceful shutdown of the metrics endpoint
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	logrus.Info("daemon stopped")
	return err
}
