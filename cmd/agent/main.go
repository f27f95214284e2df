package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/fieldmark/fieldmark/internal/adapters/gps"
	"github.com/fieldmark/fieldmark/internal/adapters/http"
	natsadapter "github.com/fieldmark/fieldmark/internal/adapters/nats"
	"github.com/fieldmark/fieldmark/internal/adapters/remote"
	"github.com/fieldmark/fieldmark/internal/adapters/sqlite"
	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/core/usecases"
	"github.com/fieldmark/fieldmark/internal/pkg/config"
	"github.com/fieldmark/fieldmark/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load("fieldmark-agent")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Durable on-device store. Everything captured lands here first.
	store, err := sqlite.New(cfg.Agent.StorePath)
	if err != nil {
		log.Fatalf("capture store: %v", err)
	}
	defer store.Close()

	// Event broker is best-effort: the agent spends most of its life
	// offline, so a missing connection only disables live fan-out.
	var publisher *natsadapter.Publisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, live updates disabled", "error", err)
	} else {
		publisher = pub
		defer publisher.Close()
	}

	if !cfg.Capture.SimulateGPS {
		slog.Warn("no hardware GPS on this build, falling back to simulator")
	}
	source := gps.NewSimulator(domain.GeoPoint{
		Lat: cfg.Capture.SimCenterLat,
		Lon: cfg.Capture.SimCenterLon,
	}, 60, time.Second)

	captureSvc := usecases.NewCaptureService(store)
	accuracySvc := usecases.NewAccuracyService(cfg.Capture.MinFixes)
	recorder := newRecorder(source, captureSvc, publisher, cfg.Capture.MaxAccuracyMeters)

	hub := remote.New(cfg.Agent.HubURL, 15*time.Second)
	syncSvc := newSyncer(store, hub, publisher, cfg.Agent.RetainSynced)

	// Background drain loop plus connectivity probing. The probe flips the
	// online flag; the flip itself triggers an immediate drain.
	go syncSvc.Run(ctx, time.Duration(cfg.Agent.SyncInterval)*time.Second)
	go probeLoop(ctx, hub, syncSvc, time.Duration(cfg.Agent.ProbeInterval)*time.Second)

	app := fiber.New(fiber.Config{
		AppName: "Fieldmark Agent",
	})
	app.Use(recover.New())
	app.Use(logger.New())

	http.SetupAgentRoutes(app, &http.AgentDependencies{
		Recorder: recorder,
		Captures: captureSvc,
		Sync:     syncSvc,
		Accuracy: accuracySvc,
		Source:   source,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Agent.Port)
		slog.Info("agent control API starting", "addr", addr, "store", cfg.Agent.StorePath)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("agent stopped")
}

// probeLoop polls the hub health endpoint and keeps the sync service's
// online flag current.
func probeLoop(ctx context.Context, hub *remote.Client, sync *usecases.SyncService, interval time.Duration) {
	sync.SetOnline(hub.Probe(ctx))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sync.SetOnline(hub.Probe(ctx))
		}
	}
}

// newRecorder and newSyncer exist so a nil *natsadapter.Publisher does not
// end up as a non-nil ports.EventPublisher interface value.
func newRecorder(source *gps.Simulator, captures *usecases.CaptureService, pub *natsadapter.Publisher, maxAccuracy float64) *usecases.RecordingService {
	if pub == nil {
		return usecases.NewRecordingService(source, captures, nil, maxAccuracy)
	}
	return usecases.NewRecordingService(source, captures, pub, maxAccuracy)
}

func newSyncer(store *sqlite.Store, target *remote.Client, pub *natsadapter.Publisher, retain bool) *usecases.SyncService {
	if pub == nil {
		return usecases.NewSyncService(store, target, nil, retain)
	}
	return usecases.NewSyncService(store, target, pub, retain)
}
