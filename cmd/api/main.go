package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/fieldmark/fieldmark/internal/adapters/http"
	natsadapter "github.com/fieldmark/fieldmark/internal/adapters/nats"
	"github.com/fieldmark/fieldmark/internal/adapters/postgres"
	"github.com/fieldmark/fieldmark/internal/adapters/valkey"
	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/core/usecases"
	"github.com/fieldmark/fieldmark/internal/pkg/config"
	"github.com/fieldmark/fieldmark/internal/pkg/logging"
	"github.com/fieldmark/fieldmark/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("fieldmark-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
	}

	// NATS
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats subscriber unavailable", "error", err)
		subscriber = nil
	} else {
		defer subscriber.Close()
	}

	// Repos
	farmRepo := postgres.NewFarmRepo(db)
	fieldRepo := postgres.NewFieldRepo(db)
	artifactRepo := postgres.NewArtifactRepo(db)

	// Use cases
	fieldSvc := newFieldService(farmRepo, fieldRepo, cache)
	ingestSvc := newIngestService(artifactRepo, fieldRepo, nc)
	accuracySvc := usecases.NewAccuracyService(cfg.Capture.MinFixes)

	// Boundary artifacts can reach postgres through any hub replica; the
	// broker event is what keeps this replica's field cache honest.
	if subscriber != nil {
		err := subscriber.SubscribeArtifactSynced(ctx, func(ctx context.Context, artifact *domain.CaptureArtifact) error {
			if artifact.Kind != domain.KindBoundary {
				return nil
			}
			var session domain.BoundarySession
			if err := json.Unmarshal(artifact.Payload, &session); err != nil {
				return fmt.Errorf("decode boundary session: %w", err)
			}
			if session.FieldID != "" {
				fieldSvc.InvalidateField(ctx, session.FieldID)
			}
			return nil
		})
		if err != nil {
			slog.Warn("subscribe artifact sync events", "error", err)
		}
	}

	deps := &http.Dependencies{
		Fields:   fieldSvc,
		Ingest:   ingestSvc,
		Accuracy: accuracySvc,
		NATS:     natsConn,
		DB:       db,
		Cache:    cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // photo artifacts arrive base64-encoded
		AppName:      "Fieldmark API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.fieldmark.app",
		AllowMethods:     "GET,POST,PUT,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// The services nil-check their optional collaborators through interfaces, so
// a nil adapter pointer must not be handed over as a non-nil interface value.
func newFieldService(farms *postgres.FarmRepo, fields *postgres.FieldRepo, cache *valkey.Cache) *usecases.FieldService {
	if cache == nil {
		return usecases.NewFieldService(farms, fields, nil)
	}
	return usecases.NewFieldService(farms, fields, cache)
}

func newIngestService(artifacts *postgres.ArtifactRepo, fields *postgres.FieldRepo, pub *natsadapter.Publisher) *usecases.IngestService {
	if pub == nil {
		return usecases.NewIngestService(artifacts, fields, nil)
	}
	return usecases.NewIngestService(artifacts, fields, pub)
}
