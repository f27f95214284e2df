package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/core/ports"
	"github.com/fieldmark/fieldmark/internal/core/usecases"
)

// AgentDependencies holds the services the on-device control API exposes.
type AgentDependencies struct {
	Recorder *usecases.RecordingService
	Captures *usecases.CaptureService
	Sync     *usecases.SyncService
	Accuracy *usecases.AccuracyService
	Source   ports.PositionSource

	// FixSampleInterval spaces out the fixes collected for an averaged
	// location capture. Tests shrink it to keep the suite fast.
	FixSampleInterval time.Duration
}

// SetupAgentRoutes registers the local control API served on the device.
// It is reachable only from localhost and carries no auth.
func SetupAgentRoutes(app *fiber.App, deps *AgentDependencies) {
	if deps.FixSampleInterval <= 0 {
		deps.FixSampleInterval = 500 * time.Millisecond
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/v1/status", AgentStatusHandler(deps))

	v1 := app.Group("/v1")
	v1.Post("/capture/location", CaptureLocationHandler(deps))
	v1.Post("/capture/media", CaptureMediaHandler(deps))
	v1.Get("/artifacts", LocalArtifactsHandler(deps))
	v1.Post("/recording/start", RecordingStartHandler(deps))
	v1.Get("/recording", RecordingSessionHandler(deps))
	v1.Post("/recording/stop", RecordingStopHandler(deps))
	v1.Post("/recording/discard", RecordingDiscardHandler(deps))
	v1.Post("/sync", SyncTriggerHandler(deps))
}

// AgentStatusHandler reports connectivity, the recording session, and how
// much capture data is still waiting to reach the hub.
func AgentStatusHandler(deps *AgentDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pending, err := deps.Captures.List(c.Context(), domain.ArtifactFilter{
			SyncStates: []domain.SyncState{domain.SyncPending, domain.SyncFailed},
		})
		if err != nil {
			return errInternal(c, "failed to read capture store")
		}
		session := deps.Recorder.Session()
		return c.JSON(fiber.Map{
			"online":            deps.Sync.Online(),
			"recording":         session.Status == domain.SessionRecording,
			"session_id":        session.ID,
			"pending_artifacts": len(pending),
		})
	}
}

// CaptureLocationHandler samples several fixes, averages them, and stores
// the result as a pending location artifact.
func CaptureLocationHandler(deps *AgentDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n := deps.Accuracy.MinFixes()
		fixes := make([]domain.Coordinate, 0, n)
		for i := 0; i < n; i++ {
			if i > 0 {
				time.Sleep(deps.FixSampleInterval)
			}
			fix, err := deps.Source.Current(c.Context())
			if err != nil {
				return errInternal(c, "position source unavailable: "+err.Error())
			}
			fixes = append(fixes, *fix)
		}

		improved, err := deps.Accuracy.Improve(fixes)
		if err != nil {
			return errInternal(c, err.Error())
		}

		artifact, err := deps.Captures.CaptureLocation(c.Context(), *improved)
		if err != nil {
			return errInternal(c, err.Error())
		}
		deps.Sync.TriggerSync()
		return c.Status(201).JSON(artifact)
	}
}

type captureMediaRequest struct {
	Kind     string               `json:"kind"`
	BlobRef  string               `json:"blob_ref"`
	Metadata domain.MediaMetadata `json:"metadata"`
}

// CaptureMediaHandler stores a photo or voice note reference for later sync.
func CaptureMediaHandler(deps *AgentDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req captureMediaRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		kind := domain.ArtifactKind(req.Kind)
		if kind != domain.KindPhoto && kind != domain.KindVoiceNote {
			return errBadRequest(c, "kind must be photo or voice_note")
		}
		if req.BlobRef == "" {
			return errBadRequest(c, "blob_ref is required")
		}
		if req.Metadata.CapturedAt.IsZero() {
			req.Metadata.CapturedAt = time.Now().UTC()
		}

		artifact, err := deps.Captures.CaptureMedia(c.Context(), kind, domain.MediaPayload{
			BlobRef:  req.BlobRef,
			Metadata: req.Metadata,
		})
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		deps.Sync.TriggerSync()
		return c.Status(201).JSON(artifact)
	}
}

// LocalArtifactsHandler lists artifacts in the on-device store, filterable
// by kind and sync state.
func LocalArtifactsHandler(deps *AgentDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := domain.ArtifactFilter{}
		if kind := c.Query("kind"); kind != "" {
			k := domain.ArtifactKind(kind)
			if !domain.ValidKind(k) {
				return errBadRequest(c, "unknown artifact kind: "+kind)
			}
			filter.Kind = k
		}
		if state := c.Query("state"); state != "" {
			filter.SyncStates = []domain.SyncState{domain.SyncState(state)}
		}

		artifacts, err := deps.Captures.List(c.Context(), filter)
		if err != nil {
			return errInternal(c, "failed to read capture store")
		}
		return c.JSON(fiber.Map{"artifacts": artifacts, "count": len(artifacts)})
	}
}

type recordingStartRequest struct {
	FieldID string `json:"field_id"`
}

// RecordingStartHandler begins a walk-the-boundary session.
func RecordingStartHandler(deps *AgentDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req recordingStartRequest
		_ = c.BodyParser(&req) // field_id is optional

		if err := deps.Recorder.Start(c.Context(), req.FieldID); err != nil {
			if errors.Is(err, domain.ErrAlreadyRecording) {
				return errConflict(c, err.Error())
			}
			return errInternal(c, err.Error())
		}
		return c.Status(201).JSON(deps.Recorder.Session())
	}
}

// RecordingSessionHandler returns the live session snapshot.
func RecordingSessionHandler(deps *AgentDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Recorder.Session())
	}
}

// RecordingStopHandler completes the session and queues the boundary
// artifact for sync.
func RecordingStopHandler(deps *AgentDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := deps.Recorder.Stop(c.Context())
		if err != nil {
			if errors.Is(err, domain.ErrNotRecording) {
				return errConflict(c, err.Error())
			}
			return errInternal(c, err.Error())
		}
		deps.Sync.TriggerSync()
		return c.JSON(session)
	}
}

// RecordingDiscardHandler abandons the session without persisting anything.
func RecordingDiscardHandler(deps *AgentDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Recorder.Discard()
		return c.SendStatus(204)
	}
}

// SyncTriggerHandler nudges the sync loop to drain now.
func SyncTriggerHandler(deps *AgentDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Sync.TriggerSync()
		return c.Status(202).JSON(fiber.Map{"status": "sync triggered"})
	}
}
