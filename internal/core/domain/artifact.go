package domain

import (
	"encoding/json"
	"time"
)

// ArtifactKind tags the payload type of a captured artifact.
type ArtifactKind string

const (
	KindLocation  ArtifactKind = "location"
	KindBoundary  ArtifactKind = "boundary"
	KindPhoto     ArtifactKind = "photo"
	KindVoiceNote ArtifactKind = "voice_note"
)

// ValidKind reports whether k is one of the known artifact kinds.
func ValidKind(k ArtifactKind) bool {
	switch k {
	case KindLocation, KindBoundary, KindPhoto, KindVoiceNote:
		return true
	}
	return false
}

// SyncState is the upload status of a captured artifact.
type SyncState string

const (
	SyncPending SyncState = "pending"
	SyncSyncing SyncState = "syncing"
	SyncSynced  SyncState = "synced"
	SyncFailed  SyncState = "failed"
)

// CaptureArtifact is one unit of captured field data awaiting (or having
// completed) synchronization. The payload shape is kind-specific:
// location → Coordinate, boundary → BoundarySession, photo/voice_note →
// MediaPayload. Payloads are owned by the capture store; the sync layer only
// touches SyncState and Attempts.
type CaptureArtifact struct {
	ID         string          `json:"id"`
	Kind       ArtifactKind    `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	CapturedAt time.Time       `json:"captured_at"`
	SyncState  SyncState       `json:"sync_state"`
	Attempts   int             `json:"attempts"`
}

// MediaPayload is the payload for photo and voice note artifacts. The blob
// itself lives outside the core; only a reference travels through sync.
type MediaPayload struct {
	BlobRef  string        `json:"blob_ref"`
	Metadata MediaMetadata `json:"metadata"`
}

// MediaMetadata is capture context attached to a media blob.
type MediaMetadata struct {
	Location   *Coordinate `json:"location,omitempty"`
	FieldID    string      `json:"field_id,omitempty"`
	CapturedAt time.Time   `json:"captured_at"`
}

// ArtifactFilter narrows capture store listings. Zero values match everything.
type ArtifactFilter struct {
	Kind       ArtifactKind
	SyncStates []SyncState
}

// Matches reports whether the artifact passes the filter.
func (f ArtifactFilter) Matches(a CaptureArtifact) bool {
	if f.Kind != "" && a.Kind != f.Kind {
		return false
	}
	if len(f.SyncStates) > 0 {
		ok := false
		for _, s := range f.SyncStates {
			if a.SyncState == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// NewLocationArtifact wraps an improved coordinate as a pending artifact.
func NewLocationArtifact(c Coordinate) (*CaptureArtifact, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return &CaptureArtifact{
		Kind:       KindLocation,
		Payload:    payload,
		CapturedAt: c.CapturedAt,
		SyncState:  SyncPending,
	}, nil
}

// NewBoundaryArtifact wraps a completed boundary session as a pending artifact.
func NewBoundaryArtifact(s BoundarySession) (*CaptureArtifact, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	capturedAt := s.StartedAt
	if s.CompletedAt != nil {
		capturedAt = *s.CompletedAt
	}
	return &CaptureArtifact{
		ID:         s.ID,
		Kind:       KindBoundary,
		Payload:    payload,
		CapturedAt: capturedAt,
		SyncState:  SyncPending,
	}, nil
}

// NewMediaArtifact wraps a finished photo or voice note capture.
func NewMediaArtifact(kind ArtifactKind, m MediaPayload) (*CaptureArtifact, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return &CaptureArtifact{
		Kind:       kind,
		Payload:    payload,
		CapturedAt: m.Metadata.CapturedAt,
		SyncState:  SyncPending,
	}, nil
}
