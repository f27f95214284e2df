package domain

import "errors"

// Coordinate input errors. Latitude/longitude out of domain is always
// surfaced, never clamped.
var (
	ErrLatitudeRange  = errors.New("latitude out of range [-90, 90]")
	ErrLongitudeRange = errors.New("longitude out of range [-180, 180]")
	ErrZoneRange      = errors.New("utm zone out of range [1, 60]")
	ErrFormat         = errors.New("malformed coordinate text")
)

// Accuracy improvement errors. The caller decides whether to retry capture.
var (
	ErrInsufficientFixes = errors.New("not enough fixes to improve")
	ErrAllFixesRejected  = errors.New("all fixes rejected as outliers")
)

// Boundary session misuse. These indicate a caller bug, not a user condition.
var (
	ErrAlreadyRecording = errors.New("boundary recording already in progress")
	ErrNotRecording     = errors.New("no boundary recording in progress")
)

// Position source errors, translated to user guidance above the core.
var (
	ErrPermissionDenied    = errors.New("position source permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrPositionTimeout     = errors.New("position request timed out")
)

// ErrArtifactNotFound is returned by repositories when an id is unknown.
// The capture store's Mark* transitions deliberately swallow it: sync racing
// a local delete is expected and non-fatal.
var ErrArtifactNotFound = errors.New("artifact not found")
