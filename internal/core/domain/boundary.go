package domain

import "time"

// SessionStatus is the lifecycle state of a boundary recording session.
type SessionStatus string

const (
	SessionIdle      SessionStatus = "idle"
	SessionRecording SessionStatus = "recording"
	SessionCompleted SessionStatus = "completed"
	SessionDiscarded SessionStatus = "discarded"
)

// BoundaryVertex is one captured boundary point. Sequence is monotonically
// increasing within a single recording session, in capture order.
type BoundaryVertex struct {
	Coordinate
	Sequence int `json:"sequence"`
}

// BoundarySession is one perimeter walk around a field. Vertices are appended
// only while recording; area and perimeter are recomputed after every append.
// Fewer than three vertices complete gracefully with zero geometry.
type BoundarySession struct {
	ID              string           `json:"id"`
	FieldID         string           `json:"field_id,omitempty"`
	Vertices        []BoundaryVertex `json:"vertices"`
	Status          SessionStatus    `json:"status"`
	AreaAcres       float64          `json:"area_acres"`
	PerimeterMeters float64          `json:"perimeter_meters"`
	StartedAt       time.Time        `json:"started_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
}

// Ring returns the vertices as a bare lat/lon ring in capture order.
func (s BoundarySession) Ring() []GeoPoint {
	ring := make([]GeoPoint, len(s.Vertices))
	for i, v := range s.Vertices {
		ring[i] = v.Point()
	}
	return ring
}
