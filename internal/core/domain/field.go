package domain

import "time"

// Farm is a registered farm location captured by a field operator.
type Farm struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerName string    `json:"owner_name,omitempty"`
	Location  GeoPoint  `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// Field is a single cultivated plot belonging to a farm. Its boundary and
// derived geometry come from a synced boundary recording.
type Field struct {
	ID              string     `json:"id"`
	FarmID          string     `json:"farm_id"`
	Name            string     `json:"name"`
	Location        GeoPoint   `json:"location"`
	Boundary        []GeoPoint `json:"boundary,omitempty"`
	AreaAcres       float64    `json:"area_acres"`
	PerimeterMeters float64    `json:"perimeter_meters"`
	Distance        *float64   `json:"distance,omitempty"` // computed field
	CreatedAt       time.Time  `json:"created_at"`
}
