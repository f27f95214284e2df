// Package gps provides position sources for the field agent. The simulator
// stands in for receiver hardware during development and testing.
package gps

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/fieldmark/fieldmark/internal/core/domain"
)

// Simulator implements ports.PositionSource with a scripted walk around a
// center point. Each fix carries gaussian position noise and a jittered
// accuracy estimate, roughly what a consumer receiver reports in open sky.
type Simulator struct {
	mu sync.Mutex

	center    domain.GeoPoint
	radiusDeg float64
	noiseDeg  float64
	accuracy  float64
	interval  time.Duration

	step int
}

// NewSimulator creates a simulator walking a circle of radiusMeters around
// center, emitting one fix per interval.
func NewSimulator(center domain.GeoPoint, radiusMeters float64, interval time.Duration) *Simulator {
	if interval <= 0 {
		interval = time.Second
	}
	return &Simulator{
		center:    center,
		radiusDeg: radiusMeters / 111320,
		noiseDeg:  2.5 / 111320,
		accuracy:  6,
		interval:  interval,
	}
}

// Current returns the next fix on the walk without waiting for the tick.
func (s *Simulator) Current(ctx context.Context) (*domain.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fix := s.next()
	return &fix, nil
}

// Watch emits fixes until ctx is cancelled, then closes the channel.
func (s *Simulator) Watch(ctx context.Context) (<-chan domain.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan domain.Coordinate)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case ch <- s.next():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func (s *Simulator) next() domain.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 72 steps per lap keeps consecutive fixes a few meters apart.
	angle := float64(s.step) * 2 * math.Pi / 72
	s.step++

	lat := s.center.Lat + s.radiusDeg*math.Sin(angle) + rand.NormFloat64()*s.noiseDeg
	lon := s.center.Lon + s.radiusDeg*math.Cos(angle) + rand.NormFloat64()*s.noiseDeg

	acc := s.accuracy + rand.Float64()*4
	alt := 1660 + rand.NormFloat64()*3

	return domain.Coordinate{
		Latitude:       lat,
		Longitude:      lon,
		AccuracyMeters: &acc,
		AltitudeMeters: &alt,
		CapturedAt:     time.Now(),
	}
}
