package game

import (
	"math"
	"time"
)

// Explosion presentation constants
const (
	ExplosionFrameCount    = 16
	ExplosionDisplayRadius = 100.0
	ExplosionDuration      = 1500 * time.Millisecond
)

// Explosion is the visual record of a past detonation. It has no physical effect.
type Explosion struct {
	Position    Vec2
	Radius      float64
	Start       time.Time
	Duration    time.Duration
	TotalFrames int
	Frame       int

	exists bool
}

// NewExplosion creates an explosion that plays its animation `iterations` times over duration
func NewExplosion(pos Vec2, radius float64, start time.Time, duration time.Duration, iterations int) *Explosion {
	if iterations < 1 {
		iterations = 1
	}
	return &Explosion{
		Position:    pos,
		Radius:      radius,
		Start:       start,
		Duration:    duration,
		TotalFrames: ExplosionFrameCount * iterations,
		exists:      true,
	}
}

// Update advances the presentation frame and expires the explosion once its duration has passed
func (e *Explosion) Update(now time.Time) {
	elapsed := now.Sub(e.Start)
	if elapsed >= e.Duration {
		e.exists = false
		e.Frame = e.TotalFrames - 1
		return
	}
	if elapsed < 0 {
		elapsed = 0
	}
	progress := float64(elapsed) / float64(e.Duration)
	e.Frame = int(math.Floor(progress*float64(e.TotalFrames))) % ExplosionFrameCount
}

// Exists reports whether the explosion is still playing
func (e *Explosion) Exists() bool {
	return e.exists
}
