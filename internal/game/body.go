package game

import (
	"math"
	"time"
)

// Friction is the deceleration (units/s²) applied against velocity on every axis
const Friction = 400.0

// Vec2 is a 2D vector in world units
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v * s
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Len returns the Euclidean length of v
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// DistanceTo returns the Euclidean distance between v and o
func (v Vec2) DistanceTo(o Vec2) float64 { return o.Sub(v).Len() }

// IsFinite reports whether both components are real numbers
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Body is the shared kinematic state of every physical entity.
// Entities embed a Body and delegate integration to it.
type Body struct {
	Position     Vec2
	Velocity     Vec2
	Acceleration Vec2
	Radius       float64

	lastUpdate time.Time
}

// NewBody creates a body at rest
func NewBody(pos Vec2, radius float64) Body {
	return Body{Position: pos, Radius: radius}
}

// ElapsedDuration returns the time Integrate would advance by at now.
// The first call after creation yields zero so a freshly spawned entity never jumps.
func (b *Body) ElapsedDuration(now time.Time) time.Duration {
	if b.lastUpdate.IsZero() {
		return 0
	}
	dt := now.Sub(b.lastUpdate)
	if dt < 0 {
		return 0
	}
	return dt
}

// Elapsed is ElapsedDuration in seconds
func (b *Body) Elapsed(now time.Time) float64 {
	return b.ElapsedDuration(now).Seconds()
}

// LastUpdate returns the timestamp of the last integration step
func (b *Body) LastUpdate() time.Time {
	return b.lastUpdate
}

// Integrate advances velocity and position to now, then clears acceleration
func (b *Body) Integrate(now time.Time) {
	dt := b.Elapsed(now)

	b.Velocity.X = applyFriction(b.Velocity.X, dt)
	b.Velocity.Y = applyFriction(b.Velocity.Y, dt)

	b.Velocity = b.Velocity.Add(b.Acceleration.Scale(dt))
	b.Position = b.Position.Add(b.Velocity.Scale(dt))

	b.Acceleration = Vec2{}
	b.lastUpdate = now
}

// ApplyForce accumulates f into acceleration; it takes effect on the next Integrate
func (b *Body) ApplyForce(f Vec2) {
	b.Acceleration = b.Acceleration.Add(f)
}

// Stop zeroes velocity and pending acceleration
func (b *Body) Stop() {
	b.Velocity = Vec2{}
	b.Acceleration = Vec2{}
}

// applyFriction decelerates one velocity component, snapping to zero instead of
// crossing it
func applyFriction(v, dt float64) float64 {
	if v == 0 {
		return 0
	}
	decel := Friction * dt
	if decel >= math.Abs(v) {
		return 0
	}
	if v > 0 {
		return v - decel
	}
	return v + decel
}
