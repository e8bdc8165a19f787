package game

import (
	"math"
	"math/rand"
)

// Default arena bounds
const (
	WorldMin = 0.0
	WorldMax = 2500.0
)

// World is the arena policy: fixed rectangular bounds and spawn selection.
// The only state it carries is its random source.
type World struct {
	Min Vec2
	Max Vec2

	rng *rand.Rand
}

// NewWorld creates a square world spanning [min, max] on both axes
func NewWorld(min, max float64, seed int64) *World {
	return &World{
		Min: Vec2{min, min},
		Max: Vec2{max, max},
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Width returns the horizontal extent of the world
func (w *World) Width() float64 { return w.Max.X - w.Min.X }

// Height returns the vertical extent of the world
func (w *World) Height() float64 { return w.Max.Y - w.Min.Y }

// RandomSpawnPoint returns a point uniformly distributed inside the bounds
func (w *World) RandomSpawnPoint() Vec2 {
	return Vec2{
		X: w.Min.X + w.rng.Float64()*w.Width(),
		Y: w.Min.Y + w.rng.Float64()*w.Height(),
	}
}

// Clamp returns p with each axis clamped into bounds (inclusive)
func (w *World) Clamp(p Vec2) Vec2 {
	return Vec2{
		X: math.Max(w.Min.X, math.Min(w.Max.X, p.X)),
		Y: math.Max(w.Min.Y, math.Min(w.Max.Y, p.Y)),
	}
}

// Contains reports whether p lies inside the bounds (inclusive)
func (w *World) Contains(p Vec2) bool {
	return p.X >= w.Min.X && p.X <= w.Max.X && p.Y >= w.Min.Y && p.Y <= w.Max.Y
}
