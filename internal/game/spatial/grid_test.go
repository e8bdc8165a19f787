package spatial

import (
	"math"
	"math/rand"
	"slices"
	"testing"
)

func TestGridDimensions(t *testing.T) {
	g := NewSpatialGrid(0, 0, 2500, 2500, 150, 100)
	cols, rows, size := g.Dimensions()
	if cols != 17 || rows != 17 || size != 150 {
		t.Errorf("Expected 17x17 cells of 150, got %dx%d of %v", cols, rows, size)
	}
}

func TestGridQueryFindsNeighbours(t *testing.T) {
	g := NewSpatialGrid(0, 0, 2500, 2500, 150, 16)
	g.Insert(0, 100, 100)
	g.Insert(1, 200, 120)   // neighbouring cell
	g.Insert(2, 2000, 2000) // far away

	got := slices.Clone(g.QueryRadius(120, 110, 150))
	slices.Sort(got)

	if !slices.Equal(got, []uint32{0, 1}) {
		t.Errorf("Expected [0 1], got %v", got)
	}
}

func TestGridOutsideBounds(t *testing.T) {
	g := NewSpatialGrid(0, 0, 1000, 1000, 100, 16)
	g.Insert(0, -300, -300)
	g.Insert(1, 1400, 500)

	if got := g.QueryRadius(-400, -250, 150); !slices.Contains(got, 0) {
		t.Errorf("Entity left of the grid should be found from outside, got %v", got)
	}
	if got := g.QueryRadius(1300, 480, 150); !slices.Contains(got, 1) {
		t.Errorf("Entity right of the grid should be found from outside, got %v", got)
	}
}

func TestGridOffsetOrigin(t *testing.T) {
	g := NewSpatialGrid(-500, -500, 500, 500, 100, 16)
	g.Insert(7, -450, 450)

	if got := g.QueryRadius(-420, 430, 50); !slices.Equal(got, []uint32{7}) {
		t.Errorf("Expected [7], got %v", got)
	}
}

// TestGridNeverMissesWithinRadius compares the broad phase against brute force
func TestGridNeverMissesWithinRadius(t *testing.T) {
	const radius = 150.0
	rng := rand.New(rand.NewSource(3))
	g := NewSpatialGrid(0, 0, 2500, 2500, radius, 300)

	xs := make([]float64, 300)
	ys := make([]float64, 300)
	for i := range xs {
		xs[i] = rng.Float64()*3000 - 250
		ys[i] = rng.Float64()*3000 - 250
		g.Insert(uint32(i), xs[i], ys[i])
	}

	for q := 0; q < 200; q++ {
		cx := rng.Float64()*3000 - 250
		cy := rng.Float64()*3000 - 250
		candidates := g.QueryRadius(cx, cy, radius)

		for i := range xs {
			if math.Hypot(xs[i]-cx, ys[i]-cy) >= radius {
				continue
			}
			if !slices.Contains(candidates, uint32(i)) {
				t.Fatalf("Entity %d at (%.1f,%.1f) missed for query at (%.1f,%.1f)", i, xs[i], ys[i], cx, cy)
			}
		}
	}
}

func TestGridClear(t *testing.T) {
	g := NewSpatialGrid(0, 0, 1000, 1000, 100, 16)
	for i := uint32(0); i < 10; i++ {
		g.Insert(i, float64(i)*90, 50)
	}
	if g.Stats().TotalEntities != 10 {
		t.Fatalf("Expected 10 entities, got %d", g.Stats().TotalEntities)
	}

	g.Clear()
	if stats := g.Stats(); stats.TotalEntities != 0 || stats.NonEmptyCells != 0 {
		t.Errorf("Expected empty grid, got %+v", stats)
	}
}

func BenchmarkGridQuery(b *testing.B) {
	g := NewSpatialGrid(0, 0, 2500, 2500, 150, 500)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		g.Insert(uint32(i), rng.Float64()*2500, rng.Float64()*2500)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.QueryRadius(1250, 1250, 150)
	}
}
