// Package spatial provides cache-efficient spatial data structures for
// broad-phase neighbor queries.
//
// Structures store integer indices (not pointers) into the caller's entity
// slice to minimize GC pressure and keep cells cache friendly.
package spatial

import (
	"math"
)

// SpatialGrid buckets entity indices into fixed-size square cells.
//
// Optimal cell size equals the largest query radius. For the arena that is
// the explosion radius, so a detonation touches at most a 3x3 block of cells.
//
// Entities outside the covered area are stored in the nearest edge cell, and
// queries clamp the same way, so nothing within the radius is ever missed.
//
// Memory layout: cells are stored in row-major order (cells[row*cols+col])
type SpatialGrid struct {
	originX, originY float64
	cellSize         float64
	invCellSize      float64 // 1/cellSize for faster division
	cols, rows       int
	cells            [][]uint32 // cells[row*cols+col] = list of entity indices
	scratch          []uint32   // reusable buffer for query results
}

// NewSpatialGrid creates a grid covering [minX, maxX]×[minY, maxY].
// maxEntities is used to preallocate cell capacity.
func NewSpatialGrid(minX, minY, maxX, maxY, cellSize float64, maxEntities int) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = math.Max(maxX-minX, maxY-minY)
	}
	cols := max(1, int(math.Ceil((maxX-minX)/cellSize)))
	rows := max(1, int(math.Ceil((maxY-minY)/cellSize)))

	cells := make([][]uint32, cols*rows)
	avgPerCell := max(4, maxEntities/len(cells))
	for i := range cells {
		cells[i] = make([]uint32, 0, avgPerCell)
	}

	return &SpatialGrid{
		originX:     minX,
		originY:     minY,
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
	}
}

// Clear resets all cells without deallocating underlying memory.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0] // Keep capacity, reset length
	}
}

// Insert adds an entity at position (x, y).
// The entityID should be the index into your entity slice.
func (g *SpatialGrid) Insert(entityID uint32, x, y float64) {
	idx := g.row(y)*g.cols + g.col(x)
	g.cells[idx] = append(g.cells[idx], entityID)
}

func (g *SpatialGrid) col(x float64) int {
	return clampInt(int(math.Floor((x-g.originX)*g.invCellSize)), 0, g.cols-1)
}

func (g *SpatialGrid) row(y float64) int {
	return clampInt(int(math.Floor((y-g.originY)*g.invCellSize)), 0, g.rows-1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// QueryRadius returns all entity IDs potentially within radius of (cx, cy).
// Uses an internal scratch buffer to avoid allocation.
//
// IMPORTANT: The returned slice is reused on subsequent calls.
// Copy the results if you need to persist them.
//
// The returned candidates may include entities outside the radius;
// the caller must perform a precise distance check (narrow phase).
// IDs come back grouped by cell, not in insertion order.
func (g *SpatialGrid) QueryRadius(cx, cy, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol, maxCol := g.col(cx-radius), g.col(cx+radius)
	minRow, maxRow := g.row(cy-radius), g.row(cy+radius)

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}

	return g.scratch
}

// Stats returns grid statistics for debugging/profiling.
func (g *SpatialGrid) Stats() GridStats {
	var totalEntities, maxInCell, nonEmpty int
	for _, cell := range g.cells {
		count := len(cell)
		totalEntities += count
		maxInCell = max(maxInCell, count)
		if count > 0 {
			nonEmpty++
		}
	}

	return GridStats{
		TotalCells:    len(g.cells),
		NonEmptyCells: nonEmpty,
		TotalEntities: totalEntities,
		MaxInCell:     maxInCell,
	}
}

// GridStats contains grid statistics for debugging.
type GridStats struct {
	TotalCells    int
	NonEmptyCells int
	TotalEntities int
	MaxInCell     int
}

// Dimensions returns the grid dimensions.
func (g *SpatialGrid) Dimensions() (cols, rows int, cellSize float64) {
	return g.cols, g.rows, g.cellSize
}
