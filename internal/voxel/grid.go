// Package voxel implements uniform-grid spatial hashing over 3D point
// buffers and the three algorithms built on it: voxel downsampling,
// occupied-cell debug centers, and neighborhood smoothing.
package voxel

import (
	"fmt"
	"math"

	"github.com/banshee-data/voxel.tools/internal/cloud"
)

// Per-axis bit budget for packed cell keys. 21 bits signed per axis keeps
// the full key in 63 bits and allows cell coordinates in [-2^20, 2^20).
const (
	keyAxisBits = 21
	keyAxisMask = (1 << keyAxisBits) - 1
	maxAxisCell = 1<<(keyAxisBits-1) - 1
	minAxisCell = -(1 << (keyAxisBits - 1))
)

// Key is a packed spatial hash key holding three signed per-axis cell
// coordinates. Use it only when per-axis magnitude is bounded by
// MaxCellCoord; the Coord tuple form has unbounded range.
type Key uint64

// Coord is the tuple form of a cell index: one signed cell coordinate per
// axis. It is the safe representation when coordinate ranges cannot be
// bounded in advance.
type Coord struct {
	X, Y, Z int32
}

// MaxCellCoord is the largest per-axis cell coordinate magnitude
// representable by a packed Key.
const MaxCellCoord = maxAxisCell

// PackKey packs three signed cell coordinates into a single Key. Coordinates
// outside [-MaxCellCoord-1, MaxCellCoord] alias other cells; callers must
// bound their input range or stay with Coord.
func PackKey(c Coord) Key {
	x := uint64(uint32(c.X)) & keyAxisMask
	y := uint64(uint32(c.Y)) & keyAxisMask
	z := uint64(uint32(c.Z)) & keyAxisMask
	return Key(x<<(2*keyAxisBits) | y<<keyAxisBits | z)
}

// UnpackKey recovers the signed per-axis cell coordinates from a packed Key.
func UnpackKey(k Key) Coord {
	return Coord{
		X: signExtend(uint32(k >> (2 * keyAxisBits) & keyAxisMask)),
		Y: signExtend(uint32(k >> keyAxisBits & keyAxisMask)),
		Z: signExtend(uint32(k & keyAxisMask)),
	}
}

func signExtend(v uint32) int32 {
	// Shift the 21-bit field up to the sign position and back down.
	return int32(v<<(32-keyAxisBits)) >> (32 - keyAxisBits)
}

// Grid maps continuous coordinates to discrete cells of a uniform grid
// anchored at an origin. It is a pure value; methods have no side effects.
type Grid struct {
	minX, minY, minZ float32
	cellSize         float32
	invCellSize      float32
}

// NewGrid returns a grid with the given per-axis origin and cell size.
// A non-positive cell size is an error.
func NewGrid(minX, minY, minZ, cellSize float32) (*Grid, error) {
	if !(cellSize > 0) {
		return nil, fmt.Errorf("cell size must be positive, got %f", cellSize)
	}
	return &Grid{
		minX:        minX,
		minY:        minY,
		minZ:        minZ,
		cellSize:    cellSize,
		invCellSize: 1 / cellSize,
	}, nil
}

// CellSize returns the grid's cell edge length.
func (g *Grid) CellSize() float32 { return g.cellSize }

// Cell returns the cell coordinate containing (x, y, z). The mapping uses
// multiplication by the precomputed inverse cell size and floors toward
// negative infinity so that negative coordinates land in the correct cell.
func (g *Grid) Cell(x, y, z float32) Coord {
	return Coord{
		X: int32(math.Floor(float64((x - g.minX) * g.invCellSize))),
		Y: int32(math.Floor(float64((y - g.minY) * g.invCellSize))),
		Z: int32(math.Floor(float64((z - g.minZ) * g.invCellSize))),
	}
}

// Key returns the packed key of the cell containing (x, y, z).
func (g *Grid) Key(x, y, z float32) Key {
	return PackKey(g.Cell(x, y, z))
}

// Center returns the geometric center of the cell: origin + (index + 0.5) *
// cellSize per axis. This is grid geometry, not the centroid of any points
// inside the cell.
func (g *Grid) Center(c Coord) (x, y, z float32) {
	x = g.minX + (float32(c.X)+0.5)*g.cellSize
	y = g.minY + (float32(c.Y)+0.5)*g.cellSize
	z = g.minZ + (float32(c.Z)+0.5)*g.cellSize
	return x, y, z
}

// DenseGrid is a bounded grid of per-cell point-index buckets addressed by a
// single non-negative linear index. The smoother uses it so the 27-cell
// neighbor scan is a handful of slice lookups instead of map probes.
type DenseGrid struct {
	minX, minY, minZ float32
	invCellSize      float32
	width            int
	height           int
	depth            int
	cells            [][]int32
}

// MaxDenseCells bounds the bucket count a DenseGrid will allocate. The
// check runs before allocation so a huge extent paired with a tiny cell
// size is rejected with an error instead of exhausting memory.
const MaxDenseCells = 1 << 24

// axisCells converts one axis extent to a cell count. The division is the
// same float32 multiply cellCoord uses, widened only for the range check.
func axisCells(extent, invCellSize float32) (int, error) {
	span := float64(extent * invCellSize)
	if math.IsNaN(span) || span < 0 || span >= MaxDenseCells {
		return 0, fmt.Errorf("extent %f spans %.0f cells, limit %d", extent, span, MaxDenseCells)
	}
	return int(span) + 1, nil
}

// NewDenseGrid sizes a grid over the bounding box with the given cell size.
// A non-positive or NaN cell size, an invalid box, or a box whose cell
// volume exceeds MaxDenseCells yields an error.
func NewDenseGrid(b cloud.Bounds, cellSize float32) (*DenseGrid, error) {
	if !(cellSize > 0) {
		return nil, fmt.Errorf("cell size must be positive, got %f", cellSize)
	}
	if !b.Valid() {
		return nil, fmt.Errorf("invalid bounds %+v", b)
	}
	inv := 1 / cellSize
	w, err := axisCells(b.MaxX-b.MinX, inv)
	if err != nil {
		return nil, fmt.Errorf("x axis: %w", err)
	}
	h, err := axisCells(b.MaxY-b.MinY, inv)
	if err != nil {
		return nil, fmt.Errorf("y axis: %w", err)
	}
	d, err := axisCells(b.MaxZ-b.MinZ, inv)
	if err != nil {
		return nil, fmt.Errorf("z axis: %w", err)
	}
	// Each axis fits in 24 bits, so the running product cannot overflow
	// int64.
	if total := int64(w) * int64(h) * int64(d); total > MaxDenseCells {
		return nil, fmt.Errorf("grid of %dx%dx%d cells exceeds limit %d", w, h, d, MaxDenseCells)
	}
	g := &DenseGrid{
		minX:        b.MinX,
		minY:        b.MinY,
		minZ:        b.MinZ,
		invCellSize: inv,
		width:       w,
		height:      h,
		depth:       d,
	}
	g.cells = make([][]int32, g.width*g.height*g.depth)
	return g, nil
}

// Dims returns the grid dimensions in cells per axis.
func (g *DenseGrid) Dims() (w, h, d int) { return g.width, g.height, g.depth }

// cellCoord returns the per-axis cell coordinates of (x, y, z) relative to
// the grid origin. Coordinates may be out of range; callers check via index.
func (g *DenseGrid) cellCoord(x, y, z float32) (cx, cy, cz int) {
	cx = int(math.Floor(float64((x - g.minX) * g.invCellSize)))
	cy = int(math.Floor(float64((y - g.minY) * g.invCellSize)))
	cz = int(math.Floor(float64((z - g.minZ) * g.invCellSize)))
	return cx, cy, cz
}

// index converts per-axis cell coordinates to a linear index. The second
// return value is false when the cell lies outside the grid; such points are
// excluded from neighbor searches rather than risking an out-of-bounds
// access.
func (g *DenseGrid) index(cx, cy, cz int) (int, bool) {
	if cx < 0 || cx >= g.width || cy < 0 || cy >= g.height || cz < 0 || cz >= g.depth {
		return 0, false
	}
	return cx + cy*g.width + cz*g.width*g.height, true
}

// Add buckets a point index into the cell containing (x, y, z). Points
// outside the grid are dropped.
func (g *DenseGrid) Add(x, y, z float32, i int32) {
	cx, cy, cz := g.cellCoord(x, y, z)
	if idx, ok := g.index(cx, cy, cz); ok {
		g.cells[idx] = append(g.cells[idx], i)
	}
}

// Reset clears every bucket, retaining their capacity for the next round.
func (g *DenseGrid) Reset() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}
