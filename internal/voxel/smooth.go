package voxel

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/voxel.tools/internal/cloud"
)

// SmoothOptions configures the neighborhood smoother.
type SmoothOptions struct {
	// Radius is the neighbor search radius; it is also the grid cell size,
	// so the 3x3x3 cell scan covers every candidate within the radius.
	Radius float32

	// Iterations is the number of relaxation rounds. Zero returns the input
	// unchanged.
	Iterations int

	// Parallelism caps the worker goroutines used for the per-point scan
	// within a round. Zero or one runs sequentially; negative uses
	// GOMAXPROCS. Results are identical either way: every worker reads only
	// the round snapshot and writes only its own output slots.
	Parallelism int
}

// Smooth iteratively relaxes point positions toward their local neighborhood
// average. Each round buckets the previous round's positions into a grid
// sized to the radius, scans the 27 surrounding cells per point, and
// replaces the position with the self-inclusive average
// (own + sum of in-radius neighbors) / (count + 1). A point with no in-radius
// neighbor keeps its position.
//
// The result is always a freshly allocated buffer; the input is never
// mutated. Degenerate input (no points, radius <= 0, iterations <= 0)
// returns an unchanged copy, as does an extent the radius cannot grid
// within MaxDenseCells.
func Smooth(points []float32, opts SmoothOptions) []float32 {
	out := make([]float32, len(points))
	copy(out, points)

	n := len(points) / 3
	if n == 0 || !(opts.Radius > 0) || opts.Iterations <= 0 || len(points)%3 != 0 {
		return out
	}

	radiusSq := opts.Radius * opts.Radius
	snapshot := make([]float32, len(points))

	for iter := 0; iter < opts.Iterations; iter++ {
		// All neighbor sums for this round read the positions produced at
		// the end of the previous round.
		copy(snapshot, out)

		bounds, ok := cloud.ComputeBounds(snapshot)
		if !ok {
			return out
		}
		grid, err := NewDenseGrid(bounds, opts.Radius)
		if err != nil {
			// NaN in the bounds, or an extent too large for the radius to
			// grid; positions stay as they are.
			debugf("smooth: round %d aborted: %v", iter, err)
			return out
		}
		for i := 0; i < n; i++ {
			i3 := i * 3
			grid.Add(snapshot[i3], snapshot[i3+1], snapshot[i3+2], int32(i))
		}

		workers := opts.Parallelism
		if workers < 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		if workers <= 1 {
			smoothRange(snapshot, out, grid, radiusSq, 0, n)
			continue
		}

		chunk := (n + workers - 1) / workers
		var g errgroup.Group
		g.SetLimit(workers)
		for start := 0; start < n; start += chunk {
			end := start + chunk
			if end > n {
				end = n
			}
			start := start
			g.Go(func() error {
				smoothRange(snapshot, out, grid, radiusSq, start, end)
				return nil
			})
		}
		// Workers never return errors; Wait only synchronises the round.
		_ = g.Wait()
	}

	return out
}

// smoothRange relaxes points [start, end) from the snapshot into out. It
// reads only snapshot and grid and writes only its own slots of out.
func smoothRange(snapshot, out []float32, grid *DenseGrid, radiusSq float32, start, end int) {
	for i := start; i < end; i++ {
		i3 := i * 3
		x := snapshot[i3]
		y := snapshot[i3+1]
		z := snapshot[i3+2]

		cx, cy, cz := grid.cellCoord(x, y, z)

		var sumX, sumY, sumZ float32
		count := 0

		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for dz := -1; dz <= 1; dz++ {
					idx, ok := grid.index(cx+dx, cy+dy, cz+dz)
					if !ok {
						continue
					}
					for _, j := range grid.cells[idx] {
						if int(j) == i {
							continue
						}
						j3 := int(j) * 3
						jx := snapshot[j3]
						jy := snapshot[j3+1]
						jz := snapshot[j3+2]

						ddx := jx - x
						ddy := jy - y
						ddz := jz - z
						// Compare squared distances; never take a root.
						if ddx*ddx+ddy*ddy+ddz*ddz <= radiusSq {
							sumX += jx
							sumY += jy
							sumZ += jz
							count++
						}
					}
				}
			}
		}

		if count > 0 {
			// Self-inclusive average. Dropping the own-position term changes
			// convergence behaviour, so it stays.
			inv := 1 / float32(count+1)
			out[i3] = (x + sumX) * inv
			out[i3+1] = (y + sumY) * inv
			out[i3+2] = (z + sumZ) * inv
		} else {
			out[i3] = x
			out[i3+1] = y
			out[i3+2] = z
		}
	}
}
