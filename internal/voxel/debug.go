package voxel

import (
	"github.com/banshee-data/voxel.tools/internal/cloud"
)

// DebugCenters enumerates the occupied voxels of the grid and returns the
// geometric center of each: min + (index + 0.5) * size per axis. Unlike
// Downsample this is grid geometry, not the centroid of the points inside a
// cell; wireframe overlays rely on that distinction to line up with voxel
// boundaries.
//
// Centers are emitted in first-occupied order, matching the voxel emission
// order of a Downsample call with the same bounds and size. Degenerate input
// returns an empty slice.
func DebugCenters(points []float32, voxelSize float32, b cloud.Bounds) []float32 {
	n := len(points) / 3
	if n == 0 || !(voxelSize > 0) {
		return nil
	}

	grid, err := NewGrid(b.MinX, b.MinY, b.MinZ, voxelSize)
	if err != nil {
		return nil
	}

	estimated := n / EstimatedPointsPerVoxel
	if estimated < 16 {
		estimated = 16
	}
	seen := make(map[Key]struct{}, estimated)
	order := make([]Coord, 0, estimated)

	for i := 0; i < n; i++ {
		i3 := i * 3
		c := grid.Cell(points[i3], points[i3+1], points[i3+2])
		key := PackKey(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		order = append(order, c)
	}

	centers := make([]float32, 0, len(order)*3)
	for _, c := range order {
		x, y, z := grid.Center(c)
		centers = append(centers, x, y, z)
	}

	debugf("debug centers: %d points -> %d occupied voxels (size=%f)", n, len(order), voxelSize)
	return centers
}
