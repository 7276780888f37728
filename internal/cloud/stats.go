package cloud

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// OccupancyStats summarises how points distribute across occupied voxels.
// It is reported by the CLI -stats flag and the server debug pages.
type OccupancyStats struct {
	VoxelCount     int     `json:"voxel_count"`
	PointCount     int     `json:"point_count"`
	MeanPerVoxel   float64 `json:"mean_per_voxel"`
	StdDevPerVoxel float64 `json:"stddev_per_voxel"`
	MedianPerVoxel float64 `json:"median_per_voxel"`
	MaxPerVoxel    int     `json:"max_per_voxel"`
}

// Occupancy computes distribution statistics from per-voxel point counts.
// An empty slice yields a zero-valued result.
func Occupancy(counts []int) OccupancyStats {
	if len(counts) == 0 {
		return OccupancyStats{}
	}

	vals := make([]float64, len(counts))
	total := 0
	maxCount := counts[0]
	for i, c := range counts {
		vals[i] = float64(c)
		total += c
		if c > maxCount {
			maxCount = c
		}
	}
	sort.Float64s(vals)

	s := OccupancyStats{
		VoxelCount:   len(counts),
		PointCount:   total,
		MeanPerVoxel: stat.Mean(vals, nil),
		MaxPerVoxel:  maxCount,
	}
	// Quantile requires sorted input; StdDev of a single sample is NaN,
	// report 0 instead.
	s.MedianPerVoxel = stat.Quantile(0.5, stat.Empirical, vals, nil)
	if len(vals) > 1 {
		s.StdDevPerVoxel = stat.StdDev(vals, nil)
	}
	return s
}
