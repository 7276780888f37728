// Package toolproto implements the structured (JSON) tool protocol: one
// request record in, one result record out, with counts and a
// processing-duration metric. Field names are part of the wire contract
// shared with the other tool implementations; changing them is breaking.
package toolproto

import (
	"fmt"
	"time"

	"github.com/banshee-data/voxel.tools/internal/cloud"
	"github.com/banshee-data/voxel.tools/internal/voxel"
)

// GlobalBounds carries caller-supplied bounds so voxel indices stay
// consistent across related calls on the same source cloud.
type GlobalBounds struct {
	MinX float32 `json:"min_x"`
	MaxX float32 `json:"max_x"`
	MinY float32 `json:"min_y"`
	MaxY float32 `json:"max_y"`
	MinZ float32 `json:"min_z"`
	MaxZ float32 `json:"max_z"`
}

func (g *GlobalBounds) bounds() cloud.Bounds {
	return cloud.Bounds{
		MinX: g.MinX, MaxX: g.MaxX,
		MinY: g.MinY, MaxY: g.MaxY,
		MinZ: g.MinZ, MaxZ: g.MaxZ,
	}
}

// DownsampleRequest is the JSON downsample record.
type DownsampleRequest struct {
	PointCloudData []float32     `json:"point_cloud_data"`
	VoxelSize      float32       `json:"voxel_size"`
	GlobalBounds   *GlobalBounds `json:"global_bounds,omitempty"`
}

// DownsampleResult is the JSON downsample response record.
type DownsampleResult struct {
	Success           bool      `json:"success"`
	Error             string    `json:"error,omitempty"`
	DownsampledPoints []float32 `json:"downsampled_points"`
	OriginalCount     int       `json:"original_count"`
	DownsampledCount  int       `json:"downsampled_count"`
	VoxelCount        int       `json:"voxel_count"`
	ProcessingTime    float64   `json:"processing_time"` // milliseconds
}

// DebugRequest is the JSON voxel-debug record.
type DebugRequest struct {
	PointCloudData []float32     `json:"point_cloud_data"`
	VoxelSize      float32       `json:"voxel_size"`
	GlobalBounds   *GlobalBounds `json:"global_bounds,omitempty"`
}

// DebugResult is the JSON voxel-debug response record.
type DebugResult struct {
	Success            bool      `json:"success"`
	Error              string    `json:"error,omitempty"`
	VoxelGridPositions []float32 `json:"voxel_grid_positions"`
	VoxelCount         int       `json:"voxel_count"`
	ProcessingTime     float64   `json:"processing_time"` // milliseconds
}

// SmoothRequest is the JSON smoothing record.
type SmoothRequest struct {
	PointCloudData  []float32 `json:"point_cloud_data"`
	SmoothingRadius float32   `json:"smoothing_radius"`
	Iterations      int       `json:"iterations"`
}

// SmoothResult is the JSON smoothing response record.
type SmoothResult struct {
	Success         bool      `json:"success"`
	Error           string    `json:"error,omitempty"`
	SmoothedPoints  []float32 `json:"smoothed_points"`
	OriginalCount   int       `json:"original_count"`
	SmoothedCount   int       `json:"smoothed_count"`
	SmoothingRadius float32   `json:"smoothing_radius"`
	Iterations      int       `json:"iterations"`
	ProcessingTime  float64   `json:"processing_time"` // milliseconds
}

// resolveBounds uses caller-supplied bounds when present; otherwise a single
// pass over the buffer computes them. Related calls (downsample then debug)
// must supply matching global bounds to get consistent voxel boundaries.
func resolveBounds(points []float32, gb *GlobalBounds) (cloud.Bounds, error) {
	if gb != nil {
		b := gb.bounds()
		if !b.Valid() {
			return cloud.Bounds{}, fmt.Errorf("invalid global bounds %+v", *gb)
		}
		return b, nil
	}
	b, ok := cloud.ComputeBounds(points)
	if !ok {
		return cloud.Bounds{}, nil
	}
	return b, nil
}

// ProcessDownsample runs voxel downsampling for a JSON request. Malformed
// buffers produce an error record; degenerate-but-well-formed input produces
// an empty success record.
func ProcessDownsample(req *DownsampleRequest) *DownsampleResult {
	c := &cloud.Cloud{Points: req.PointCloudData}
	if err := c.Validate(); err != nil {
		return &DownsampleResult{Error: err.Error()}
	}
	b, err := resolveBounds(req.PointCloudData, req.GlobalBounds)
	if err != nil {
		return &DownsampleResult{Error: err.Error()}
	}

	start := time.Now()
	res := voxel.Downsample(c, req.VoxelSize, b)
	elapsed := time.Since(start)

	return &DownsampleResult{
		Success:           true,
		DownsampledPoints: emptyNotNil(res.Points),
		OriginalCount:     res.InputCount,
		DownsampledCount:  res.VoxelCount(),
		VoxelCount:        res.VoxelCount(),
		ProcessingTime:    float64(elapsed) / float64(time.Millisecond),
	}
}

// ProcessDebug enumerates occupied voxel centers for a JSON request.
func ProcessDebug(req *DebugRequest) *DebugResult {
	if len(req.PointCloudData)%3 != 0 {
		return &DebugResult{
			Error: fmt.Sprintf("point buffer length %d is not a multiple of 3", len(req.PointCloudData)),
		}
	}
	b, err := resolveBounds(req.PointCloudData, req.GlobalBounds)
	if err != nil {
		return &DebugResult{Error: err.Error()}
	}

	start := time.Now()
	centers := voxel.DebugCenters(req.PointCloudData, req.VoxelSize, b)
	elapsed := time.Since(start)

	return &DebugResult{
		Success:            true,
		VoxelGridPositions: emptyNotNil(centers),
		VoxelCount:         len(centers) / 3,
		ProcessingTime:     float64(elapsed) / float64(time.Millisecond),
	}
}

// ProcessSmooth runs neighborhood smoothing for a JSON request.
func ProcessSmooth(req *SmoothRequest, parallelism int) *SmoothResult {
	if len(req.PointCloudData)%3 != 0 {
		return &SmoothResult{
			Error: fmt.Sprintf("point buffer length %d is not a multiple of 3", len(req.PointCloudData)),
		}
	}

	start := time.Now()
	smoothed := voxel.Smooth(req.PointCloudData, voxel.SmoothOptions{
		Radius:      req.SmoothingRadius,
		Iterations:  req.Iterations,
		Parallelism: parallelism,
	})
	elapsed := time.Since(start)

	return &SmoothResult{
		Success:         true,
		SmoothedPoints:  emptyNotNil(smoothed),
		OriginalCount:   len(req.PointCloudData) / 3,
		SmoothedCount:   len(smoothed) / 3,
		SmoothingRadius: req.SmoothingRadius,
		Iterations:      req.Iterations,
		ProcessingTime:  float64(elapsed) / float64(time.Millisecond),
	}
}

// emptyNotNil keeps result arrays serialising as [] rather than null, which
// the record consumers expect.
func emptyNotNil(v []float32) []float32 {
	if v == nil {
		return []float32{}
	}
	return v
}
