package cloud

import (
	"math"
	"testing"
)

func TestOccupancy_Empty(t *testing.T) {
	s := Occupancy(nil)
	if s.VoxelCount != 0 || s.PointCount != 0 || s.MeanPerVoxel != 0 {
		t.Errorf("empty counts should yield zero stats, got %+v", s)
	}
}

func TestOccupancy_SingleVoxel(t *testing.T) {
	s := Occupancy([]int{4})
	if s.VoxelCount != 1 || s.PointCount != 4 || s.MeanPerVoxel != 4 || s.MaxPerVoxel != 4 {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.StdDevPerVoxel != 0 {
		t.Errorf("single-voxel stddev should be 0, got %f", s.StdDevPerVoxel)
	}
}

func TestOccupancy_Distribution(t *testing.T) {
	s := Occupancy([]int{1, 2, 3, 4})
	if s.VoxelCount != 4 {
		t.Errorf("VoxelCount = %d, want 4", s.VoxelCount)
	}
	if s.PointCount != 10 {
		t.Errorf("PointCount = %d, want 10", s.PointCount)
	}
	if s.MeanPerVoxel != 2.5 {
		t.Errorf("MeanPerVoxel = %f, want 2.5", s.MeanPerVoxel)
	}
	if s.MaxPerVoxel != 4 {
		t.Errorf("MaxPerVoxel = %d, want 4", s.MaxPerVoxel)
	}
	// Sample standard deviation of 1,2,3,4.
	want := math.Sqrt((1.5*1.5 + 0.5*0.5 + 0.5*0.5 + 1.5*1.5) / 3)
	if math.Abs(s.StdDevPerVoxel-want) > 1e-12 {
		t.Errorf("StdDevPerVoxel = %f, want %f", s.StdDevPerVoxel, want)
	}
	if s.MedianPerVoxel < 1 || s.MedianPerVoxel > 4 {
		t.Errorf("MedianPerVoxel = %f out of range", s.MedianPerVoxel)
	}
}
