package voxel

import (
	"github.com/banshee-data/voxel.tools/internal/cloud"
)

// EstimatedPointsPerVoxel is used for initial accumulator map capacity
// estimation.
const EstimatedPointsPerVoxel = 100

// DownsampleResult holds one reduced point per occupied voxel. Attribute
// slices are non-nil only when the corresponding input attribute was
// present. Voxels are emitted in first-occupied order, so output is
// deterministic for a given input order, bounds and voxel size.
type DownsampleResult struct {
	Points          []float32
	Colors          []float32
	Intensities     []float32
	Classifications []byte

	// CellCounts is the number of input points collapsed into each output
	// voxel, in emission order. Feeds occupancy statistics.
	CellCounts []int

	InputCount int
}

// VoxelCount returns the number of occupied voxels in the result.
func (r *DownsampleResult) VoxelCount() int {
	return len(r.Points) / 3
}

// accumulator carries the per-voxel running sums. Classification is reduced
// by mode, so it keeps a label histogram plus first-seen label order for the
// tie-break.
type accumulator struct {
	count            int
	sumX, sumY, sumZ float32
	sumR, sumG, sumB float32
	sumIntensity     float32
	classCounts      map[byte]int
	classOrder       []byte
}

func (a *accumulator) addClass(label byte) {
	if a.classCounts == nil {
		a.classCounts = make(map[byte]int, 4)
	}
	if _, seen := a.classCounts[label]; !seen {
		a.classOrder = append(a.classOrder, label)
	}
	a.classCounts[label]++
}

// modeClass returns the most frequent label; ties resolve to the label seen
// first in insertion order.
func (a *accumulator) modeClass() byte {
	var best byte
	bestCount := 0
	for _, label := range a.classOrder {
		if c := a.classCounts[label]; c > bestCount {
			best = label
			bestCount = c
		}
	}
	return best
}

// Downsample collapses the cloud onto a uniform grid anchored at the minimum
// corner of bounds and returns the centroid (and attribute means, and the
// classification mode) of every occupied voxel. Every input point belongs to
// exactly one output voxel. Degenerate input — zero points or a non-positive
// voxel size — yields an empty result, not an error.
//
// NaN coordinates or attribute values are not sanitised; they poison the
// sums they participate in, per ordinary floating-point arithmetic.
func Downsample(c *cloud.Cloud, voxelSize float32, b cloud.Bounds) *DownsampleResult {
	res := &DownsampleResult{InputCount: c.Len()}
	n := c.Len()
	if n == 0 || !(voxelSize > 0) {
		return res
	}

	grid, err := NewGrid(b.MinX, b.MinY, b.MinZ, voxelSize)
	if err != nil {
		return res
	}

	useColors := c.HasColors()
	useIntensity := c.HasIntensities()
	useClass := c.HasClassifications()

	estimated := n / EstimatedPointsPerVoxel
	if estimated < 16 {
		estimated = 16
	}
	voxels := make(map[Key]*accumulator, estimated)
	order := make([]Key, 0, estimated)

	for i := 0; i < n; i++ {
		i3 := i * 3
		x := c.Points[i3]
		y := c.Points[i3+1]
		z := c.Points[i3+2]

		key := grid.Key(x, y, z)
		acc := voxels[key]
		if acc == nil {
			acc = &accumulator{}
			voxels[key] = acc
			order = append(order, key)
		}

		acc.count++
		acc.sumX += x
		acc.sumY += y
		acc.sumZ += z
		if useColors {
			acc.sumR += c.Colors[i3]
			acc.sumG += c.Colors[i3+1]
			acc.sumB += c.Colors[i3+2]
		}
		if useIntensity {
			acc.sumIntensity += c.Intensities[i]
		}
		if useClass {
			acc.addClass(c.Classifications[i])
		}
	}

	out := len(order)
	res.Points = make([]float32, 0, out*3)
	res.CellCounts = make([]int, 0, out)
	if useColors {
		res.Colors = make([]float32, 0, out*3)
	}
	if useIntensity {
		res.Intensities = make([]float32, 0, out)
	}
	if useClass {
		res.Classifications = make([]byte, 0, out)
	}

	for _, key := range order {
		acc := voxels[key]
		inv := 1 / float32(acc.count)
		res.Points = append(res.Points, acc.sumX*inv, acc.sumY*inv, acc.sumZ*inv)
		res.CellCounts = append(res.CellCounts, acc.count)
		if useColors {
			res.Colors = append(res.Colors, acc.sumR*inv, acc.sumG*inv, acc.sumB*inv)
		}
		if useIntensity {
			res.Intensities = append(res.Intensities, acc.sumIntensity*inv)
		}
		if useClass {
			res.Classifications = append(res.Classifications, acc.modeClass())
		}
	}

	debugf("downsample: %d points -> %d voxels (size=%f)", n, out, voxelSize)
	return res
}
