package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/voxel.tools/internal/cloud"
	"github.com/banshee-data/voxel.tools/internal/voxel"
)

func TestDownsampleRequest_RoundTrip(t *testing.T) {
	req := &DownsampleRequest{
		VoxelSize: 0.5,
		Bounds:    cloud.Bounds{MinX: -1, MinY: -2, MinZ: -3, MaxX: 4, MaxY: 5, MaxZ: 6},
		Cloud: cloud.Cloud{
			Points:          []float32{0, 0, 0, 1, 1, 1},
			Colors:          []float32{1, 0, 0, 0, 0, 1},
			Intensities:     []float32{0.25, 0.75},
			Classifications: []byte{3, 7},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDownsampleRequest(&buf, req))

	got, err := ReadDownsampleRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, req.VoxelSize, got.VoxelSize)
	assert.Equal(t, req.Bounds, got.Bounds)
	assert.Equal(t, req.Cloud.Points, got.Cloud.Points)
	assert.Equal(t, req.Cloud.Colors, got.Cloud.Colors)
	assert.Equal(t, req.Cloud.Intensities, got.Cloud.Intensities)
	assert.Equal(t, req.Cloud.Classifications, got.Cloud.Classifications)
}

func TestDownsampleRequest_PositionsOnly(t *testing.T) {
	req := &DownsampleRequest{
		VoxelSize: 1,
		Cloud:     cloud.Cloud{Points: []float32{1, 2, 3}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDownsampleRequest(&buf, req))

	// Header flags must be zero when no attribute buffers are present.
	raw := buf.Bytes()
	flags := binary.LittleEndian.Uint32(raw[32:36])
	assert.Zero(t, flags)

	got, err := ReadDownsampleRequest(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, req.Cloud.Points, got.Cloud.Points)
	assert.Nil(t, got.Cloud.Colors)
}

func TestReadDownsampleRequest_DegenerateSkipsBody(t *testing.T) {
	// Zero point count: header only, no body follows.
	var buf bytes.Buffer
	require.NoError(t, WriteDownsampleRequest(&buf, &DownsampleRequest{VoxelSize: 1}))

	got, err := ReadDownsampleRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Cloud.Len())

	// Non-positive voxel size with a nonzero count behaves the same.
	var hdr [36]byte
	binary.LittleEndian.PutUint32(hdr[0:4], 5)
	binary.LittleEndian.PutUint32(hdr[4:8], math.Float32bits(-1))
	got, err = ReadDownsampleRequest(bytes.NewReader(hdr[:]))
	require.NoError(t, err)
	assert.Equal(t, 0, got.Cloud.Len())
}

func TestReadDownsampleRequest_TruncatedHeader(t *testing.T) {
	_, err := ReadDownsampleRequest(bytes.NewReader([]byte{1, 2, 3}))
	require.Error(t, err)
}

func TestReadDownsampleRequest_TruncatedBody(t *testing.T) {
	var hdr [36]byte
	binary.LittleEndian.PutUint32(hdr[0:4], 10) // announces 10 points
	binary.LittleEndian.PutUint32(hdr[4:8], math.Float32bits(1))

	// Only one float of body follows.
	data := append(hdr[:], 0, 0, 128, 63)
	_, err := ReadDownsampleRequest(bytes.NewReader(data))
	require.Error(t, err, "truncated body must be a hard failure, not silent truncation")
}

func TestReadDownsampleRequest_TooManyPoints(t *testing.T) {
	var hdr [36]byte
	binary.LittleEndian.PutUint32(hdr[0:4], MaxPoints+1)
	binary.LittleEndian.PutUint32(hdr[4:8], math.Float32bits(1))

	_, err := ReadDownsampleRequest(bytes.NewReader(hdr[:]))
	require.ErrorIs(t, err, ErrTooManyPoints)
}

func TestDownsampleResponse_RoundTrip(t *testing.T) {
	res := &voxel.DownsampleResult{
		Points:          []float32{0.5, 0.5, 0},
		Colors:          []float32{0.2, 0.4, 0.6},
		Intensities:     []float32{11},
		Classifications: []byte{9},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDownsampleResponse(&buf, res))

	flags := uint32(FlagColors | FlagIntensity | FlagClassification)
	got, err := ReadDownsampleResponse(&buf, flags)
	require.NoError(t, err)
	assert.Equal(t, res.Points, got.Points)
	assert.Equal(t, res.Colors, got.Colors)
	assert.Equal(t, res.Intensities, got.Intensities)
	assert.Equal(t, res.Classifications, got.Classifications)
}

func TestDownsampleResponse_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDownsampleResponse(&buf, &voxel.DownsampleResult{}))
	assert.Equal(t, 4, buf.Len(), "empty response is a bare zero count, no body")

	got, err := ReadDownsampleResponse(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, got.VoxelCount())
}

func TestDebugRequest_RoundTrip(t *testing.T) {
	req := &DebugRequest{
		VoxelSize: 2,
		Bounds:    cloud.Bounds{MinX: 0, MaxX: 1, MinY: 0, MaxY: 1, MinZ: 0, MaxZ: 1},
		Points:    []float32{0, 0, 0, 1, 1, 1},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDebugRequest(&buf, req))

	got, err := ReadDebugRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestSmoothRequest_RoundTrip(t *testing.T) {
	req := &SmoothRequest{
		Radius:     1.5,
		Iterations: 3,
		Points:     []float32{0, 0, 0, 1, 0, 0},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSmoothRequest(&buf, req))

	got, err := ReadSmoothRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestReadSmoothRequest_DegenerateInputs(t *testing.T) {
	cases := []struct {
		name       string
		count      uint32
		radius     float32
		iterations float32
	}{
		{"zero count", 0, 1, 1},
		{"zero radius", 4, 0, 1},
		{"negative radius", 4, -2, 1},
		{"zero iterations", 4, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var hdr [12]byte
			binary.LittleEndian.PutUint32(hdr[0:4], tc.count)
			binary.LittleEndian.PutUint32(hdr[4:8], math.Float32bits(tc.radius))
			binary.LittleEndian.PutUint32(hdr[8:12], math.Float32bits(tc.iterations))

			got, err := ReadSmoothRequest(bytes.NewReader(hdr[:]))
			require.NoError(t, err)
			assert.Empty(t, got.Points, "degenerate request must not consume a body")
		})
	}
}

func TestPointsResponse_RoundTrip(t *testing.T) {
	points := []float32{1, 2, 3, 4, 5, 6}

	var buf bytes.Buffer
	require.NoError(t, WritePointsResponse(&buf, points))

	got, err := ReadPointsResponse(&buf)
	require.NoError(t, err)
	assert.Equal(t, points, got)
}

func TestPointsResponse_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePointsResponse(&buf, nil))
	assert.Equal(t, 4, buf.Len())

	got, err := ReadPointsResponse(&buf)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadPointsResponse_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePointsResponse(&buf, []float32{1, 2, 3}))

	truncated := buf.Bytes()[:buf.Len()-2]
	_, err := ReadPointsResponse(bytes.NewReader(truncated))
	require.Error(t, err)
}
