// Package wire implements the little-endian binary protocol spoken by the
// point-cloud tools: a fixed header followed by flat float arrays. Both
// directions are provided so the CLIs can serve the protocol and tests and
// clients can speak it.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/voxel.tools/internal/cloud"
	"github.com/banshee-data/voxel.tools/internal/voxel"
)

// Attribute flag bits in the downsample request header.
const (
	FlagColors         = 1 << 0
	FlagIntensity      = 1 << 1
	FlagClassification = 1 << 2
)

// MaxPoints bounds the point count accepted from a header before any
// allocation happens. 100M points is roughly a 1.2GB position buffer.
const MaxPoints = 100_000_000

// ErrTooManyPoints is returned when a header announces a point count above
// MaxPoints. The check runs before allocation so hostile headers cannot
// exhaust memory.
var ErrTooManyPoints = errors.New("point count exceeds limit")

// DownsampleRequest is the attribute-aware downsample message:
// [u32 count][f32 voxelSize][f32 bbox min/max xyz][u32 flags][body].
type DownsampleRequest struct {
	VoxelSize float32
	Bounds    cloud.Bounds
	Cloud     cloud.Cloud
}

// DebugRequest is the voxel-debug message:
// [u32 count][f32 voxelSize][f32 bbox min/max xyz][f32 positions].
type DebugRequest struct {
	VoxelSize float32
	Bounds    cloud.Bounds
	Points    []float32
}

// SmoothRequest is the smoothing message:
// [u32 count][f32 radius][f32 iterations][f32 positions]. The iteration
// count travels as a float for header-layout compatibility and is truncated
// on read.
type SmoothRequest struct {
	Radius     float32
	Iterations int
	Points     []float32
}

// ReadDownsampleRequest decodes a downsample request. A zero point count or
// non-positive voxel size is well-formed degenerate input: the request is
// returned with an empty cloud and no body is consumed. Truncated headers or
// bodies are hard errors.
func ReadDownsampleRequest(r io.Reader) (*DownsampleRequest, error) {
	var header [36]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read downsample header: %w", err)
	}

	count := binary.LittleEndian.Uint32(header[0:4])
	req := &DownsampleRequest{
		VoxelSize: headerFloat(header[4:8]),
		Bounds:    headerBounds(header[8:32]),
	}
	flags := binary.LittleEndian.Uint32(header[32:36])

	if count == 0 || !(req.VoxelSize > 0) {
		return req, nil
	}
	if count > MaxPoints {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPoints, count, MaxPoints)
	}

	n := int(count)
	var err error
	if req.Cloud.Points, err = readFloats(r, 3*n); err != nil {
		return nil, fmt.Errorf("read %d positions: %w", n, err)
	}
	if flags&FlagColors != 0 {
		if req.Cloud.Colors, err = readFloats(r, 3*n); err != nil {
			return nil, fmt.Errorf("read %d colors: %w", n, err)
		}
	}
	if flags&FlagIntensity != 0 {
		if req.Cloud.Intensities, err = readFloats(r, n); err != nil {
			return nil, fmt.Errorf("read %d intensities: %w", n, err)
		}
	}
	if flags&FlagClassification != 0 {
		req.Cloud.Classifications = make([]byte, n)
		if _, err = io.ReadFull(r, req.Cloud.Classifications); err != nil {
			return nil, fmt.Errorf("read %d classifications: %w", n, err)
		}
	}
	return req, nil
}

// WriteDownsampleRequest encodes a downsample request, deriving the flags
// word from which attribute buffers are present on the cloud.
func WriteDownsampleRequest(w io.Writer, req *DownsampleRequest) error {
	if err := req.Cloud.Validate(); err != nil {
		return fmt.Errorf("encode downsample request: %w", err)
	}

	var flags uint32
	if req.Cloud.HasColors() {
		flags |= FlagColors
	}
	if req.Cloud.HasIntensities() {
		flags |= FlagIntensity
	}
	if req.Cloud.HasClassifications() {
		flags |= FlagClassification
	}

	var header [36]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(req.Cloud.Len()))
	putHeaderFloat(header[4:8], req.VoxelSize)
	putHeaderBounds(header[8:32], req.Bounds)
	binary.LittleEndian.PutUint32(header[32:36], flags)
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	if err := writeFloats(w, req.Cloud.Points); err != nil {
		return err
	}
	if flags&FlagColors != 0 {
		if err := writeFloats(w, req.Cloud.Colors); err != nil {
			return err
		}
	}
	if flags&FlagIntensity != 0 {
		if err := writeFloats(w, req.Cloud.Intensities); err != nil {
			return err
		}
	}
	if flags&FlagClassification != 0 {
		if _, err := w.Write(req.Cloud.Classifications); err != nil {
			return err
		}
	}
	return nil
}

// WriteDownsampleResponse encodes [u32 outputCount][positions][attrs...],
// mirroring the attribute layout of the request.
func WriteDownsampleResponse(w io.Writer, res *voxel.DownsampleResult) error {
	if err := writeCount(w, res.VoxelCount()); err != nil {
		return err
	}
	if err := writeFloats(w, res.Points); err != nil {
		return err
	}
	if res.Colors != nil {
		if err := writeFloats(w, res.Colors); err != nil {
			return err
		}
	}
	if res.Intensities != nil {
		if err := writeFloats(w, res.Intensities); err != nil {
			return err
		}
	}
	if res.Classifications != nil {
		if _, err := w.Write(res.Classifications); err != nil {
			return err
		}
	}
	return nil
}

// ReadDownsampleResponse decodes a downsample response. The attribute flags
// must match the ones sent in the request; the response carries no flags of
// its own.
func ReadDownsampleResponse(r io.Reader, flags uint32) (*voxel.DownsampleResult, error) {
	count, err := readCount(r)
	if err != nil {
		return nil, fmt.Errorf("read downsample response: %w", err)
	}
	res := &voxel.DownsampleResult{}
	if count == 0 {
		return res, nil
	}
	if res.Points, err = readFloats(r, 3*count); err != nil {
		return nil, fmt.Errorf("read %d response positions: %w", count, err)
	}
	if flags&FlagColors != 0 {
		if res.Colors, err = readFloats(r, 3*count); err != nil {
			return nil, fmt.Errorf("read %d response colors: %w", count, err)
		}
	}
	if flags&FlagIntensity != 0 {
		if res.Intensities, err = readFloats(r, count); err != nil {
			return nil, fmt.Errorf("read %d response intensities: %w", count, err)
		}
	}
	if flags&FlagClassification != 0 {
		res.Classifications = make([]byte, count)
		if _, err = io.ReadFull(r, res.Classifications); err != nil {
			return nil, fmt.Errorf("read %d response classifications: %w", count, err)
		}
	}
	return res, nil
}

// ReadDebugRequest decodes a voxel-debug request (32-byte header, no flags).
func ReadDebugRequest(r io.Reader) (*DebugRequest, error) {
	var header [32]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read debug header: %w", err)
	}

	count := binary.LittleEndian.Uint32(header[0:4])
	req := &DebugRequest{
		VoxelSize: headerFloat(header[4:8]),
		Bounds:    headerBounds(header[8:32]),
	}
	if count == 0 || !(req.VoxelSize > 0) {
		return req, nil
	}
	if count > MaxPoints {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPoints, count, MaxPoints)
	}

	var err error
	if req.Points, err = readFloats(r, 3*int(count)); err != nil {
		return nil, fmt.Errorf("read %d positions: %w", count, err)
	}
	return req, nil
}

// WriteDebugRequest encodes a voxel-debug request.
func WriteDebugRequest(w io.Writer, req *DebugRequest) error {
	var header [32]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(req.Points)/3))
	putHeaderFloat(header[4:8], req.VoxelSize)
	putHeaderBounds(header[8:32], req.Bounds)
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	return writeFloats(w, req.Points)
}

// ReadSmoothRequest decodes a smoothing request (12-byte header).
func ReadSmoothRequest(r io.Reader) (*SmoothRequest, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read smooth header: %w", err)
	}

	count := binary.LittleEndian.Uint32(header[0:4])
	req := &SmoothRequest{
		Radius:     headerFloat(header[4:8]),
		Iterations: int(headerFloat(header[8:12])),
	}
	if count == 0 || !(req.Radius > 0) || req.Iterations <= 0 {
		return req, nil
	}
	if count > MaxPoints {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPoints, count, MaxPoints)
	}

	var err error
	if req.Points, err = readFloats(r, 3*int(count)); err != nil {
		return nil, fmt.Errorf("read %d positions: %w", count, err)
	}
	return req, nil
}

// WriteSmoothRequest encodes a smoothing request.
func WriteSmoothRequest(w io.Writer, req *SmoothRequest) error {
	var header [12]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(req.Points)/3))
	putHeaderFloat(header[4:8], req.Radius)
	putHeaderFloat(header[8:12], float32(req.Iterations))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	return writeFloats(w, req.Points)
}

// WritePointsResponse encodes [u32 count][f32 positions]; the response shape
// shared by voxel-debug (centers) and smoothing (relaxed positions).
func WritePointsResponse(w io.Writer, points []float32) error {
	if err := writeCount(w, len(points)/3); err != nil {
		return err
	}
	return writeFloats(w, points)
}

// ReadPointsResponse decodes a [u32 count][f32 positions] response.
func ReadPointsResponse(r io.Reader) ([]float32, error) {
	count, err := readCount(r)
	if err != nil {
		return nil, fmt.Errorf("read points response: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	points, err := readFloats(r, 3*count)
	if err != nil {
		return nil, fmt.Errorf("read %d response positions: %w", count, err)
	}
	return points, nil
}

func headerFloat(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func putHeaderFloat(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func headerBounds(b []byte) cloud.Bounds {
	return cloud.Bounds{
		MinX: headerFloat(b[0:4]),
		MinY: headerFloat(b[4:8]),
		MinZ: headerFloat(b[8:12]),
		MaxX: headerFloat(b[12:16]),
		MaxY: headerFloat(b[16:20]),
		MaxZ: headerFloat(b[20:24]),
	}
}

func putHeaderBounds(b []byte, v cloud.Bounds) {
	putHeaderFloat(b[0:4], v.MinX)
	putHeaderFloat(b[4:8], v.MinY)
	putHeaderFloat(b[8:12], v.MinZ)
	putHeaderFloat(b[12:16], v.MaxX)
	putHeaderFloat(b[16:20], v.MaxY)
	putHeaderFloat(b[20:24], v.MaxZ)
}

func readCount(r io.Reader) (int, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	count := binary.LittleEndian.Uint32(b[:])
	if count > MaxPoints {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManyPoints, count, MaxPoints)
	}
	return int(count), nil
}

func writeCount(w io.Writer, n int) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(n))
	_, err := w.Write(b[:])
	return err
}

func readFloats(r io.Reader, n int) ([]float32, error) {
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	vals := make([]float32, n)
	for i := range vals {
		vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vals, nil
}

func writeFloats(w io.Writer, vals []float32) error {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	_, err := w.Write(buf)
	return err
}
