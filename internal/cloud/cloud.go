// Package cloud defines the point-cloud buffer types shared by the voxel
// algorithms and the transport adapters.
package cloud

import (
	"fmt"
	"math"
)

// Cloud holds a packed point buffer plus optional per-point attributes.
// Points is a flat sequence of x,y,z triples. An attribute buffer is
// considered present only when its length matches the point count exactly;
// a partially filled buffer is treated as absent.
type Cloud struct {
	Points          []float32 // packed x,y,z triples, len = 3*n
	Colors          []float32 // packed r,g,b triples, len = 3*n or 0
	Intensities     []float32 // len = n or 0
	Classifications []byte    // len = n or 0
}

// Len returns the number of points in the cloud.
func (c *Cloud) Len() int {
	return len(c.Points) / 3
}

// HasColors reports whether a complete color buffer is present.
func (c *Cloud) HasColors() bool {
	return len(c.Colors) > 0 && len(c.Colors) == len(c.Points)
}

// HasIntensities reports whether a complete intensity buffer is present.
func (c *Cloud) HasIntensities() bool {
	return len(c.Intensities) > 0 && len(c.Intensities) == c.Len()
}

// HasClassifications reports whether a complete classification buffer is present.
func (c *Cloud) HasClassifications() bool {
	return len(c.Classifications) > 0 && len(c.Classifications) == c.Len()
}

// Validate checks structural consistency of the buffers. It rejects a point
// buffer whose length is not a multiple of three; attribute buffers are
// allowed to be absent or complete, anything in between is an error so that
// truncated input surfaces as a hard failure instead of being silently
// reinterpreted.
func (c *Cloud) Validate() error {
	if len(c.Points)%3 != 0 {
		return fmt.Errorf("point buffer length %d is not a multiple of 3", len(c.Points))
	}
	n := c.Len()
	if len(c.Colors) != 0 && len(c.Colors) != 3*n {
		return fmt.Errorf("color buffer has %d values, want %d or none", len(c.Colors), 3*n)
	}
	if len(c.Intensities) != 0 && len(c.Intensities) != n {
		return fmt.Errorf("intensity buffer has %d values, want %d or none", len(c.Intensities), n)
	}
	if len(c.Classifications) != 0 && len(c.Classifications) != n {
		return fmt.Errorf("classification buffer has %d values, want %d or none", len(c.Classifications), n)
	}
	return nil
}

// Bounds is an axis-aligned bounding box over a point buffer.
type Bounds struct {
	MinX, MinY, MinZ float32
	MaxX, MaxY, MaxZ float32
}

// ComputeBounds scans a packed point buffer and returns its bounding box.
// The second return value is false for an empty buffer.
func ComputeBounds(points []float32) (Bounds, bool) {
	if len(points) < 3 {
		return Bounds{}, false
	}
	b := Bounds{
		MinX: points[0], MaxX: points[0],
		MinY: points[1], MaxY: points[1],
		MinZ: points[2], MaxZ: points[2],
	}
	for i := 3; i+2 < len(points); i += 3 {
		b.MinX = min32(b.MinX, points[i])
		b.MaxX = max32(b.MaxX, points[i])
		b.MinY = min32(b.MinY, points[i+1])
		b.MaxY = max32(b.MaxY, points[i+1])
		b.MinZ = min32(b.MinZ, points[i+2])
		b.MaxZ = max32(b.MaxZ, points[i+2])
	}
	return b, true
}

// Valid reports whether the box is numerically usable: no NaN and min <= max
// on every axis.
func (b Bounds) Valid() bool {
	if anyNaN(b.MinX, b.MinY, b.MinZ, b.MaxX, b.MaxY, b.MaxZ) {
		return false
	}
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY && b.MinZ <= b.MaxZ
}

func anyNaN(vs ...float32) bool {
	for _, v := range vs {
		if math.IsNaN(float64(v)) {
			return true
		}
	}
	return false
}

func min32(a, b float32) float32 {
	if b < a {
		return b
	}
	return a
}

func max32(a, b float32) float32 {
	if b > a {
		return b
	}
	return a
}
