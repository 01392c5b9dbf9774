package accel

import (
	"encoding/binary"
	"math"

	"github.com/achilleasa/tiletrace/types"
)

// Byte sizes of the packed ray and intersection layouts.
const (
	SizeofRay          = 32
	SizeofIntersection = 16
)

// A ray with its valid [MinDistance, MaxDistance] interval. Rays with a
// negative MinDistance are invalid and are skipped by all stages.
type Ray struct {
	Origin      types.Vec3
	MinDistance float32
	Direction   types.Vec3
	MaxDistance float32
}

// Returns true if the ray should be traced.
func (r *Ray) Valid() bool {
	return r.MinDistance >= 0
}

// Get the point at distance t along the ray.
func (r *Ray) At(t float32) types.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Create an invalid ray that intersection and shading stages skip.
func InvalidRay() Ray {
	return Ray{MinDistance: -1, MaxDistance: -1}
}

// An intersection result. A negative Distance indicates a miss.
type Intersection struct {
	Distance       float32
	PrimitiveIndex int32

	// Barycentric coordinates of the hit point.
	UV types.Vec2
}

// Returns true if the intersection reports a hit.
func (i *Intersection) Hit() bool {
	return i.Distance >= 0
}

// Create an intersection that reports a miss.
func Miss() Intersection {
	return Intersection{Distance: -1, PrimitiveIndex: -1}
}

// Append the packed little-endian representation of the ray to buf.
func (r *Ray) AppendBinary(buf []byte) []byte {
	buf = appendFloats(buf, r.Origin[:]...)
	buf = appendFloats(buf, r.MinDistance)
	buf = appendFloats(buf, r.Direction[:]...)
	return appendFloats(buf, r.MaxDistance)
}

// Append the packed little-endian representation of the intersection to buf.
func (i *Intersection) AppendBinary(buf []byte) []byte {
	buf = appendFloats(buf, i.Distance)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(i.PrimitiveIndex))
	return appendFloats(buf, i.UV[:]...)
}

func appendFloats(buf []byte, vals ...float32) []byte {
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}
