package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Bounds is an axis-aligned bounding box. An empty box has Min > Max on every axis.
type Bounds struct {
	Min mgl32.Vec3 `json:"min"`
	Max mgl32.Vec3 `json:"max"`
}

// EmptyBounds returns a box that contains nothing; extending it with any point yields that point.
//
// Returns:
//   - Bounds: the empty box
func EmptyBounds() Bounds {
	inf := float32(math.Inf(1))
	return Bounds{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// BoundsOf returns the smallest box containing every point.
//
// Parameters:
//   - points: the points to enclose
//
// Returns:
//   - Bounds: the enclosing box (empty when points is empty)
func BoundsOf(points [][3]float32) Bounds {
	b := EmptyBounds()
	for _, p := range points {
		b = b.Extend(mgl32.Vec3(p))
	}
	return b
}

// IsEmpty reports whether the box contains no points.
func (b Bounds) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Extend returns the box grown to contain p.
func (b Bounds) Extend(p mgl32.Vec3) Bounds {
	for i := range 3 {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Union returns the smallest box containing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Transform returns the box enclosing the eight corners of b transformed by m.
//
// Parameters:
//   - m: the affine transform to apply
//
// Returns:
//   - Bounds: the transformed box (empty stays empty)
func (b Bounds) Transform(m mgl32.Mat4) Bounds {
	if b.IsEmpty() {
		return b
	}

	out := EmptyBounds()
	for i := range 8 {
		corner := mgl32.Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out = out.Extend(mgl32.TransformCoordinate(corner, m))
	}
	return out
}

// Center returns the midpoint of the box.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent of the box along each axis.
func (b Bounds) Size() mgl32.Vec3 {
	if b.IsEmpty() {
		return mgl32.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// MaxExtent returns the largest of the three axis extents.
func (b Bounds) MaxExtent() float32 {
	s := b.Size()
	return max(s[0], s[1], s[2])
}

// FitTransform returns the matrix that scales the box so its largest extent is 2 and moves it so it sits
// centered on the origin in X and Z with its base on Y=0. A degenerate box is translated only.
//
// Returns:
//   - mgl32.Mat4: scale * translate(-centerX, -minY, -centerZ)
func (b Bounds) FitTransform() mgl32.Mat4 {
	if b.IsEmpty() {
		return mgl32.Ident4()
	}

	scale := float32(1)
	if extent := b.MaxExtent(); extent > 0 {
		scale = 2 / extent
	}
	c := b.Center()
	return mgl32.Scale3D(scale, scale, scale).Mul4(mgl32.Translate3D(-c[0], -b.Min[1], -c[2]))
}
