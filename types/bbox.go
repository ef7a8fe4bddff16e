package types

import "math"

// Relative padding applied to the far slab distance so that rounding in
// the slab test never rejects points lying on the box surface.
// Equals 1 + 2*gamma(3) for float32 arithmetic.
const slabFarPadding = 1 + 2*(3*0x1p-24)/(1-3*0x1p-24)

// An axis aligned bounding box.
type BBox struct {
	Min Vec3
	Max Vec3
}

// Create an empty bbox. Adding any point or box to it yields a valid bbox.
func EmptyBBox() BBox {
	return BBox{
		Min: Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// Create the bbox enclosing a set of points.
func BBoxFromPoints(points ...Vec3) BBox {
	b := EmptyBBox()
	for _, p := range points {
		b = b.AddPoint(p)
	}
	return b
}

// Returns true if min <= max along all axes.
func (b BBox) IsValid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Extend the bbox so it contains p.
func (b BBox) AddPoint(p Vec3) BBox {
	return BBox{Min: MinVec3(b.Min, p), Max: MaxVec3(b.Max, p)}
}

// Get the union of two boxes.
func (b BBox) Union(other BBox) BBox {
	return BBox{Min: MinVec3(b.Min, other.Min), Max: MaxVec3(b.Max, other.Max)}
}

// Returns true if p lies inside or on the surface of the box.
func (b BBox) Contains(p Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Returns true if other lies entirely inside this box.
func (b BBox) ContainsBBox(other BBox) bool {
	return b.Contains(other.Min) && b.Contains(other.Max)
}

// Get the box side lengths.
func (b BBox) Extent() Vec3 {
	return b.Max.Sub(b.Min)
}

// Get the box center.
func (b BBox) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Get the box surface area.
func (b BBox) SurfaceArea() float32 {
	d := b.Extent()
	return 2 * (d[0]*d[1] + d[0]*d[2] + d[1]*d[2])
}

// Get the axis with the largest extent.
func (b BBox) LongestAxis() int {
	d := b.Extent()
	if d[0] >= d[1] && d[0] >= d[2] {
		return XAxis
	}
	if d[1] >= d[2] {
		return YAxis
	}
	return ZAxis
}

// Clip the ray's valid range against the box using the slab method. Returns
// the parametric interval where the ray overlaps the box or false if the ray
// misses it. Ray components that are exactly zero are handled without
// dividing by zero: the ray overlaps that slab iff its origin lies inside it.
// Empty boxes never intersect.
func (b BBox) IntersectRay(r Ray) (tMin, tMax float32, hit bool) {
	if !b.IsValid() {
		return 0, 0, false
	}

	tMin, tMax = r.TMin, r.TMax
	for axis := 0; axis < 3; axis++ {
		o := r.Origin[axis]
		d := r.Dir[axis]
		if d == 0 {
			if o < b.Min[axis] || o > b.Max[axis] {
				return 0, 0, false
			}
			continue
		}

		invDir := 1.0 / d
		tNear := (b.Min[axis] - o) * invDir
		tFar := (b.Max[axis] - o) * invDir
		if tNear > tFar {
			tNear, tFar = tFar, tNear
		}
		tFar *= slabFarPadding

		if tNear > tMin {
			tMin = tNear
		}
		if tFar < tMax {
			tMax = tFar
		}
		if tMin > tMax {
			return 0, 0, false
		}
	}
	return tMin, tMax, true
}
