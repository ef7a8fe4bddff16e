package types

import "math"

// A ray with a valid parametric range [TMin, TMax]. Points along the ray are
// given by Origin + t * Dir.
type Ray struct {
	Origin Vec3
	Dir    Vec3

	TMin float32
	TMax float32
}

// Create a ray covering [0, +Inf).
func NewRay(origin, dir Vec3) Ray {
	return Ray{
		Origin: origin,
		Dir:    dir,
		TMin:   0,
		TMax:   float32(math.Inf(1)),
	}
}

// Get the point at parametric distance t.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}
