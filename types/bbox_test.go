package types

import (
	"math"
	"testing"
)

func TestBBoxBasics(t *testing.T) {
	empty := EmptyBBox()
	if empty.IsValid() {
		t.Fatal("expected empty bbox to be invalid")
	}

	b := BBoxFromPoints(Vec3{1, 2, 3}, Vec3{-1, 0, 5}, Vec3{0, 4, 4})
	expBox := BBox{Min: Vec3{-1, 0, 3}, Max: Vec3{1, 4, 5}}
	if b != expBox {
		t.Fatalf("expected bbox %v; got %v", expBox, b)
	}
	if !b.IsValid() {
		t.Fatal("expected bbox to be valid")
	}

	if exp := (Vec3{2, 4, 2}); b.Extent() != exp {
		t.Fatalf("expected extent %v; got %v", exp, b.Extent())
	}
	if exp := (Vec3{0, 2, 4}); b.Center() != exp {
		t.Fatalf("expected center %v; got %v", exp, b.Center())
	}
	if exp := float32(2 * (8 + 4 + 8)); b.SurfaceArea() != exp {
		t.Fatalf("expected surface area %f; got %f", exp, b.SurfaceArea())
	}
	if axis := b.LongestAxis(); axis != YAxis {
		t.Fatalf("expected longest axis %d; got %d", YAxis, axis)
	}

	if !b.Contains(Vec3{1, 4, 5}) || b.Contains(Vec3{1.5, 1, 4}) {
		t.Fatal("unexpected Contains result")
	}
	if !b.ContainsBBox(BBox{Min: Vec3{0, 1, 3}, Max: Vec3{1, 2, 4}}) {
		t.Fatal("expected inner box to be contained")
	}

	union := empty.Union(b)
	if union != b {
		t.Fatalf("expected union with an empty box to be %v; got %v", b, union)
	}
}

func TestBBoxIntersectRay(t *testing.T) {
	b := BBox{Min: Vec3{-1, -1, -1}, Max: Vec3{1, 1, 1}}

	specs := []struct {
		name       string
		ray        Ray
		expHit     bool
		expTMin    float32
		expTMaxMin float32
	}{
		{"straight through", NewRay(Vec3{0, 0, 5}, Vec3{0, 0, -1}), true, 4, 6},
		{"origin inside", NewRay(Vec3{0, 0, 0}, Vec3{1, 0, 0}), true, 0, 1},
		{"parallel outside slab", NewRay(Vec3{0, 2, 5}, Vec3{0, 0, -1}), false, 0, 0},
		{"parallel on slab face", NewRay(Vec3{0, 1, 5}, Vec3{0, 0, -1}), true, 4, 6},
		{"pointing away", NewRay(Vec3{0, 0, 5}, Vec3{0, 0, 1}), false, 0, 0},
		{"diagonal miss", NewRay(Vec3{3, 0, 5}, Vec3{0, 0.1, -1}), false, 0, 0},
		{"range ends before box", Ray{Origin: Vec3{0, 0, 5}, Dir: Vec3{0, 0, -1}, TMin: 0, TMax: 3}, false, 0, 0},
		{"range starts inside box", Ray{Origin: Vec3{0, 0, 5}, Dir: Vec3{0, 0, -1}, TMin: 5, TMax: 100}, true, 5, 6},
	}

	for _, spec := range specs {
		tMin, tMax, hit := b.IntersectRay(spec.ray)
		if hit != spec.expHit {
			t.Errorf("[spec %s] expected hit to be %t; got %t", spec.name, spec.expHit, hit)
			continue
		}
		if !hit {
			continue
		}
		if tMin != spec.expTMin {
			t.Errorf("[spec %s] expected tMin %f; got %f", spec.name, spec.expTMin, tMin)
		}
		// tMax is padded outwards
		if tMax < spec.expTMaxMin || tMax > spec.expTMaxMin*1.0001 {
			t.Errorf("[spec %s] expected tMax close to %f; got %f", spec.name, spec.expTMaxMin, tMax)
		}
	}

	if _, _, hit := EmptyBBox().IntersectRay(NewRay(Vec3{}, Vec3{1, 0, 0})); hit {
		t.Fatal("expected empty box to never intersect")
	}

	// Flat boxes are hit by rays crossing their plane
	flat := BBox{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 0}}
	tMin, _, hit := flat.IntersectRay(NewRay(Vec3{0.5, 0.5, 2}, Vec3{0, 0, -1}))
	if !hit || tMin != 2 {
		t.Fatalf("expected flat box hit at t=2; got %f (hit: %t)", tMin, hit)
	}
}

func TestRayAt(t *testing.T) {
	r := NewRay(Vec3{1, 2, 3}, Vec3{0, 0, -1})
	if r.TMin != 0 || !math.IsInf(float64(r.TMax), 1) {
		t.Fatalf("expected range [0, +Inf); got [%f, %f]", r.TMin, r.TMax)
	}
	if exp := (Vec3{1, 2, 1}); r.At(2) != exp {
		t.Fatalf("expected point %v; got %v", exp, r.At(2))
	}
}
