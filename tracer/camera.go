package tracer

import (
	"fmt"
	"math"

	"github.com/achilleasa/kdtrace/types"
)

// Stores the ray directions at the four corners of the camera frustrum. It
// is used as a shortcut for generating per pixel rays via interpolation of
// the corner rays.
type Frustrum [4]types.Vec3

func (fr Frustrum) String() string {
	return fmt.Sprintf(
		"Frustrum Rays:\nTL : (%3.3f, %3.3f, %3.3f)\nTR : (%3.3f, %3.3f, %3.3f)\nBL : (%3.3f, %3.3f, %3.3f)\nBR : (%3.3f, %3.3f, %3.3f)",
		fr[0][0], fr[0][1], fr[0][2],
		fr[1][0], fr[1][1], fr[1][2],
		fr[2][0], fr[2][1], fr[2][2],
		fr[3][0], fr[3][1], fr[3][2],
	)
}

// A pinhole camera.
type Camera struct {
	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	// Rotations (in radians) applied to the view direction by Update.
	Pitch float32
	Yaw   float32

	// Vertical field of view in degrees.
	FOV float32

	// Frame aspect ratio (width / height).
	Aspect float32

	Frustrum Frustrum
}

// Create a camera at position looking at lookAt.
func NewCamera(position, lookAt, up types.Vec3, fov float32) *Camera {
	c := &Camera{
		Position: position,
		LookAt:   lookAt,
		Up:       up.Normalize(),
		FOV:      fov,
		Aspect:   1,
	}
	c.Update()
	return c
}

// Create a camera looking at the center of bounds from the +z side, far
// enough for the whole box to fit in the vertical field of view.
func FitCamera(bounds types.BBox, fov float32) *Camera {
	if !bounds.IsValid() {
		bounds = types.BBox{Min: types.Vec3{-1, -1, -1}, Max: types.Vec3{1, 1, 1}}
	}

	center := bounds.Center()
	extent := bounds.Extent()
	radius := 0.5 * extent.Len()
	if radius == 0 {
		radius = 1
	}

	halfFov := float64(fov) * math.Pi / 360
	distance := radius / float32(math.Tan(halfFov))
	return NewCamera(
		center.Add(types.Vec3{0, 0, distance + radius}),
		center,
		types.Vec3{0, 1, 0},
		fov,
	)
}

// Setup camera projection aspect ratio.
func (c *Camera) SetupProjection(aspect float32) {
	c.Aspect = aspect
	c.Update()
}

// Update camera. Pending pitch and yaw rotations are applied to the view
// direction and the frustrum corner rays are recalculated.
func (c *Camera) Update() {
	dir := c.LookAt.Sub(c.Position).Normalize()
	if c.Pitch != 0 {
		dir = dir.Rotate(dir.Cross(c.Up).Normalize(), c.Pitch)
	}
	if c.Yaw != 0 {
		dir = dir.Rotate(c.Up, c.Yaw)
	}
	c.Pitch, c.Yaw = 0, 0

	distance := c.LookAt.Sub(c.Position).Len()
	if distance == 0 {
		distance = 1
	}
	c.LookAt = c.Position.Add(dir.Mul(distance))
	c.updateFrustrum(dir)
}

// Rotate the camera position around the look-at point about the up axis.
func (c *Camera) Orbit(angle float32) {
	offset := c.Position.Sub(c.LookAt).Rotate(c.Up, angle)
	c.Position = c.LookAt.Add(offset)
	c.Update()
}

func (c *Camera) updateFrustrum(dir types.Vec3) {
	right := dir.Cross(c.Up).Normalize()
	up := right.Cross(dir)

	tanHalfFov := float32(math.Tan(float64(c.FOV) * math.Pi / 360))
	v := up.Mul(tanHalfFov)
	h := right.Mul(tanHalfFov * c.Aspect)

	c.Frustrum[0] = dir.Add(v).Sub(h)
	c.Frustrum[1] = dir.Add(v).Add(h)
	c.Frustrum[2] = dir.Sub(v).Sub(h)
	c.Frustrum[3] = dir.Sub(v).Add(h)
}

// Generate the primary ray through the center of pixel (x, y) of a
// frameW x frameH frame. Row 0 is the top of the frame.
func (c *Camera) Ray(x, y, frameW, frameH uint32) types.Ray {
	tx := (float32(x) + 0.5) / float32(frameW)
	ty := (float32(y) + 0.5) / float32(frameH)

	top := lerp(c.Frustrum[0], c.Frustrum[1], tx)
	bottom := lerp(c.Frustrum[2], c.Frustrum[3], tx)
	return types.NewRay(c.Position, lerp(top, bottom, ty).Normalize())
}

func lerp(a, b types.Vec3, t float32) types.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}
