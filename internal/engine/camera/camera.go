// Package camera provides the yaw/pitch game camera.
package camera

import (
	gomath "math"

	"github.com/Faultbox/kmx-platformer/internal/config"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// Pitch limits in degrees.
const (
	MinPitch = -85
	MaxPitch = 80
)

// Mode selects how the camera is positioned each update.
type Mode int

const (
	// ModeFollow keeps the camera behind and above a target.
	ModeFollow Mode = iota
	// ModeFree flies the camera with the movement controls.
	ModeFree
)

func (m Mode) String() string {
	if m == ModeFree {
		return "free"
	}
	return "follow"
}

// Input is one update's worth of camera controls. Analog axes are in [0, 1].
type Input struct {
	Forward, Back, Left, Right float32
	TurnLeft, TurnRight        float32
	TiltUp, TiltDown           float32
	Raise, Lower               bool

	// Cursor movement since the previous frame, in pixels.
	MouseDX, MouseDY float32
}

// Camera is a yaw/pitch camera with zero roll.
type Camera struct {
	Pos   math.Vec3
	Yaw   float32 // degrees around +Y, kept in [0, 360)
	Pitch float32 // degrees around the camera's X axis

	// Speeds
	MoveSpeed        float32 // units per second
	TurnSpeed        float32 // degrees per second
	MouseSensitivity float32
	MouseControls    bool

	// Follow mode offsets along the camera's back and up vectors.
	FollowDistance float32
	FollowHeight   float32

	// Projection
	FOV, Near, Far float32

	fwd, rgt, up math.Vec3
	view         math.Mat4
}

// New creates a camera at pos looking at target.
func New(cfg config.CameraConfig, pos, target math.Vec3) *Camera {
	c := &Camera{
		Pos:              pos,
		MoveSpeed:        cfg.MoveSpeed,
		TurnSpeed:        cfg.TurnSpeed,
		MouseSensitivity: cfg.MouseSensitivity,
		MouseControls:    cfg.MouseControls,
		FollowDistance:   cfg.FollowDistance,
		FollowHeight:     cfg.FollowHeight,
		FOV:              cfg.FOV,
		Near:             cfg.Near,
		Far:              cfg.Far,
	}
	c.LookAt(target)
	return c
}

// LookAt points the camera at target, deriving yaw and pitch.
func (c *Camera) LookAt(target math.Vec3) {
	dir := target.Sub(c.Pos).Normalize()
	if dir.Length2() == 0 {
		c.updateMatrices()
		return
	}

	c.Yaw = math.Degrees(float32(gomath.Atan2(float64(-dir.X), float64(-dir.Z))))
	c.Pitch = math.Degrees(float32(gomath.Asin(float64(math.Clamp(dir.Y, -1, 1)))))
	c.clampAngles()
	c.updateMatrices()
}

// Update applies one simulation step of input. In follow mode the camera
// ends up FollowDistance behind and FollowHeight above target.
func (c *Camera) Update(mode Mode, in Input, target math.Vec3, dt float32) {
	if mode == ModeFree {
		c.fly(in, dt)
	}

	if c.MouseControls {
		// Cursor right/down turns right/down.
		c.Yaw -= in.MouseDX * c.MouseSensitivity * c.TurnSpeed * dt
		c.Pitch -= in.MouseDY * c.MouseSensitivity * c.TurnSpeed * dt
	} else {
		c.Yaw += (in.TurnLeft - in.TurnRight) * c.TurnSpeed * dt
		c.Pitch += (in.TiltUp - in.TiltDown) * c.TurnSpeed * dt
	}
	c.clampAngles()

	c.updateBasis()
	if mode == ModeFollow {
		c.Pos = target.Sub(c.fwd.Scale(c.FollowDistance)).Add(c.up.Scale(c.FollowHeight))
	}
	c.updateView()
}

// fly moves the camera on the XZ plane and raises or lowers it.
func (c *Camera) fly(in Input, dt float32) {
	fwd, rgt := c.ForwardXZ(), c.RightXZ()
	step := c.MoveSpeed * dt

	c.Pos = c.Pos.
		Add(fwd.Scale((in.Forward - in.Back) * step)).
		Add(rgt.Scale((in.Right - in.Left) * step))

	if in.Raise {
		c.Pos.Y += step
	}
	if in.Lower {
		c.Pos.Y -= step
	}
}

func (c *Camera) clampAngles() {
	c.Yaw = float32(gomath.Mod(float64(c.Yaw), 360))
	if c.Yaw < 0 {
		c.Yaw += 360
	}
	c.Pitch = math.Clamp(c.Pitch, MinPitch, MaxPitch)
}

// Rotation returns RotY(yaw) * RotX(pitch).
func (c *Camera) Rotation() math.Mat4 {
	return math.RotationY(c.Yaw).Mul(math.RotationX(c.Pitch))
}

func (c *Camera) updateBasis() {
	r := c.Rotation()
	c.rgt = r.TransformDirection(math.Vec3{X: 1})
	c.up = r.TransformDirection(math.Vec3{Y: 1})
	c.fwd = r.TransformDirection(math.Vec3{Z: -1})
}

func (c *Camera) updateView() {
	c.view = c.Rotation().Transpose().Mul(math.Translation(c.Pos.Neg()))
}

func (c *Camera) updateMatrices() {
	c.updateBasis()
	c.updateView()
}

// Forward returns the unit view direction.
func (c *Camera) Forward() math.Vec3 { return c.fwd }

// Right returns the unit right vector.
func (c *Camera) Right() math.Vec3 { return c.rgt }

// Up returns the unit up vector.
func (c *Camera) Up() math.Vec3 { return c.up }

// ForwardXZ returns the forward vector projected onto the ground plane.
func (c *Camera) ForwardXZ() math.Vec3 {
	return math.Vec3{X: c.fwd.X, Z: c.fwd.Z}.Normalize()
}

// RightXZ returns the right vector projected onto the ground plane.
func (c *Camera) RightXZ() math.Vec3 {
	return math.Vec3{X: c.rgt.X, Z: c.rgt.Z}.Normalize()
}

// ViewMatrix returns transpose(R) * translate(-pos) from the last update.
func (c *Camera) ViewMatrix() math.Mat4 {
	return c.view
}

// ProjectionMatrix returns the perspective projection for a viewport with
// the given aspect ratio (width/height).
func (c *Camera) ProjectionMatrix(aspect float32) math.Mat4 {
	return math.Perspective(c.FOV, aspect, c.Near, c.Far)
}
