// Package player implements platformer movement for the player character.
//
// The jump is specified by its shape rather than raw forces: running at top
// speed, the player peaks at JumpHeight after covering JumpDistToPeak on the
// ground plane. Gravity and launch velocity follow from those two values.
package player

import (
	gomath "math"

	"github.com/Faultbox/kmx-platformer/internal/config"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

const (
	velocityEpsilon = 1e-4
	turnEpsilon     = 1e-5
)

// Input is one simulation step of movement controls. Axes are in [0, 1].
type Input struct {
	Forward, Back, Left, Right float32
	Jump                       bool
}

// Moving reports whether any movement axis is held.
func (in Input) Moving() bool {
	return in.Forward != 0 || in.Back != 0 || in.Left != 0 || in.Right != 0
}

// Player is the controllable character.
type Player struct {
	Pos   math.Vec3
	Vel   math.Vec3
	Fwd   math.Vec3 // facing direction on the XZ plane
	R     math.Mat4 // rotation about +Y
	Scale math.Vec3

	OnGround bool
	Jumping  bool
	Colour   [4]float32

	topSpeed  float32
	accel     float32
	friction  float32
	gravity   float32
	jumpVel   float32
	turnSpeed float32

	jumpHeld bool
}

// Gravity returns the downward acceleration for the configured jump arc.
func Gravity(cfg config.PlayerConfig) float32 {
	d := cfg.JumpDistToPeak
	return -2 * cfg.JumpHeight * cfg.TopSpeed * cfg.TopSpeed / (d * d)
}

// JumpVelocity returns the launch speed for the configured jump arc.
func JumpVelocity(cfg config.PlayerConfig) float32 {
	return 2 * cfg.JumpHeight * cfg.TopSpeed / cfg.JumpDistToPeak
}

// New creates a player at the origin facing -Z. It starts airborne and lands
// on the first update.
func New(cfg config.PlayerConfig) *Player {
	return &Player{
		Fwd:       math.Vec3{Z: -1},
		R:         math.Identity(),
		Scale:     math.Vec3{X: cfg.Scale[0], Y: cfg.Scale[1], Z: cfg.Scale[2]},
		Colour:    [4]float32{0.1, 0.8, 0.3, 1},
		topSpeed:  cfg.TopSpeed,
		accel:     cfg.TopSpeed / cfg.TimeToTopSpeed,
		friction:  cfg.Friction,
		gravity:   Gravity(cfg),
		jumpVel:   JumpVelocity(cfg),
		turnSpeed: cfg.TurnSpeed,
	}
}

// Update advances the player by dt seconds. Movement is relative to the
// camera's forward and right vectors projected onto the ground plane.
func (p *Player) Update(in Input, camFwd, camRight math.Vec3, dt float32) {
	fwd := math.Vec3{X: camFwd.X, Z: camFwd.Z}.Normalize()
	rgt := math.Vec3{X: camRight.X, Z: camRight.Z}.Normalize()

	dir := p.steer(in, fwd, rgt, dt)
	p.turn(dir, dt)

	p.Vel = p.Vel.Add(dir.Scale(p.accel * dt))

	if p.OnGround {
		p.groundStep(in)
	} else {
		p.airStep(in, dt)
	}

	p.Pos = p.Pos.Add(p.Vel.Scale(dt))

	if p.Pos.Y < 0 {
		p.Land()
	}
}

// steer returns the normalized movement direction and brakes along every
// axis whose input is released. Braking stops at zero along that axis.
func (p *Player) steer(in Input, fwd, rgt math.Vec3, dt float32) math.Vec3 {
	var dir math.Vec3
	brake := p.accel * dt

	axes := [...]struct {
		input float32
		axis  math.Vec3
	}{
		{in.Forward, fwd},
		{in.Left, rgt.Neg()},
		{in.Back, fwd.Neg()},
		{in.Right, rgt},
	}
	for _, a := range axes {
		if a.input != 0 {
			dir = dir.Add(a.axis.Scale(a.input))
		} else if along := p.Vel.Dot(a.axis); along > velocityEpsilon {
			p.Vel = p.Vel.Sub(a.axis.Scale(min(brake, along)))
		}
	}

	return dir.Normalize()
}

// turn rotates the player toward dir at turnSpeed, never overshooting.
func (p *Player) turn(dir math.Vec3, dt float32) {
	if dir.Length2() <= turnEpsilon {
		return
	}

	alignment := math.Clamp(p.Fwd.Dot(dir), -1, 1)
	if math.ApproxEqual(alignment, 1, turnEpsilon) {
		return
	}

	remaining := math.Degrees(float32(gomath.Acos(float64(alignment))))
	amount := min(p.turnSpeed*dt, remaining)
	if p.Fwd.Cross(dir).Y < 0 {
		amount = -amount
	}

	p.R = math.RotationY(amount).Mul(p.R)
	p.Fwd = math.Vec3{X: -p.R[8], Y: -p.R[9], Z: -p.R[10]}
}

func (p *Player) groundStep(in Input) {
	speed := p.Vel.Length()
	if speed > p.topSpeed {
		p.Vel = p.Vel.Scale(p.topSpeed / speed)
	}
	if speed < velocityEpsilon {
		p.Vel = math.Vec3{}
	}

	if !in.Moving() {
		p.Vel = p.Vel.Scale(p.friction)
	}

	// Jump triggers on the press, not while held.
	if in.Jump {
		if !p.jumpHeld {
			p.Vel.Y += p.jumpVel
			p.OnGround = false
			p.Jumping = true
			p.jumpHeld = true
		}
	} else {
		p.jumpHeld = false
	}
}

func (p *Player) airStep(in Input, dt float32) {
	// Releasing jump while rising cuts the jump short.
	if p.Jumping && !in.Jump && p.Vel.Y > 0 {
		p.Vel.Y += p.gravity * dt
	}

	xz := math.Vec3{X: p.Vel.X, Z: p.Vel.Z}
	if xz.Length() > p.topSpeed {
		xz = xz.Normalize().Scale(p.topSpeed)
		p.Vel.X, p.Vel.Z = xz.X, xz.Z
	}

	p.Vel.Y += p.gravity * dt
}

// Land puts the player on the ground plane.
func (p *Player) Land() {
	p.Pos.Y = 0
	p.Vel.Y = 0
	p.OnGround = true
	p.Jumping = false
}

// GroundSpeed returns the speed on the XZ plane.
func (p *Player) GroundSpeed() float32 {
	return math.Vec3{X: p.Vel.X, Z: p.Vel.Z}.Length()
}

// TopSpeed returns the configured maximum ground speed.
func (p *Player) TopSpeed() float32 {
	return p.topSpeed
}

// ModelMatrix returns translate(pos) * R * scale.
func (p *Player) ModelMatrix() math.Mat4 {
	return math.Translation(p.Pos).Mul(p.R).Mul(math.Scaling(p.Scale))
}
