// Package game runs the platformer simulation: player, camera and the
// character's animation, advanced on a fixed timestep.
package game

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/Faultbox/kmx-platformer/internal/config"
	"github.com/Faultbox/kmx-platformer/internal/engine/camera"
	"github.com/Faultbox/kmx-platformer/internal/engine/model"
	"github.com/Faultbox/kmx-platformer/internal/game/player"
	"github.com/Faultbox/kmx-platformer/internal/logger"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// ProviderSet builds a World from a config and an asset manager.
var ProviderSet = wire.NewSet(LoadCharacter, NewWorld)

// RunAnimation is played while the player moves on the ground.
const RunAnimation = "run"

const (
	// runThreshold is the fraction of top speed above which the run clip plays.
	runThreshold = 0.1
	// minStep drops float residue left over after the last fixed step.
	minStep = 1e-9
)

// Controls is the state of every game control for one frame. Axes are in
// [0, 1]; buttons report whether they are held.
type Controls struct {
	Forward, Back, Left, Right float32
	TurnLeft, TurnRight        float32
	TiltUp, TiltDown           float32

	Jump, Raise, Lower bool

	// Toggle buttons flip their setting when pressed, not while held.
	FreeCam, MouseLook bool

	// Cursor movement since the previous frame, in pixels.
	MouseDX, MouseDY float32
}

func (c Controls) player() player.Input {
	return player.Input{
		Forward: c.Forward,
		Back:    c.Back,
		Left:    c.Left,
		Right:   c.Right,
		Jump:    c.Jump,
	}
}

func (c Controls) camera() camera.Input {
	return camera.Input{
		Forward:   c.Forward,
		Back:      c.Back,
		Left:      c.Left,
		Right:     c.Right,
		TurnLeft:  c.TurnLeft,
		TurnRight: c.TurnRight,
		TiltUp:    c.TiltUp,
		TiltDown:  c.TiltDown,
		Raise:     c.Raise,
		Lower:     c.Lower,
		MouseDX:   c.MouseDX,
		MouseDY:   c.MouseDY,
	}
}

// World is the simulation state. All of it lives here; nothing is global.
type World struct {
	Player    *player.Player
	Camera    *camera.Camera
	Character *Character
	Animator  *model.Animator // nil without a character

	mode       camera.Mode
	fixedStep  float64
	maxFrameDt float64
	prev       Controls
	idleAnim   int
	runAnim    int
	ticks      uint64
	elapsed    float64
}

// NewWorld creates the world with the camera behind the player.
// ch may be nil, in which case nothing is animated.
func NewWorld(cfg *config.Config, ch *Character) *World {
	w := &World{
		Player:     player.New(cfg.Player),
		Camera:     camera.New(cfg.Camera, math.Vec3{Y: 2, Z: 5}, math.Vec3{}),
		Character:  ch,
		mode:       camera.ModeFollow,
		fixedStep:  cfg.Simulation.FixedStep,
		maxFrameDt: cfg.Simulation.MaxFrameDt,
		idleAnim:   -1,
		runAnim:    -1,
	}

	if ch != nil {
		w.Animator = model.NewAnimator(ch.Skeleton, ch.InverseBindPoses)
		w.idleAnim = ch.Skeleton.AnimationIndex(cfg.Assets.DefaultAnimation)
		w.runAnim = ch.Skeleton.AnimationIndex(RunAnimation)
		if w.idleAnim < 0 {
			logger.Warn("default animation not found, using bind pose",
				zap.String("animation", cfg.Assets.DefaultAnimation))
		}
		w.Animator.Play(w.idleAnim)
	}

	return w
}

// Frame advances the world by dt seconds of wall time and returns the number
// of simulation steps taken. dt is clamped to the configured maximum, then
// consumed in fixed steps; the last step takes whatever remains.
func (w *World) Frame(c Controls, dt float64) int {
	w.toggle(c)

	dt = min(max(dt, 0), w.maxFrameDt)
	w.elapsed += dt

	steps := 0
	for remaining := dt; remaining > minStep; remaining -= w.fixedStep {
		w.step(c, float32(min(remaining, w.fixedStep)))
		steps++
	}

	w.animate(float32(dt))
	return steps
}

func (w *World) toggle(c Controls) {
	if c.FreeCam && !w.prev.FreeCam {
		if w.mode == camera.ModeFree {
			w.mode = camera.ModeFollow
		} else {
			w.mode = camera.ModeFree
		}
		logger.Debug("camera mode", zap.Stringer("mode", w.mode))
	}
	if c.MouseLook && !w.prev.MouseLook {
		w.Camera.MouseControls = !w.Camera.MouseControls
		logger.Debug("mouse controls", zap.Bool("enabled", w.Camera.MouseControls))
	}
	w.prev = c
}

func (w *World) step(c Controls, dt float32) {
	// Free-cam borrows the movement controls, so the player stands still.
	if w.mode == camera.ModeFollow {
		w.Player.Update(c.player(), w.Camera.Forward(), w.Camera.Right(), dt)
	}
	w.Camera.Update(w.mode, c.camera(), w.Player.Pos, dt)
	w.ticks++
}

func (w *World) animate(dt float32) {
	if w.Animator == nil {
		return
	}

	clip := w.idleAnim
	if w.runAnim >= 0 && w.Player.OnGround && w.Player.GroundSpeed() > runThreshold*w.Player.TopSpeed() {
		clip = w.runAnim
	}
	w.Animator.Play(clip)
	w.Animator.Advance(dt)
}

// CameraMode returns the current camera mode.
func (w *World) CameraMode() camera.Mode {
	return w.mode
}

// Ticks returns the number of simulation steps run so far.
func (w *World) Ticks() uint64 {
	return w.ticks
}

// Elapsed returns the simulated time in seconds.
func (w *World) Elapsed() float64 {
	return w.elapsed
}
