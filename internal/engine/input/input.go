// Package input handles SDL2 input events and maps them to game controls.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/kmx-platformer/internal/game"
	"github.com/Faultbox/kmx-platformer/internal/logger"
)

// Event types for game use
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Mod    sdl.Keymod
	Width  int
	Height int
	MouseX int
	MouseY int
	Button uint8
}

// Action is a game control a key can be bound to.
type Action int

const (
	ActionNone Action = iota
	ActionForward
	ActionBack
	ActionLeft
	ActionRight
	ActionTurnLeft
	ActionTurnRight
	ActionTiltUp
	ActionTiltDown
	ActionJump
	ActionRaise
	ActionLower
	ActionFreeCam
	ActionMouseLook
)

// Bindings maps keys to actions.
type Bindings map[sdl.Scancode]Action

// DefaultBindings returns WASD movement, arrow-key camera and space to jump.
func DefaultBindings() Bindings {
	return Bindings{
		sdl.SCANCODE_W:     ActionForward,
		sdl.SCANCODE_S:     ActionBack,
		sdl.SCANCODE_A:     ActionLeft,
		sdl.SCANCODE_D:     ActionRight,
		sdl.SCANCODE_LEFT:  ActionTurnLeft,
		sdl.SCANCODE_RIGHT: ActionTurnRight,
		sdl.SCANCODE_UP:    ActionTiltUp,
		sdl.SCANCODE_DOWN:  ActionTiltDown,
		sdl.SCANCODE_SPACE: ActionJump,
		sdl.SCANCODE_E:     ActionRaise,
		sdl.SCANCODE_Q:     ActionLower,
		sdl.SCANCODE_TAB:   ActionFreeCam,
		sdl.SCANCODE_M:     ActionMouseLook,
	}
}

// stickDeadzone is the normalized stick deflection ignored as noise.
const stickDeadzone = 0.1

// Input handles all input processing.
type Input struct {
	Bindings Bindings

	events     []Event
	held       map[Action]bool
	mouseDX    float32
	mouseDY    float32
	controller *sdl.GameController
}

// New creates a new input handler with the default bindings.
func New() *Input {
	return &Input{
		Bindings: DefaultBindings(),
		events:   make([]Event, 0, 16),
		held:     make(map[Action]bool),
	}
}

// Update polls SDL events and converts them to game events.
// Returns true if the game should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]
	i.mouseDX, i.mouseDY = 0, 0

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			pressed := e.Type == sdl.KEYDOWN
			if action := i.Bindings[e.Keysym.Scancode]; action != ActionNone {
				i.held[action] = pressed
			}
			if e.Repeat != 0 {
				continue
			}
			typ := EventKeyUp
			if pressed {
				typ = EventKeyDown
			}
			i.events = append(i.events, Event{
				Type: typ,
				Key:  e.Keysym.Scancode,
				Mod:  sdl.Keymod(e.Keysym.Mod),
			})

		case *sdl.MouseMotionEvent:
			i.mouseDX += float32(e.XRel)
			i.mouseDY += float32(e.YRel)
			i.events = append(i.events, Event{
				Type:   EventMouseMove,
				MouseX: int(e.X),
				MouseY: int(e.Y),
			})

		case *sdl.MouseButtonEvent:
			typ := EventMouseUp
			if e.Type == sdl.MOUSEBUTTONDOWN {
				typ = EventMouseDown
			}
			i.events = append(i.events, Event{
				Type:   typ,
				MouseX: int(e.X),
				MouseY: int(e.Y),
				Button: e.Button,
			})

		case *sdl.ControllerDeviceEvent:
			i.handleController(e)
		}
	}

	return false
}

func (i *Input) handleController(e *sdl.ControllerDeviceEvent) {
	switch e.Type {
	case sdl.CONTROLLERDEVICEADDED:
		if i.controller != nil {
			return
		}
		i.controller = sdl.GameControllerOpen(int(e.Which))
		if i.controller != nil {
			logger.Info("controller connected", zap.String("name", i.controller.Name()))
		}
	case sdl.CONTROLLERDEVICEREMOVED:
		if i.controller != nil {
			logger.Info("controller disconnected")
			i.controller.Close()
			i.controller = nil
		}
	}
}

// Controls returns the game controls for this frame: held keys, mouse
// motion since the last Update, and an attached controller if any.
func (i *Input) Controls() game.Controls {
	c := game.Controls{
		Forward:   axis(i.held[ActionForward]),
		Back:      axis(i.held[ActionBack]),
		Left:      axis(i.held[ActionLeft]),
		Right:     axis(i.held[ActionRight]),
		TurnLeft:  axis(i.held[ActionTurnLeft]),
		TurnRight: axis(i.held[ActionTurnRight]),
		TiltUp:    axis(i.held[ActionTiltUp]),
		TiltDown:  axis(i.held[ActionTiltDown]),
		Jump:      i.held[ActionJump],
		Raise:     i.held[ActionRaise],
		Lower:     i.held[ActionLower],
		FreeCam:   i.held[ActionFreeCam],
		MouseLook: i.held[ActionMouseLook],
		MouseDX:   i.mouseDX,
		MouseDY:   i.mouseDY,
	}

	if i.controller != nil {
		i.applyController(&c)
	}
	return c
}

// applyController adds stick and button state, keeping the larger of key and
// stick input per axis.
func (i *Input) applyController(c *game.Controls) {
	gc := i.controller

	lx := stick(gc.Axis(sdl.CONTROLLER_AXIS_LEFTX))
	ly := stick(gc.Axis(sdl.CONTROLLER_AXIS_LEFTY))
	rx := stick(gc.Axis(sdl.CONTROLLER_AXIS_RIGHTX))
	ry := stick(gc.Axis(sdl.CONTROLLER_AXIS_RIGHTY))

	c.Left = max(c.Left, -lx)
	c.Right = max(c.Right, lx)
	c.Forward = max(c.Forward, -ly)
	c.Back = max(c.Back, ly)
	c.TurnLeft = max(c.TurnLeft, -rx)
	c.TurnRight = max(c.TurnRight, rx)
	c.TiltUp = max(c.TiltUp, -ry)
	c.TiltDown = max(c.TiltDown, ry)

	c.Jump = c.Jump || gc.Button(sdl.CONTROLLER_BUTTON_A) != 0
	c.Raise = c.Raise || gc.Button(sdl.CONTROLLER_BUTTON_RIGHTSHOULDER) != 0
	c.Lower = c.Lower || gc.Button(sdl.CONTROLLER_BUTTON_LEFTSHOULDER) != 0
	c.FreeCam = c.FreeCam || gc.Button(sdl.CONTROLLER_BUTTON_BACK) != 0
}

func axis(held bool) float32 {
	if held {
		return 1
	}
	return 0
}

// stick normalizes a raw axis value to [-1, 1] with the deadzone removed.
func stick(raw int16) float32 {
	v := float32(raw) / 32767
	if v > -stickDeadzone && v < stickDeadzone {
		return 0
	}
	return max(-1, min(v, 1))
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}

// Close releases an open controller.
func (i *Input) Close() {
	if i.controller != nil {
		i.controller.Close()
		i.controller = nil
	}
}
