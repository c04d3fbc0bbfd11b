package game

import "github.com/Faultbox/kmx-platformer/pkg/math"

// Box is a static cube in the level.
type Box struct {
	Pos    math.Vec3
	Scale  math.Vec3
	Colour [4]float32
}

// ModelMatrix returns translate(pos) * scale.
func (b Box) ModelMatrix() math.Mat4 {
	return math.Identity().Scale(b.Scale).Translate(b.Pos)
}

var (
	groundColour = [4]float32{0.8, 0.1, 0.2, 1}
	boxColour    = [4]float32{0.2, 0.1, 0.8, 1}
)

// DefaultScenery returns the test level: a ground slab and five boxes.
func DefaultScenery() []Box {
	box := func(x, z, height float32) Box {
		return Box{
			Pos:    math.Vec3{X: x, Z: z},
			Scale:  math.Vec3{X: 5, Y: height, Z: 5},
			Colour: boxColour,
		}
	}
	return []Box{
		{Pos: math.Vec3{Y: -0.25}, Scale: math.Vec3{X: 25, Y: 0.1, Z: 25}, Colour: groundColour},
		box(-7, -3, 1),
		box(11, -4, 1),
		box(0, -11, 10),
		box(-5, 4, 1),
		box(3, -6, 1),
	}
}
