// Package debug provides debug visualization utilities.
package debug

import (
	"github.com/Faultbox/kmx-platformer/internal/engine/model"
	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// BoundsLineCount is the number of endpoints in a box wireframe (12 edges × 2).
const BoundsLineCount = 24

// BoundsLines returns line endpoints for the wireframe of b grown by padding
// on every side.
func BoundsLines(b model.Bounds, padding float32) []math.Vec3 {
	pad := math.Vec3{X: padding, Y: padding, Z: padding}
	lo, hi := b.Min.Sub(pad), b.Max.Add(pad)

	corner := func(x, y, z bool) math.Vec3 {
		c := lo
		if x {
			c.X = hi.X
		}
		if y {
			c.Y = hi.Y
		}
		if z {
			c.Z = hi.Z
		}
		return c
	}

	lines := make([]math.Vec3, 0, BoundsLineCount)
	for _, y := range []bool{false, true} {
		// Bottom and top faces
		lines = append(lines,
			corner(false, y, false), corner(true, y, false),
			corner(true, y, false), corner(true, y, true),
			corner(true, y, true), corner(false, y, true),
			corner(false, y, true), corner(false, y, false),
		)
	}
	// Vertical edges
	for _, xz := range [4][2]bool{{false, false}, {true, false}, {true, true}, {false, true}} {
		lines = append(lines, corner(xz[0], false, xz[1]), corner(xz[0], true, xz[1]))
	}
	return lines
}

// SkeletonLines returns one line per non-root bone, from its parent's joint to
// its own. poses are model-space bone transforms without inverse bind poses.
func SkeletonLines(skel *formats.Skeleton, poses []math.Mat4) []math.Vec3 {
	joints := model.JointPositions(poses[:skel.NumBones()])

	lines := make([]math.Vec3, 0, 2*len(joints))
	for i := range joints {
		if p := skel.Parent(i); p >= 0 {
			lines = append(lines, joints[p], joints[i])
		}
	}
	return lines
}

// Transform applies m to every point in place.
func Transform(points []math.Vec3, m math.Mat4) {
	for i, p := range points {
		points[i] = m.TransformPoint(p)
	}
}
