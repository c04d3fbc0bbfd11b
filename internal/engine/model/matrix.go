package model

import (
	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// LocalBoneMatrix builds the bone's local transform at time t.
// Translation is applied after rotation: T * R. Channels without a sample
// contribute identity.
func LocalBoneMatrix(kf formats.BoneKeyFrames, t float32) math.Mat4 {
	local := math.Identity()
	if v, ok := SampleTranslation(kf.Translation(), t); ok {
		local = math.Translation(v)
	}
	if q, ok := SampleRotation(kf.Rotation(), t); ok {
		local = local.Mul(q.ToMat4())
	}
	return local
}

// JointPositions returns the origin of each pose in model space, e.g. for
// drawing a skeleton overlay.
func JointPositions(poses []math.Mat4) []math.Vec3 {
	joints := make([]math.Vec3, len(poses))
	for i, p := range poses {
		joints[i] = p.TransformPoint(math.Vec3{})
	}
	return joints
}
