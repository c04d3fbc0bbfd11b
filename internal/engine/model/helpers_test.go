package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

const matEps = 1e-4

func mustSkeleton(t *testing.T, src formats.SkeletonSource) *formats.Skeleton {
	t.Helper()
	data, err := formats.EncodeSkeleton(src)
	require.NoError(t, err)
	skel, err := formats.ParseSkeleton(data)
	require.NoError(t, err)
	return skel
}

func mustMesh(t *testing.T, src formats.SkinnedMeshSource) *formats.SkinnedMesh {
	t.Helper()
	data, err := formats.EncodeSkinnedMesh(src)
	require.NoError(t, err)
	mesh, err := formats.ParseSkinnedMesh(data)
	require.NoError(t, err)
	return mesh
}

// chainBones returns n bones where each is the child of the previous one.
func chainBones(names ...string) []formats.BoneSource {
	bones := make([]formats.BoneSource, len(names))
	for i, name := range names {
		bones[i].Name = name
		if i > 0 {
			bones[i].Parent = names[i-1]
		}
	}
	return bones
}

// holdTrack keeps a constant translation and rotation over [0, 1].
func holdTrack(v math.Vec3, axis math.Vec3, deg float32) formats.TrackSource {
	value := [3]float32{v.X, v.Y, v.Z}
	rot := [3]float32{axis.X, axis.Y, axis.Z}
	return formats.TrackSource{
		Translations: []formats.TranslationKey{
			{Time: 0, Value: value},
			{Time: 1, Value: value},
		},
		Rotations: []formats.RotationKey{
			{Time: 0, Axis: rot, Angle: deg},
			{Time: 1, Axis: rot, Angle: deg},
		},
	}
}

func newPoses(n int) []math.Mat4 {
	poses := make([]math.Mat4, n)
	for i := range poses {
		// Garbage so tests notice slots that are not written.
		poses[i] = math.Scaling(math.Vec3{X: 7, Y: 7, Z: 7})
	}
	return poses
}

func requireMatNear(t *testing.T, want, got math.Mat4) {
	t.Helper()
	require.Truef(t, want.ApproxEqual(got, matEps), "want %v\n got %v", want, got)
}
