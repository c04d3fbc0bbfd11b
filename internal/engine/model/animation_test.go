package model

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

var (
	axisX = math.Vec3{X: 1}
	axisY = math.Vec3{Y: 1}
	axisZ = math.Vec3{Z: 1}
)

func TestAnimate_InvalidIndexFillsIdentity(t *testing.T) {
	skel := mustSkeleton(t, formats.SkeletonSource{
		Bones: chainBones("root", "mid", "tip"),
		Animations: []formats.AnimationSource{{
			Name:     "bend",
			Duration: 1,
			Tracks:   map[string]formats.TrackSource{"mid": holdTrack(math.Vec3{X: 1}, axisZ, 30)},
		}},
	})

	for _, index := range []int{-1, skel.NumAnimations(), 42} {
		out := newPoses(3)
		Animate(skel, index, 0.5, nil, out)
		for b, pose := range out {
			assert.Equal(t, math.Identity(), pose, "index %d bone %d", index, b)
		}
	}
}

func TestAnimate_InvalidIndexLeavesExtraSlots(t *testing.T) {
	skel := mustSkeleton(t, formats.SkeletonSource{Bones: chainBones("root")})

	out := newPoses(2)
	Animate(skel, 0, 0, nil, out)
	assert.Equal(t, math.Identity(), out[0])
	assert.Equal(t, newPoses(1)[0], out[1])
}

func TestAnimate_BindPoseRecomposition(t *testing.T) {
	// One key per channel: every local transform is identity.
	rest := formats.TrackSource{
		Translations: []formats.TranslationKey{{Time: 0}},
		Rotations:    []formats.RotationKey{{Time: 0, Quat: &[4]float32{1, 0, 0, 0}}},
	}
	skel := mustSkeleton(t, formats.SkeletonSource{
		Bones: chainBones("hips", "spine", "head"),
		Animations: []formats.AnimationSource{{
			Name:     "rest",
			Duration: 1,
			Tracks:   map[string]formats.TrackSource{"hips": rest, "spine": rest, "head": rest},
		}},
	})

	t.Run("identity inverse bind poses", func(t *testing.T) {
		ibp := []math.Mat4{math.Identity(), math.Identity(), math.Identity()}
		for _, at := range []float32{0, 0.3, 1} {
			out := newPoses(3)
			Animate(skel, 0, at, ibp, out)
			for b := range out {
				requireMatNear(t, math.Identity(), out[b])
			}
		}
	})

	t.Run("pose is parent pose times inverse bind pose", func(t *testing.T) {
		ibp := []math.Mat4{
			math.Translation(math.Vec3{Y: -1}),
			math.RotationZ(20),
			math.Scaling(math.Vec3{X: 2, Y: 2, Z: 2}),
		}
		out := newPoses(3)
		Animate(skel, 0, 0.5, ibp, out)

		requireMatNear(t, ibp[0], out[0])
		requireMatNear(t, out[0].Mul(ibp[1]), out[1])
		requireMatNear(t, out[1].Mul(ibp[2]), out[2])
	})

	t.Run("nil inverse bind poses", func(t *testing.T) {
		out := newPoses(3)
		Animate(skel, 0, 0.5, nil, out)
		for b := range out {
			requireMatNear(t, math.Identity(), out[b])
		}
	})
}

func TestAnimate_MonotonicInterpolation(t *testing.T) {
	skel := mustSkeleton(t, formats.SkeletonSource{
		Bones: chainBones("root"),
		Animations: []formats.AnimationSource{{
			Name:     "slide",
			Duration: 1,
			Tracks: map[string]formats.TrackSource{"root": {
				Translations: []formats.TranslationKey{
					{Time: 0, Value: [3]float32{0, 0, 0}},
					{Time: 1, Value: [3]float32{10, 0, 0}},
				},
			}},
		}},
	})

	out := newPoses(1)
	Animate(skel, 0, 0.5, nil, out)
	assert.Equal(t, math.Translation(math.Vec3{X: 5}), out[0])

	// Translation grows with time.
	var prev float32 = -1
	for _, at := range []float32{0, 0.1, 0.25, 0.5, 0.9, 1} {
		Animate(skel, 0, at, nil, out)
		x := out[0].TransformPoint(math.Vec3{}).X
		assert.Greater(t, x, prev)
		prev = x
	}
}

func TestAnimate_ThreeBoneChain(t *testing.T) {
	type local struct {
		pos   math.Vec3
		axis  math.Vec3
		angle float32
	}
	locals := []local{
		{math.Vec3{X: 1, Y: 0, Z: 0}, axisY, 90},
		{math.Vec3{X: 0, Y: 2, Z: 0}, axisZ, 45},
		{math.Vec3{X: 0, Y: 1.5, Z: 0.5}, axisX, -30},
	}

	names := []string{"shoulder", "elbow", "wrist"}
	tracks := map[string]formats.TrackSource{}
	for i, l := range locals {
		tracks[names[i]] = holdTrack(l.pos, l.axis, l.angle)
	}
	skel := mustSkeleton(t, formats.SkeletonSource{
		Bones:      chainBones(names...),
		Animations: []formats.AnimationSource{{Name: "reach", Duration: 1, Tracks: tracks}},
	})

	out := newPoses(3)
	Animate(skel, 0, 0.5, nil, out)

	world := math.Identity()
	for i, l := range locals {
		world = world.Mul(math.Translation(l.pos).Mul(math.RotationAxis(l.axis, l.angle)))
		requireMatNear(t, world, out[i])
	}

	// The wrist joint sits where the chain of offsets puts it.
	wrist := JointPositions(out)[2]
	want := world.TransformPoint(math.Vec3{})
	assert.InDelta(t, want.X, wrist.X, 1e-5)
	assert.InDelta(t, want.Y, wrist.Y, 1e-5)
	assert.InDelta(t, want.Z, wrist.Z, 1e-5)

	t.Run("inverse bind poses chain through parents", func(t *testing.T) {
		ibp := []math.Mat4{
			math.Translation(math.Vec3{X: -1}),
			math.Translation(math.Vec3{Y: -2}),
			math.Identity(),
		}
		Animate(skel, 0, 0.5, ibp, out)

		l1 := math.Translation(locals[1].pos).Mul(math.RotationAxis(locals[1].axis, locals[1].angle))
		requireMatNear(t, out[0].Mul(l1).Mul(ibp[1]), out[1])
	})
}

func TestAnimate_RotationSlerp(t *testing.T) {
	skel := mustSkeleton(t, formats.SkeletonSource{
		Bones: chainBones("root"),
		Animations: []formats.AnimationSource{{
			Name:     "turn",
			Duration: 2,
			Tracks: map[string]formats.TrackSource{"root": {
				Rotations: []formats.RotationKey{
					{Time: 0, Axis: [3]float32{0, 1, 0}, Angle: 0},
					{Time: 2, Axis: [3]float32{0, 1, 0}, Angle: 90},
				},
			}},
		}},
	})

	out := newPoses(1)
	Animate(skel, 0, 1, nil, out)
	requireMatNear(t, math.RotationY(45), out[0])
}

func TestAnimate_ChannelEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		track formats.TrackSource
		at    float32
		want  math.Mat4
	}{
		{
			name: "single key is ignored",
			track: formats.TrackSource{Translations: []formats.TranslationKey{
				{Time: 0, Value: [3]float32{10, 0, 0}},
			}},
			at:   0.5,
			want: math.Identity(),
		},
		{
			name: "past last key",
			track: formats.TrackSource{Translations: []formats.TranslationKey{
				{Time: 0, Value: [3]float32{10, 0, 0}},
				{Time: 0.5, Value: [3]float32{20, 0, 0}},
			}},
			at:   0.75,
			want: math.Identity(),
		},
		{
			name: "exactly on last key",
			track: formats.TrackSource{Translations: []formats.TranslationKey{
				{Time: 0, Value: [3]float32{10, 0, 0}},
				{Time: 0.5, Value: [3]float32{20, 0, 0}},
			}},
			at:   0.5,
			want: math.Translation(math.Vec3{X: 20}),
		},
		{
			name: "zero length interval",
			track: formats.TrackSource{Translations: []formats.TranslationKey{
				{Time: 0, Value: [3]float32{1, 0, 0}},
				{Time: 0, Value: [3]float32{2, 0, 0}},
				{Time: 1, Value: [3]float32{3, 0, 0}},
			}},
			at:   0,
			want: math.Translation(math.Vec3{X: 1}),
		},
		{
			name: "before first key extrapolates",
			track: formats.TrackSource{Translations: []formats.TranslationKey{
				{Time: 0.5, Value: [3]float32{0, 0, 0}},
				{Time: 1, Value: [3]float32{10, 0, 0}},
			}},
			at:   0.25,
			want: math.Translation(math.Vec3{X: -5}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skel := mustSkeleton(t, formats.SkeletonSource{
				Bones: chainBones("root"),
				Animations: []formats.AnimationSource{{
					Name:     "clip",
					Duration: 1,
					Tracks:   map[string]formats.TrackSource{"root": tt.track},
				}},
			})

			out := newPoses(1)
			Animate(skel, 0, tt.at, nil, out)
			requireMatNear(t, tt.want, out[0])
		})
	}
}

// linearSample is the straightforward scan the binary search replaces.
func linearSample(times []float32, values []math.Vec3, at float32) (math.Vec3, bool) {
	for i := 0; i+1 < len(times); i++ {
		if times[i+1] >= at {
			var u float32
			if d := times[i+1] - times[i]; d > 0 {
				u = (at - times[i]) / d
			}
			return values[i].Lerp(values[i+1], u), true
		}
	}
	return math.Vec3{}, false
}

func TestSampleTranslation_MatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 20; trial++ {
		n := 1 + rng.Intn(12)
		times := make([]float32, n)
		for i := range times {
			// Quarter steps make duplicate times likely.
			times[i] = float32(rng.Intn(20)) / 4
		}
		sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

		values := make([]math.Vec3, n)
		keys := make([]formats.TranslationKey, n)
		for i := range keys {
			values[i] = math.Vec3{X: rng.Float32() * 10, Y: rng.Float32(), Z: -rng.Float32()}
			keys[i] = formats.TranslationKey{Time: times[i], Value: [3]float32{values[i].X, values[i].Y, values[i].Z}}
		}

		skel := mustSkeleton(t, formats.SkeletonSource{
			Bones: chainBones("root"),
			Animations: []formats.AnimationSource{{
				Name:     "random",
				Duration: 6,
				Tracks:   map[string]formats.TrackSource{"root": {Translations: keys}},
			}},
		})
		track := skel.KeyFrames(0, 0).Translation()

		for at := float32(-0.5); at <= 5.5; at += 0.125 {
			want, wantOK := linearSample(times, values, at)
			got, gotOK := SampleTranslation(track, at)
			require.Equal(t, wantOK, gotOK, "trial %d t=%v times=%v", trial, at, times)
			require.InDelta(t, want.X, got.X, 1e-6, "trial %d t=%v times=%v", trial, at, times)
			require.InDelta(t, want.Y, got.Y, 1e-6)
			require.InDelta(t, want.Z, got.Z, 1e-6)
		}
	}
}

func TestSampleRotation_NoKeys(t *testing.T) {
	skel := mustSkeleton(t, formats.SkeletonSource{
		Bones:      chainBones("root"),
		Animations: []formats.AnimationSource{{Name: "empty", Duration: 1}},
	})

	q, ok := SampleRotation(skel.KeyFrames(0, 0).Rotation(), 0.5)
	assert.False(t, ok)
	assert.Equal(t, math.QuatIdentity(), q)
}

func TestAnimate_ShortBuffersPanic(t *testing.T) {
	skel := mustSkeleton(t, formats.SkeletonSource{
		Bones:      chainBones("a", "b", "c"),
		Animations: []formats.AnimationSource{{Name: "clip", Duration: 1}},
	})

	assert.Panics(t, func() { Animate(skel, 0, 0, nil, make([]math.Mat4, 2)) })
	assert.Panics(t, func() { Animate(skel, -1, 0, nil, make([]math.Mat4, 2)) })
	assert.Panics(t, func() { Animate(skel, 0, 0, make([]math.Mat4, 1), make([]math.Mat4, 3)) })
	assert.NotPanics(t, func() { Animate(skel, 0, 0, nil, make([]math.Mat4, 3)) })
}

func TestBounds(t *testing.T) {
	b := Bounds{Min: math.Vec3{X: -1, Y: 0, Z: -2}, Max: math.Vec3{X: 1, Y: 4, Z: 2}}
	assert.Equal(t, math.Vec3{X: 2, Y: 4, Z: 4}, b.Size())
	assert.Equal(t, math.Vec3{X: 0, Y: 2, Z: 0}, b.Center())
}
