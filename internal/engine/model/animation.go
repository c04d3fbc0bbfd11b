package model

import (
	"fmt"
	"sort"

	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// Animate evaluates clip animIndex of skel at time t (seconds) and writes one
// model-space pose matrix per bone into out:
//
//	out[b] = out[parent(b)] * translation(t) * rotation(t) * inverseBindPoses[b]
//
// An animIndex outside [0, NumAnimations) fills the first NumBones entries
// of out with identity. t must not exceed the clip duration; see checkTime.
// A nil inverseBindPoses stands for identity on every bone.
//
// Animate panics if out, or a non-nil inverseBindPoses, is shorter than the
// bone count. It keeps no state and may run concurrently on one skeleton as
// long as each call has its own out.
func Animate(skel *formats.Skeleton, animIndex int, t float32, inverseBindPoses []math.Mat4, out []math.Mat4) {
	numBones := skel.NumBones()
	if len(out) < numBones {
		panic(fmt.Sprintf("model: pose buffer holds %d matrices, skeleton has %d bones", len(out), numBones))
	}
	if inverseBindPoses != nil && len(inverseBindPoses) < numBones {
		panic(fmt.Sprintf("model: %d inverse bind poses for %d bones", len(inverseBindPoses), numBones))
	}

	if animIndex < 0 || animIndex >= skel.NumAnimations() {
		for b := 0; b < numBones; b++ {
			out[b] = math.Identity()
		}
		return
	}

	t = checkTime(t, skel.Animation(animIndex).Duration)

	// Parents precede children, so out[parent] is already this frame's pose.
	for b := 0; b < numBones; b++ {
		pose := LocalBoneMatrix(skel.KeyFrames(animIndex, b), t)
		if parent := skel.Parent(b); parent >= 0 {
			pose = out[parent].Mul(pose)
		}
		if inverseBindPoses != nil {
			pose = pose.Mul(inverseBindPoses[b])
		}
		out[b] = pose
	}
}

// SampleTranslation interpolates a translation channel at time t.
// It returns false when the channel has fewer than two keys or t is past the
// last key, in which case the bone has no translation.
func SampleTranslation(track formats.TranslationTrack, t float32) (math.Vec3, bool) {
	i, u, ok := findKey(track.Times, t)
	if !ok {
		return math.Vec3{}, false
	}
	return track.Values.At(i).Lerp(track.Values.At(i+1), u), true
}

// SampleRotation interpolates a rotation channel at time t with Slerp.
// It returns false under the same conditions as SampleTranslation.
func SampleRotation(track formats.RotationTrack, t float32) (math.Quat, bool) {
	i, u, ok := findKey(track.Times, t)
	if !ok {
		return math.QuatIdentity(), false
	}
	return track.Values.At(i).Slerp(track.Values.At(i+1), u), true
}

// findKey locates the first key interval [times[i], times[i+1]] whose end is
// at or after t and returns i with the blend factor u. u is not clamped, so a
// t before the first key extrapolates. A zero-length interval gives u = 0.
func findKey(times formats.Float32View, t float32) (i int, u float32, ok bool) {
	n := times.Len()
	if n < 2 {
		return 0, 0, false
	}

	// Times are sorted (checked at parse time), so the first end >= t is a
	// binary search over interval ends times[1:].
	end := 1 + sort.Search(n-1, func(k int) bool {
		return times.At(k+1) >= t
	})
	if end == n {
		return 0, 0, false
	}

	i = end - 1
	t0, t1 := times.At(i), times.At(end)
	if t1 > t0 {
		u = (t - t0) / (t1 - t0)
	}
	return i, u, true
}
