package model

import (
	gomath "math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/kmx-platformer/internal/logger"
	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// Animator holds the playback state of one animated skeleton instance and
// owns its pose buffer. Several animators may share a Skeleton.
type Animator struct {
	ID uuid.UUID

	// Speed scales Advance's dt; negative plays backwards.
	Speed float32
	// Loop wraps time at the clip end instead of holding the last pose.
	Loop bool

	skel             *formats.Skeleton
	inverseBindPoses []math.Mat4
	poses            []math.Mat4
	anim             int
	time             float32
}

// NewAnimator creates an animator in bind pose with no clip selected.
// inverseBindPoses may be nil.
func NewAnimator(skel *formats.Skeleton, inverseBindPoses []math.Mat4) *Animator {
	a := &Animator{
		ID:               uuid.New(),
		Speed:            1,
		Loop:             true,
		skel:             skel,
		inverseBindPoses: inverseBindPoses,
		poses:            make([]math.Mat4, skel.NumBones()),
		anim:             -1,
	}
	Animate(skel, a.anim, 0, inverseBindPoses, a.poses)
	return a
}

// Play switches to clip index and rewinds. Switching to the clip that is
// already playing keeps its time. An invalid index shows the bind pose.
func (a *Animator) Play(index int) {
	if index == a.anim {
		return
	}
	a.anim = index
	a.time = 0
	Animate(a.skel, a.anim, a.time, a.inverseBindPoses, a.poses)
}

// PlayName switches to the clip called name. Unknown names log a warning,
// leave playback unchanged, and return false.
func (a *Animator) PlayName(name string) bool {
	index := a.skel.AnimationIndex(name)
	if index < 0 {
		logger.Named("animator").Warn("unknown animation",
			zap.String("animation", name),
			zap.Stringer("animator", a.ID))
		return false
	}
	a.Play(index)
	return true
}

// Advance moves playback forward by dt*Speed seconds and re-evaluates the
// pose. Time is wrapped (Loop) or clamped into [0, duration] first, so the
// evaluator precondition always holds.
func (a *Animator) Advance(dt float32) {
	a.SetTime(a.time + dt*a.Speed)
}

// SetTime jumps to t seconds into the current clip, wrapped or clamped like
// Advance, and re-evaluates the pose.
func (a *Animator) SetTime(t float32) {
	if a.anim >= 0 && a.anim < a.skel.NumAnimations() {
		a.time = a.wrapTime(t, a.skel.Animation(a.anim).Duration)
	}
	Animate(a.skel, a.anim, a.time, a.inverseBindPoses, a.poses)
}

func (a *Animator) wrapTime(t, duration float32) float32 {
	if duration <= 0 {
		return 0
	}
	if a.Loop {
		t = float32(gomath.Mod(float64(t), float64(duration)))
		if t < 0 {
			t += duration
		}
		return t
	}
	return math.Clamp(t, 0, duration)
}

// Animation returns the current clip index, or -1 for none.
func (a *Animator) Animation() int {
	return a.anim
}

// Time returns the playback position in seconds.
func (a *Animator) Time() float32 {
	return a.time
}

// Poses returns the pose buffer from the last evaluation. The slice is
// reused and overwritten by Play, Advance and SetTime.
func (a *Animator) Poses() []math.Mat4 {
	return a.poses
}

// Emit hands the current poses to sink.
func (a *Animator) Emit(sink PoseSink) {
	sink.SetBoneMatrices(a.poses)
}
