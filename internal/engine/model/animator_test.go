package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/kmx-platformer/internal/logger"
	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

func animatorSkeleton(t *testing.T) *formats.Skeleton {
	t.Helper()
	slide := formats.TrackSource{
		Translations: []formats.TranslationKey{
			{Time: 0, Value: [3]float32{0, 0, 0}},
			{Time: 2, Value: [3]float32{20, 0, 0}},
		},
	}
	return mustSkeleton(t, formats.SkeletonSource{
		Bones: chainBones("root", "child"),
		Animations: []formats.AnimationSource{
			{Name: "idle", Duration: 1},
			{Name: "run", Duration: 2, Tracks: map[string]formats.TrackSource{"root": slide}},
		},
	})
}

type recordingSink struct {
	calls int
	poses []math.Mat4
}

func (s *recordingSink) SetBoneMatrices(poses []math.Mat4) {
	s.calls++
	s.poses = append(s.poses[:0], poses...)
}

func rootX(a *Animator) float32 {
	return a.Poses()[0].TransformPoint(math.Vec3{}).X
}

func TestNewAnimator(t *testing.T) {
	skel := animatorSkeleton(t)
	a := NewAnimator(skel, nil)
	b := NewAnimator(skel, nil)

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, -1, a.Animation())
	assert.Equal(t, float32(1), a.Speed)
	assert.True(t, a.Loop)

	require.Len(t, a.Poses(), 2)
	for _, p := range a.Poses() {
		assert.Equal(t, math.Identity(), p)
	}
}

func TestAnimator_PlayName(t *testing.T) {
	a := NewAnimator(animatorSkeleton(t), nil)

	require.True(t, a.PlayName("run"))
	assert.Equal(t, 1, a.Animation())

	a.Advance(0.5)
	assert.InDelta(t, 5, rootX(a), 1e-5)

	// Unknown names keep the current clip and time.
	assert.False(t, a.PlayName("swim"))
	assert.Equal(t, 1, a.Animation())
	assert.Equal(t, float32(0.5), a.Time())

	// Replaying the current clip does not rewind.
	a.Play(1)
	assert.Equal(t, float32(0.5), a.Time())

	a.Play(0)
	assert.Equal(t, float32(0), a.Time())
}

func TestAnimator_PlayNameLogsUnknown(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	a := NewAnimator(animatorSkeleton(t), nil)
	require.False(t, a.PlayName("swim"))

	entries := logs.FilterMessage("unknown animation").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "animator", entries[0].LoggerName)
	assert.Equal(t, "swim", entries[0].ContextMap()["animation"])
}

func TestAnimator_AdvanceLoops(t *testing.T) {
	a := NewAnimator(animatorSkeleton(t), nil)
	a.Play(1)

	a.Advance(2.5)
	assert.InDelta(t, 0.5, a.Time(), 1e-6)
	assert.InDelta(t, 5, rootX(a), 1e-4)

	a.Speed = -1
	a.Advance(1)
	assert.InDelta(t, 1.5, a.Time(), 1e-6)
}

func TestAnimator_AdvanceClamps(t *testing.T) {
	a := NewAnimator(animatorSkeleton(t), nil)
	a.Loop = false
	a.Play(1)

	assert.NotPanics(t, func() { a.Advance(10) })
	assert.Equal(t, float32(2), a.Time())
	assert.InDelta(t, 20, rootX(a), 1e-5)

	a.Speed = -2
	a.Advance(5)
	assert.Equal(t, float32(0), a.Time())
}

func TestAnimator_SetTime(t *testing.T) {
	a := NewAnimator(animatorSkeleton(t), nil)
	a.Play(1)

	a.SetTime(1)
	assert.InDelta(t, 10, rootX(a), 1e-5)

	// No clip selected: time stays put and the pose is bind pose.
	a.Play(-1)
	a.SetTime(3)
	assert.Equal(t, float32(0), a.Time())
	assert.Equal(t, math.Identity(), a.Poses()[0])
}

func TestAnimator_Emit(t *testing.T) {
	ibp := []math.Mat4{math.Translation(math.Vec3{Y: -1}), math.Identity()}
	a := NewAnimator(animatorSkeleton(t), ibp)
	a.Play(1)
	a.SetTime(1)

	var sink recordingSink
	a.Emit(&sink)

	assert.Equal(t, 1, sink.calls)
	require.Len(t, sink.poses, 2)
	assert.Equal(t, a.Poses()[0], sink.poses[0])
	assert.InDelta(t, -1, sink.poses[0].TransformPoint(math.Vec3{}).Y, 1e-6)
}
