package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

func batchSkeleton(t *testing.T) *formats.Skeleton {
	t.Helper()
	return mustSkeleton(t, formats.SkeletonSource{
		Bones: chainBones("hips", "spine", "head"),
		Animations: []formats.AnimationSource{
			{
				Name:     "sway",
				Duration: 1,
				Tracks: map[string]formats.TrackSource{
					"spine": {
						Translations: []formats.TranslationKey{
							{Time: 0, Value: [3]float32{0, 1, 0}},
							{Time: 1, Value: [3]float32{0, 1, 0}},
						},
						Rotations: []formats.RotationKey{
							{Time: 0, Axis: [3]float32{0, 0, 1}, Angle: -20},
							{Time: 1, Axis: [3]float32{0, 0, 1}, Angle: 20},
						},
					},
					"head": holdTrack(math.Vec3{Y: 1}, axisX, 10),
				},
			},
			{Name: "still", Duration: 0.5},
		},
	})
}

func TestAnimateBatch_MatchesSequential(t *testing.T) {
	skel := batchSkeleton(t)

	jobs := make([]Job, 32)
	for i := range jobs {
		jobs[i] = Job{
			Animation: i % 3, // 2 is an invalid clip: bind pose
			Time:      float32(i%5) / 10,
			Out:       make([]math.Mat4, skel.NumBones()),
		}
	}

	require.NoError(t, AnimateBatch(context.Background(), skel, jobs, nil, 4))

	want := make([]math.Mat4, skel.NumBones())
	for i, job := range jobs {
		Animate(skel, job.Animation, job.Time, nil, want)
		assert.Equal(t, want, job.Out, "job %d", i)
	}
}

func TestAnimateBatch_Unlimited(t *testing.T) {
	skel := batchSkeleton(t)
	jobs := []Job{
		{Animation: 0, Time: 0.5, Out: make([]math.Mat4, 3)},
		{Animation: 1, Time: 0.5, Out: make([]math.Mat4, 3)},
	}

	require.NoError(t, AnimateBatch(context.Background(), skel, jobs, nil, 0))
	assert.Equal(t, math.Identity(), jobs[1].Out[0])
}

func TestAnimateBatch_Errors(t *testing.T) {
	skel := batchSkeleton(t)

	tests := []struct {
		name string
		jobs []Job
		ibp  []math.Mat4
	}{
		{
			name: "short buffer",
			jobs: []Job{{Animation: 0, Time: 0, Out: make([]math.Mat4, 2)}},
		},
		{
			name: "time overrun",
			jobs: []Job{{Animation: 1, Time: 0.75, Out: make([]math.Mat4, 3)}},
		},
		{
			name: "short inverse bind poses",
			jobs: []Job{{Animation: 0, Time: 0, Out: make([]math.Mat4, 3)}},
			ibp:  []math.Mat4{math.Identity()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			assert.NotPanics(t, func() {
				err = AnimateBatch(context.Background(), skel, tt.jobs, tt.ibp, 2)
			})
			assert.Error(t, err)
		})
	}
}

func TestAnimateBatch_Canceled(t *testing.T) {
	skel := batchSkeleton(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job{{Animation: 0, Time: 0, Out: newPoses(3)}}
	err := AnimateBatch(ctx, skel, jobs, nil, 1)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, newPoses(1)[0], jobs[0].Out[0])
}
