package model

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// Job is one evaluation request for AnimateBatch.
type Job struct {
	Animation int
	Time      float32
	Out       []math.Mat4
}

// AnimateBatch evaluates jobs concurrently against one skeleton, running at
// most limit at a time (limit <= 0 means unlimited). Each job must have its
// own Out buffer. Jobs that violate Animate's preconditions return an error
// instead of panicking; the first error cancels jobs that have not started.
func AnimateBatch(ctx context.Context, skel *formats.Skeleton, jobs []Job, inverseBindPoses []math.Mat4, limit int) error {
	if inverseBindPoses != nil && len(inverseBindPoses) < skel.NumBones() {
		return fmt.Errorf("%d inverse bind poses for %d bones", len(inverseBindPoses), skel.NumBones())
	}

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := range jobs {
		i := i
		job := jobs[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := checkJob(skel, job); err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
			Animate(skel, job.Animation, job.Time, inverseBindPoses, job.Out)
			return nil
		})
	}

	return g.Wait()
}

func checkJob(skel *formats.Skeleton, job Job) error {
	if len(job.Out) < skel.NumBones() {
		return fmt.Errorf("pose buffer holds %d matrices, skeleton has %d bones", len(job.Out), skel.NumBones())
	}
	if job.Animation >= 0 && job.Animation < skel.NumAnimations() {
		if d := skel.Animation(job.Animation).Duration; job.Time > d {
			return fmt.Errorf("time %v exceeds clip duration %v", job.Time, d)
		}
	}
	return nil
}
