package formats

import (
	"encoding/binary"
	gomath "math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// testSkeletonSource describes a two-bone arm with a single clip.
func testSkeletonSource() SkeletonSource {
	return SkeletonSource{
		Bones: []BoneSource{
			{Name: "shoulder"},
			{Name: "elbow", Parent: "shoulder"},
		},
		Animations: []AnimationSource{
			{
				Name:     "wave",
				Duration: 2,
				Tracks: map[string]TrackSource{
					"shoulder": {
						Translations: []TranslationKey{
							{Time: 0, Value: [3]float32{0, 0, 0}},
							{Time: 1, Value: [3]float32{10, 0, 0}},
						},
					},
					"elbow": {
						Rotations: []RotationKey{
							{Time: 0, Axis: [3]float32{0, 0, 1}, Angle: 0},
							{Time: 2, Quat: &[4]float32{0.5, 0.5, 0.5, 0.5}},
						},
					},
				},
			},
		},
	}
}

func encodeTestSkeleton(t *testing.T) []byte {
	t.Helper()
	data, err := EncodeSkeleton(testSkeletonSource())
	require.NoError(t, err)
	return data
}

func putU32(data []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(data[off:], v)
}

func putF32(data []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(data[off:], gomath.Float32bits(v))
}

func TestParseSkeleton_RoundTrip(t *testing.T) {
	skel, err := ParseSkeleton(encodeTestSkeleton(t))
	require.NoError(t, err)

	assert.Equal(t, uint32(CurrentVersion), skel.Version())
	require.Equal(t, 2, skel.NumBones())
	require.Equal(t, 1, skel.NumAnimations())

	assert.Equal(t, Bone{Name: "shoulder", Parent: -1}, skel.Bone(0))
	assert.Equal(t, Bone{Name: "elbow", Parent: 0}, skel.Bone(1))
	assert.True(t, skel.Bone(0).IsRoot())
	assert.Equal(t, 0, skel.Parent(1))
	assert.Len(t, skel.Bones(), 2)

	anim := skel.Animation(0)
	assert.Equal(t, "wave", anim.Name)
	assert.Equal(t, float32(2), anim.Duration)
	assert.Len(t, skel.Animations(), 1)

	shoulder := skel.KeyFrames(0, 0)
	require.Equal(t, 2, shoulder.Translation().Len())
	assert.Equal(t, 0, shoulder.Rotation().Len())
	assert.Equal(t, []float32{0, 1}, shoulder.TranslationTimes().Slice())
	assert.Equal(t, math.Vec3{X: 10}, shoulder.Translations().At(1))

	elbow := skel.KeyFrames(0, 1)
	assert.Equal(t, 0, elbow.Translation().Len())
	require.Equal(t, 2, elbow.Rotation().Len())
	assert.Equal(t, float32(2), elbow.RotationTimes().At(1))
	assert.Equal(t, math.QuatIdentity(), elbow.Rotations().At(0))
	assert.Equal(t, math.Quat{X: 0.5, Y: 0.5, Z: 0.5, W: 0.5}, elbow.Rotations().At(1))
}

func TestParseSkeleton_VersorStoredWXYZ(t *testing.T) {
	src := SkeletonSource{
		Bones: []BoneSource{{Name: "root"}},
		Animations: []AnimationSource{{
			Name: "spin",
			Tracks: map[string]TrackSource{
				"root": {Rotations: []RotationKey{{Time: 0, Quat: &[4]float32{0.1, 0.2, 0.3, 0.4}}}},
			},
		}},
	}
	data, err := EncodeSkeleton(src)
	require.NoError(t, err)

	// One bone, one animation, one keyframe record, then one rotation time.
	rotKeys := SkeletonHeaderSize + boneRecordSize + animationRecordSize + keyFramesRecordSize + float32Size
	require.Len(t, data, rotKeys+quatSize)
	assert.Equal(t, float32(0.1), readF32(data, rotKeys))
	assert.Equal(t, float32(0.4), readF32(data, rotKeys+12))

	skel, err := ParseSkeleton(data)
	require.NoError(t, err)
	assert.Equal(t, math.Quat{W: 0.1, X: 0.2, Y: 0.3, Z: 0.4}, skel.KeyFrames(0, 0).Rotations().At(0))
}

func TestParseSkeleton_DurationDefaultsToLastKey(t *testing.T) {
	src := testSkeletonSource()
	src.Animations[0].Duration = 0

	data, err := EncodeSkeleton(src)
	require.NoError(t, err)
	skel, err := ParseSkeleton(data)
	require.NoError(t, err)

	assert.Equal(t, float32(2), skel.Animation(0).Duration)
}

func TestParseSkeleton_Empty(t *testing.T) {
	data, err := EncodeSkeleton(SkeletonSource{})
	require.NoError(t, err)
	require.Len(t, data, SkeletonHeaderSize)

	skel, err := ParseSkeleton(data)
	require.NoError(t, err)
	assert.Equal(t, 0, skel.NumBones())
	assert.Equal(t, 0, skel.NumAnimations())
	assert.Equal(t, -1, skel.AnimationIndex("idle"))
}

func TestParseSkeleton_AnimationIndex(t *testing.T) {
	src := testSkeletonSource()
	src.Animations = append(src.Animations, AnimationSource{Name: "idle", Duration: 1})

	data, err := EncodeSkeleton(src)
	require.NoError(t, err)
	skel, err := ParseSkeleton(data)
	require.NoError(t, err)

	assert.Equal(t, 0, skel.AnimationIndex("wave"))
	assert.Equal(t, 1, skel.AnimationIndex("idle"))
	assert.Equal(t, -1, skel.AnimationIndex("run"))

	// Bones without a track get empty channels.
	assert.Equal(t, 0, skel.KeyFrames(1, 0).Translation().Len())
	assert.Equal(t, 0, skel.KeyFrames(1, 1).Rotation().Len())
}

func TestParseSkeleton_InvalidMagic(t *testing.T) {
	data := encodeTestSkeleton(t)
	copy(data, "GRAT")

	_, err := ParseSkeleton(data)
	assert.ErrorIs(t, err, ErrInvalidKMXMagic)
}

func TestParseSkeleton_Truncated(t *testing.T) {
	data := encodeTestSkeleton(t)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"magic only", data[:4]},
		{"partial header", data[:SkeletonHeaderSize-1]},
		{"missing bones", data[:SkeletonHeaderSize+boneRecordSize]},
		{"missing last key", data[:len(data)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSkeleton(tt.data)
			assert.ErrorIs(t, err, ErrTruncatedKMXData)
		})
	}
}

func TestParseSkeleton_OffsetOutOfRange(t *testing.T) {
	header := map[string]int{
		"bones offset":      12,
		"animations offset": 20,
	}

	for name, off := range header {
		t.Run(name, func(t *testing.T) {
			data := encodeTestSkeleton(t)
			putU32(data, off, 0xFFFFFFF0)

			_, err := ParseSkeleton(data)
			assert.ErrorIs(t, err, ErrTruncatedKMXData)
		})
	}

	t.Run("huge bone count", func(t *testing.T) {
		data := encodeTestSkeleton(t)
		putU32(data, 8, 0xFFFFFFFF)

		_, err := ParseSkeleton(data)
		assert.ErrorIs(t, err, ErrTruncatedKMXData)
	})

	t.Run("keyframe array", func(t *testing.T) {
		data := encodeTestSkeleton(t)
		// traKeysOffset of the first bone's keyframe record.
		rec := SkeletonHeaderSize + 2*boneRecordSize + animationRecordSize
		putU32(data, rec+16, uint32(len(data)))

		_, err := ParseSkeleton(data)
		assert.ErrorIs(t, err, ErrTruncatedKMXData)
	})
}

func TestParseSkeleton_BoneOrder(t *testing.T) {
	parents := []int32{0, 1, -2}
	for _, parent := range parents {
		data := encodeTestSkeleton(t)
		putU32(data, SkeletonHeaderSize+nameSize, uint32(parent))

		_, err := ParseSkeleton(data)
		assert.ErrorIs(t, err, ErrKMXBoneOrder, "parent %d", parent)
	}
}

func TestParseSkeleton_KeyOrder(t *testing.T) {
	data := encodeTestSkeleton(t)
	arrays := SkeletonHeaderSize + 2*boneRecordSize + animationRecordSize + 2*keyFramesRecordSize
	// First translation time of the shoulder now comes after the second.
	putF32(data, arrays, 5)

	_, err := ParseSkeleton(data)
	assert.ErrorIs(t, err, ErrKMXKeyOrder)
}

func TestEncodeSkeleton_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SkeletonSource)
		target error
	}{
		{
			name:   "parent after child",
			mutate: func(s *SkeletonSource) { s.Bones[0].Parent = "elbow" },
			target: ErrKMXBoneOrder,
		},
		{
			name: "unsorted keys",
			mutate: func(s *SkeletonSource) {
				tr := s.Animations[0].Tracks["shoulder"]
				tr.Translations[0].Time = 3
				s.Animations[0].Tracks["shoulder"] = tr
			},
			target: ErrKMXKeyOrder,
		},
		{
			name:   "unknown track bone",
			mutate: func(s *SkeletonSource) { s.Animations[0].Tracks["wrist"] = TrackSource{} },
		},
		{
			name:   "duplicate bone",
			mutate: func(s *SkeletonSource) { s.Bones[1].Name = "shoulder" },
		},
		{
			name:   "long name",
			mutate: func(s *SkeletonSource) { s.Bones[0].Name = "a_bone_name_that_is_far_too_long_for_kmx" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testSkeletonSource()
			tt.mutate(&src)

			_, err := EncodeSkeleton(src)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestParseSkeletonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arm.kmx")
	require.NoError(t, os.WriteFile(path, encodeTestSkeleton(t), 0o644))

	skel, err := ParseSkeletonFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, skel.NumBones())

	_, err = ParseSkeletonFile(filepath.Join(t.TempDir(), "missing.kmx"))
	assert.Error(t, err)
}

func TestViews_OutOfRangePanics(t *testing.T) {
	skel, err := ParseSkeleton(encodeTestSkeleton(t))
	require.NoError(t, err)

	kf := skel.KeyFrames(0, 0)
	assert.Panics(t, func() { kf.Translations().At(2) })
	assert.Panics(t, func() { kf.Rotations().At(0) })
	assert.Panics(t, func() { skel.Bone(2) })
	assert.Panics(t, func() { skel.KeyFrames(1, 0) })
}
