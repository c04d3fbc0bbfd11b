package formats

import (
	"fmt"
	"os"
)

// Skeleton record sizes in bytes.
const (
	SkeletonHeaderSize  = 24
	boneRecordSize      = nameSize + 4
	animationRecordSize = nameSize + 8
	keyFramesRecordSize = 24
)

// skeletonHeader is the fixed header at the start of a skeleton file.
type skeletonHeader struct {
	Magic            [4]byte
	Version          uint32
	NumBones         uint32
	BonesOffset      uint32
	NumAnimations    uint32
	AnimationsOffset uint32
}

// Bone is a joint in the hierarchy.
type Bone struct {
	Name   string
	Parent int32 // -1 for a root bone
}

// IsRoot reports whether the bone has no parent.
func (b Bone) IsRoot() bool {
	return b.Parent < 0
}

// Animation describes a single clip.
type Animation struct {
	Name            string
	Duration        float32 // seconds
	KeyFramesOffset uint32
}

// TranslationTrack is a translation channel: parallel key times and values.
type TranslationTrack struct {
	Times  Float32View
	Values Vec3View
}

// Len returns the number of keys.
func (t TranslationTrack) Len() int {
	return t.Times.Len()
}

// RotationTrack is a rotation channel: parallel key times and versors.
type RotationTrack struct {
	Times  Float32View
	Values QuatView
}

// Len returns the number of keys.
func (t RotationTrack) Len() int {
	return t.Times.Len()
}

// BoneKeyFrames holds the keyframe channels of one bone in one animation.
type BoneKeyFrames struct {
	translation TranslationTrack
	rotation    RotationTrack
}

// Translation returns the translation channel.
func (k BoneKeyFrames) Translation() TranslationTrack { return k.translation }

// Rotation returns the rotation channel.
func (k BoneKeyFrames) Rotation() RotationTrack { return k.rotation }

// TranslationTimes returns the translation key times.
func (k BoneKeyFrames) TranslationTimes() Float32View { return k.translation.Times }

// Translations returns the translation key values.
func (k BoneKeyFrames) Translations() Vec3View { return k.translation.Values }

// RotationTimes returns the rotation key times.
func (k BoneKeyFrames) RotationTimes() Float32View { return k.rotation.Times }

// Rotations returns the rotation key values.
func (k BoneKeyFrames) Rotations() QuatView { return k.rotation.Values }

// Skeleton is a parsed skeleton asset. It references the buffer it was parsed
// from, which must not be modified afterwards. A Skeleton is immutable and
// safe for concurrent use.
type Skeleton struct {
	header     skeletonHeader
	bones      []byte
	animations []byte
	keyFrames  [][]BoneKeyFrames // [animation][bone]
	size       int
}

// ParseSkeleton parses a skeleton file from raw bytes.
func ParseSkeleton(data []byte) (*Skeleton, error) {
	if err := checkMagic(data); err != nil {
		return nil, err
	}

	s := &Skeleton{size: len(data)}
	if err := readHeader(data, &s.header, SkeletonHeaderSize); err != nil {
		return nil, err
	}
	h := s.header

	var err error
	s.bones, err = section(data, SkeletonHeaderSize, h.BonesOffset, h.NumBones, boneRecordSize, "bones")
	if err != nil {
		return nil, err
	}

	// Parents must precede children so poses can be composed in one pass.
	for i := 0; i < int(h.NumBones); i++ {
		parent := s.Parent(i)
		if parent < -1 || parent >= i {
			return nil, fmt.Errorf("%w: bone %d (%q) has parent %d", ErrKMXBoneOrder, i, s.Bone(i).Name, parent)
		}
	}

	s.animations, err = section(data, SkeletonHeaderSize, h.AnimationsOffset, h.NumAnimations, animationRecordSize, "animations")
	if err != nil {
		return nil, err
	}

	s.keyFrames = make([][]BoneKeyFrames, h.NumAnimations)
	for a := range s.keyFrames {
		anim := s.Animation(a)
		records, err := section(data, SkeletonHeaderSize, anim.KeyFramesOffset, h.NumBones, keyFramesRecordSize,
			fmt.Sprintf("animation %d keyframes", a))
		if err != nil {
			return nil, err
		}

		tracks := make([]BoneKeyFrames, h.NumBones)
		for b := range tracks {
			kf, err := parseBoneKeyFrames(data, records[b*keyFramesRecordSize:])
			if err != nil {
				return nil, fmt.Errorf("animation %d (%q) bone %d: %w", a, anim.Name, b, err)
			}
			tracks[b] = kf
		}
		s.keyFrames[a] = tracks
	}

	return s, nil
}

// parseBoneKeyFrames resolves one 24-byte keyframe record into views.
func parseBoneKeyFrames(data, rec []byte) (BoneKeyFrames, error) {
	numTra := readU32(rec, 0)
	numRot := readU32(rec, 4)
	traTimesOff := readU32(rec, 8)
	rotTimesOff := readU32(rec, 12)
	traKeysOff := readU32(rec, 16)
	rotKeysOff := readU32(rec, 20)

	traTimes, err := section(data, SkeletonHeaderSize, traTimesOff, numTra, float32Size, "translation times")
	if err != nil {
		return BoneKeyFrames{}, err
	}
	rotTimes, err := section(data, SkeletonHeaderSize, rotTimesOff, numRot, float32Size, "rotation times")
	if err != nil {
		return BoneKeyFrames{}, err
	}
	traKeys, err := section(data, SkeletonHeaderSize, traKeysOff, numTra, vec3Size, "translation keys")
	if err != nil {
		return BoneKeyFrames{}, err
	}
	rotKeys, err := section(data, SkeletonHeaderSize, rotKeysOff, numRot, quatSize, "rotation keys")
	if err != nil {
		return BoneKeyFrames{}, err
	}

	kf := BoneKeyFrames{
		translation: TranslationTrack{Times: Float32View{traTimes}, Values: Vec3View{traKeys}},
		rotation:    RotationTrack{Times: Float32View{rotTimes}, Values: QuatView{rotKeys}},
	}
	if err := checkSorted(kf.translation.Times); err != nil {
		return BoneKeyFrames{}, fmt.Errorf("translation: %w", err)
	}
	if err := checkSorted(kf.rotation.Times); err != nil {
		return BoneKeyFrames{}, fmt.Errorf("rotation: %w", err)
	}
	return kf, nil
}

func checkSorted(times Float32View) error {
	for i := 1; i < times.Len(); i++ {
		if times.At(i) < times.At(i-1) {
			return fmt.Errorf("%w: key %d at %v follows %v", ErrKMXKeyOrder, i, times.At(i), times.At(i-1))
		}
	}
	return nil
}

// ParseSkeletonFile parses a skeleton file from disk.
func ParseSkeletonFile(path string) (*Skeleton, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading skeleton file: %w", err)
	}
	return ParseSkeleton(data)
}

// Version returns the version field of the header.
func (s *Skeleton) Version() uint32 {
	return s.header.Version
}

// Size returns the size in bytes of the parsed buffer.
func (s *Skeleton) Size() int {
	return s.size
}

// NumBones returns the number of bones.
func (s *Skeleton) NumBones() int {
	return int(s.header.NumBones)
}

// NumAnimations returns the number of animation clips.
func (s *Skeleton) NumAnimations() int {
	return int(s.header.NumAnimations)
}

// Bone returns bone i. It panics if i is out of range.
func (s *Skeleton) Bone(i int) Bone {
	rec := s.bones[i*boneRecordSize : (i+1)*boneRecordSize]
	return Bone{
		Name:   readName(rec),
		Parent: readI32(rec, nameSize),
	}
}

// Parent returns the parent index of bone i, or -1 for a root.
func (s *Skeleton) Parent(i int) int {
	return int(readI32(s.bones[i*boneRecordSize:(i+1)*boneRecordSize], nameSize))
}

// Bones returns all bones in file order.
func (s *Skeleton) Bones() []Bone {
	bones := make([]Bone, s.NumBones())
	for i := range bones {
		bones[i] = s.Bone(i)
	}
	return bones
}

// Animation returns animation i. It panics if i is out of range.
func (s *Skeleton) Animation(i int) Animation {
	rec := s.animations[i*animationRecordSize : (i+1)*animationRecordSize]
	return Animation{
		Name:            readName(rec),
		Duration:        readF32(rec, nameSize),
		KeyFramesOffset: readU32(rec, nameSize+4),
	}
}

// Animations returns all animation clips in file order.
func (s *Skeleton) Animations() []Animation {
	anims := make([]Animation, s.NumAnimations())
	for i := range anims {
		anims[i] = s.Animation(i)
	}
	return anims
}

// AnimationIndex returns the index of the first clip named name, or -1.
func (s *Skeleton) AnimationIndex(name string) int {
	for i := 0; i < s.NumAnimations(); i++ {
		if s.Animation(i).Name == name {
			return i
		}
	}
	return -1
}

// KeyFrames returns the channels of bone in animation anim.
// It panics if either index is out of range.
func (s *Skeleton) KeyFrames(anim, bone int) BoneKeyFrames {
	return s.keyFrames[anim][bone]
}
