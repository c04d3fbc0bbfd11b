package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// CurrentVersion is written by the encoders.
const CurrentVersion = 1

// SkeletonSource is an editable description of a skeleton asset.
type SkeletonSource struct {
	Version    uint32            `yaml:"version"`
	Bones      []BoneSource      `yaml:"bones"`
	Animations []AnimationSource `yaml:"animations"`
}

// BoneSource describes a bone. Parent names an earlier bone; empty means root.
type BoneSource struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent,omitempty"`
}

// AnimationSource describes a clip. Tracks are keyed by bone name; bones
// without a track get empty channels. A zero Duration is replaced by the
// time of the last key.
type AnimationSource struct {
	Name     string                 `yaml:"name"`
	Duration float32                `yaml:"duration,omitempty"`
	Tracks   map[string]TrackSource `yaml:"tracks"`
}

// TrackSource holds the keys of one bone.
type TrackSource struct {
	Translations []TranslationKey `yaml:"translations,omitempty"`
	Rotations    []RotationKey    `yaml:"rotations,omitempty"`
}

// TranslationKey is a timed translation.
type TranslationKey struct {
	Time  float32    `yaml:"time"`
	Value [3]float32 `yaml:"value"`
}

// RotationKey is a timed rotation, given either as a versor (w, x, y, z) or
// as an axis with an angle in degrees.
type RotationKey struct {
	Time  float32     `yaml:"time"`
	Quat  *[4]float32 `yaml:"quat,omitempty"`
	Axis  [3]float32  `yaml:"axis,omitempty"`
	Angle float32     `yaml:"angle,omitempty"`
}

// Versor returns the key's rotation as a quaternion.
func (k RotationKey) Versor() math.Quat {
	if k.Quat != nil {
		return math.Quat{W: k.Quat[0], X: k.Quat[1], Y: k.Quat[2], Z: k.Quat[3]}
	}
	axis := math.Vec3{X: k.Axis[0], Y: k.Axis[1], Z: k.Axis[2]}.Normalize()
	if axis.Length2() == 0 {
		return math.QuatIdentity()
	}
	return math.QuatFromAxisAngle(axis, k.Angle)
}

// kmxWriter accumulates little-endian values.
type kmxWriter struct {
	buf bytes.Buffer
}

func (w *kmxWriter) put(v any) {
	// binary.Write only fails on values without a fixed size.
	_ = binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *kmxWriter) name(s string) {
	var b [nameSize]byte
	copy(b[:], s)
	w.buf.Write(b[:])
}

func (w *kmxWriter) offset() uint32 {
	return uint32(w.buf.Len())
}

func (w *kmxWriter) align() {
	for w.buf.Len()%4 != 0 {
		w.buf.WriteByte(0)
	}
}

func checkName(kind, name string) error {
	if len(name) >= nameSize {
		return fmt.Errorf("%s name %q exceeds %d bytes", kind, name, nameSize-1)
	}
	return nil
}

// EncodeSkeleton serializes src into the skeleton binary format.
func EncodeSkeleton(src SkeletonSource) ([]byte, error) {
	numBones := len(src.Bones)
	numAnims := len(src.Animations)

	boneIndex := make(map[string]int, numBones)
	parents := make([]int32, numBones)
	for i, b := range src.Bones {
		if err := checkName("bone", b.Name); err != nil {
			return nil, err
		}
		if _, dup := boneIndex[b.Name]; dup {
			return nil, fmt.Errorf("duplicate bone name %q", b.Name)
		}
		parents[i] = -1
		if b.Parent != "" {
			p, ok := boneIndex[b.Parent]
			if !ok {
				return nil, fmt.Errorf("%w: bone %q parent %q is not an earlier bone", ErrKMXBoneOrder, b.Name, b.Parent)
			}
			parents[i] = int32(p)
		}
		boneIndex[b.Name] = i
	}

	// Resolve tracks per bone up front so sizes are known.
	tracks := make([][]TrackSource, numAnims)
	for a, anim := range src.Animations {
		if err := checkName("animation", anim.Name); err != nil {
			return nil, err
		}
		tracks[a] = make([]TrackSource, numBones)
		for boneName, tr := range anim.Tracks {
			b, ok := boneIndex[boneName]
			if !ok {
				return nil, fmt.Errorf("animation %q: track for unknown bone %q", anim.Name, boneName)
			}
			if err := checkTrackOrder(tr); err != nil {
				return nil, fmt.Errorf("animation %q bone %q: %w", anim.Name, boneName, err)
			}
			tracks[a][b] = tr
		}
	}

	bonesOff := uint32(0)
	animsOff := bonesOff + uint32(numBones*boneRecordSize)
	keyFramesOff := animsOff + uint32(numAnims*animationRecordSize)
	arraysOff := keyFramesOff + uint32(numAnims*numBones*keyFramesRecordSize)

	var records, arrays kmxWriter

	for i, b := range src.Bones {
		records.name(b.Name)
		records.put(parents[i])
	}

	for a, anim := range src.Animations {
		duration := anim.Duration
		if duration == 0 {
			duration = lastKeyTime(tracks[a])
		}
		records.name(anim.Name)
		records.put(duration)
		records.put(keyFramesOff + uint32(a*numBones*keyFramesRecordSize))
	}

	for a := range src.Animations {
		for _, tr := range tracks[a] {
			traTimes := arraysOff + arrays.offset()
			for _, k := range tr.Translations {
				arrays.put(k.Time)
			}
			rotTimes := arraysOff + arrays.offset()
			for _, k := range tr.Rotations {
				arrays.put(k.Time)
			}
			traKeys := arraysOff + arrays.offset()
			for _, k := range tr.Translations {
				arrays.put(k.Value)
			}
			rotKeys := arraysOff + arrays.offset()
			for _, k := range tr.Rotations {
				q := k.Versor()
				arrays.put([4]float32{q.W, q.X, q.Y, q.Z})
			}

			records.put([6]uint32{
				uint32(len(tr.Translations)),
				uint32(len(tr.Rotations)),
				traTimes, rotTimes, traKeys, rotKeys,
			})
		}
	}

	version := src.Version
	if version == 0 {
		version = CurrentVersion
	}

	var out kmxWriter
	out.buf.WriteString(KMXMagic)
	out.put([5]uint32{version, uint32(numBones), bonesOff, uint32(numAnims), animsOff})
	out.buf.Write(records.buf.Bytes())
	out.buf.Write(arrays.buf.Bytes())
	return out.buf.Bytes(), nil
}

func checkTrackOrder(tr TrackSource) error {
	for i := 1; i < len(tr.Translations); i++ {
		if tr.Translations[i].Time < tr.Translations[i-1].Time {
			return fmt.Errorf("%w: translation key %d", ErrKMXKeyOrder, i)
		}
	}
	for i := 1; i < len(tr.Rotations); i++ {
		if tr.Rotations[i].Time < tr.Rotations[i-1].Time {
			return fmt.Errorf("%w: rotation key %d", ErrKMXKeyOrder, i)
		}
	}
	return nil
}

func lastKeyTime(tracks []TrackSource) float32 {
	var last float32
	for _, tr := range tracks {
		if n := len(tr.Translations); n > 0 && tr.Translations[n-1].Time > last {
			last = tr.Translations[n-1].Time
		}
		if n := len(tr.Rotations); n > 0 && tr.Rotations[n-1].Time > last {
			last = tr.Rotations[n-1].Time
		}
	}
	return last
}

// SkinnedMeshSource is an editable description of a skinned mesh asset.
// Normals, UVs and Influences may be left empty and are zero-filled.
type SkinnedMeshSource struct {
	Version          uint32      `yaml:"version"`
	Indices          []uint16    `yaml:"indices"`
	Positions        []math.Vec3 `yaml:"positions"`
	Normals          []math.Vec3 `yaml:"normals,omitempty"`
	UVs              []math.Vec2 `yaml:"uvs,omitempty"`
	Influences       []Influence `yaml:"influences,omitempty"`
	InverseBindPoses []math.Mat4 `yaml:"inverse_bind_poses,omitempty"`
}

// EncodeSkinnedMesh serializes src into the skinned mesh binary format.
func EncodeSkinnedMesh(src SkinnedMeshSource) ([]byte, error) {
	numVerts := len(src.Positions)
	for name, n := range map[string]int{
		"normals":    len(src.Normals),
		"uvs":        len(src.UVs),
		"influences": len(src.Influences),
	} {
		if n != 0 && n != numVerts {
			return nil, fmt.Errorf("%s: have %d, want %d (one per vertex)", name, n, numVerts)
		}
	}
	for i, idx := range src.Indices {
		if int(idx) >= numVerts {
			return nil, fmt.Errorf("%w: index %d references vertex %d of %d", ErrKMXMeshRange, i, idx, numVerts)
		}
	}

	var body kmxWriter

	indexOff := body.offset()
	body.put(src.Indices)
	body.align()

	positionsOff := body.offset()
	body.put(src.Positions)

	normalsOff := body.offset()
	if len(src.Normals) > 0 {
		body.put(src.Normals)
	} else {
		body.buf.Write(make([]byte, numVerts*vec3Size))
	}

	uvsOff := body.offset()
	if len(src.UVs) > 0 {
		body.put(src.UVs)
	} else {
		body.buf.Write(make([]byte, numVerts*vec2Size))
	}

	boneIDsOff := body.offset()
	for v := 0; v < numVerts; v++ {
		var ids [MaxInfluences]int32
		if len(src.Influences) > 0 {
			ids = src.Influences[v].Bones
		}
		body.put(ids)
	}

	weightsOff := body.offset()
	for v := 0; v < numVerts; v++ {
		var w [MaxInfluences]float32
		if len(src.Influences) > 0 {
			w = src.Influences[v].Weights
		}
		body.put(w)
	}

	inverseBindOff := body.offset()
	body.put(src.InverseBindPoses)

	version := src.Version
	if version == 0 {
		version = CurrentVersion
	}

	var out kmxWriter
	out.buf.WriteString(KMXMagic)
	out.put([10]uint32{
		version,
		uint32(len(src.Indices)),
		uint32(numVerts),
		indexOff, positionsOff, normalsOff, uvsOff,
		boneIDsOff, weightsOff, inverseBindOff,
	})
	out.buf.Write(body.buf.Bytes())
	return out.buf.Bytes(), nil
}
