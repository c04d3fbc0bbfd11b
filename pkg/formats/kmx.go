package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	gomath "math"

	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// KMXMagic is the 4-byte signature shared by skeleton and skinned mesh files.
const KMXMagic = "KMX "

// KMX format errors.
var (
	ErrInvalidKMXMagic  = errors.New("invalid KMX magic: expected 'KMX '")
	ErrTruncatedKMXData = errors.New("truncated KMX data")
	ErrKMXBoneOrder     = errors.New("KMX bone parent must precede child")
	ErrKMXKeyOrder      = errors.New("KMX keyframe times must be non-decreasing")
	ErrKMXMeshRange     = errors.New("KMX mesh index out of range")
)

// Element sizes in bytes.
const (
	float32Size = 4
	vec2Size    = 8
	vec3Size    = 12
	quatSize    = 16
	mat4Size    = 64
	nameSize    = 32
)

// checkMagic validates the 4-byte signature at the start of data.
func checkMagic(data []byte) error {
	if len(data) < len(KMXMagic) {
		return ErrTruncatedKMXData
	}
	if string(data[:len(KMXMagic)]) != KMXMagic {
		return ErrInvalidKMXMagic
	}
	return nil
}

// readHeader decodes a fixed-size header struct from the start of data.
func readHeader(data []byte, hdr any, size int) error {
	if len(data) < size {
		return fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncatedKMXData, size, len(data))
	}
	return binary.Read(bytes.NewReader(data[:size]), binary.LittleEndian, hdr)
}

// section returns count elements of size bytes starting at base+offset,
// or ErrTruncatedKMXData if the range does not fit in data.
func section(data []byte, base int, offset, count uint32, size int, what string) ([]byte, error) {
	start := int64(base) + int64(offset)
	end := start + int64(count)*int64(size)
	if end > int64(len(data)) {
		return nil, fmt.Errorf("%w: %s [%d:%d] exceeds %d bytes", ErrTruncatedKMXData, what, start, end, len(data))
	}
	return data[start:end:end], nil
}

// readName decodes a fixed 32-byte, NUL-padded name.
func readName(data []byte) string {
	name := data[:nameSize]
	if idx := bytes.IndexByte(name, 0); idx >= 0 {
		name = name[:idx]
	}
	return string(name)
}

func readU32(data []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(data[off:])
}

func readI32(data []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(data[off:]))
}

func readF32(data []byte, off int) float32 {
	return gomath.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}

// Float32View is a read-only view over packed little-endian float32 values.
type Float32View struct {
	data []byte
}

// Len returns the number of elements.
func (v Float32View) Len() int {
	return len(v.data) / float32Size
}

// At returns element i. It panics if i is out of range.
func (v Float32View) At(i int) float32 {
	return readF32(v.data[i*float32Size:(i+1)*float32Size], 0)
}

// Slice copies the view into a new slice.
func (v Float32View) Slice() []float32 {
	out := make([]float32, v.Len())
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}

// Vec2View is a read-only view over packed vec2 values.
type Vec2View struct {
	data []byte
}

// Len returns the number of elements.
func (v Vec2View) Len() int {
	return len(v.data) / vec2Size
}

// At returns element i. It panics if i is out of range.
func (v Vec2View) At(i int) math.Vec2 {
	b := v.data[i*vec2Size : (i+1)*vec2Size]
	return math.Vec2{X: readF32(b, 0), Y: readF32(b, 4)}
}

// Vec3View is a read-only view over packed vec3 values.
type Vec3View struct {
	data []byte
}

// Len returns the number of elements.
func (v Vec3View) Len() int {
	return len(v.data) / vec3Size
}

// At returns element i. It panics if i is out of range.
func (v Vec3View) At(i int) math.Vec3 {
	b := v.data[i*vec3Size : (i+1)*vec3Size]
	return math.Vec3{X: readF32(b, 0), Y: readF32(b, 4), Z: readF32(b, 8)}
}

// QuatView is a read-only view over versors stored as w, x, y, z.
type QuatView struct {
	data []byte
}

// Len returns the number of elements.
func (v QuatView) Len() int {
	return len(v.data) / quatSize
}

// At returns element i. It panics if i is out of range.
func (v QuatView) At(i int) math.Quat {
	b := v.data[i*quatSize : (i+1)*quatSize]
	return math.Quat{W: readF32(b, 0), X: readF32(b, 4), Y: readF32(b, 8), Z: readF32(b, 12)}
}

// Mat4View is a read-only view over packed column-major 4x4 matrices.
type Mat4View struct {
	data []byte
}

// Len returns the number of elements.
func (v Mat4View) Len() int {
	return len(v.data) / mat4Size
}

// At returns element i. It panics if i is out of range.
func (v Mat4View) At(i int) math.Mat4 {
	b := v.data[i*mat4Size : (i+1)*mat4Size]
	var m math.Mat4
	for j := range m {
		m[j] = readF32(b, j*float32Size)
	}
	return m
}

// Slice copies the view into a new slice.
func (v Mat4View) Slice() []math.Mat4 {
	out := make([]math.Mat4, v.Len())
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}
