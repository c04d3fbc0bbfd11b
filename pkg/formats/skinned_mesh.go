package formats

import (
	"fmt"
	"os"
)

// Skinned mesh layout.
const (
	SkinnedMeshHeaderSize = 44
	MaxInfluences         = 4

	indexSize     = 2
	influenceSize = MaxInfluences * 4
)

// skinnedMeshHeader is the fixed header at the start of a skinned mesh file.
type skinnedMeshHeader struct {
	Magic                  [4]byte
	Version                uint32
	IndexCount             uint32
	VertCount              uint32
	IndexOffset            uint32
	PositionsOffset        uint32
	NormalsOffset          uint32
	UVsOffset              uint32
	BoneIDsOffset          uint32
	BoneWeightsOffset      uint32
	InverseBindPosesOffset uint32
}

// Influence lists the bones affecting a vertex and their weights.
type Influence struct {
	Bones   [MaxInfluences]int32
	Weights [MaxInfluences]float32
}

// SkinnedMesh is a parsed skinned mesh asset. Like Skeleton it references
// the buffer it was parsed from.
type SkinnedMesh struct {
	header    skinnedMeshHeader
	data      []byte
	indices   []byte
	positions Vec3View
	normals   Vec3View
	uvs       Vec2View
	boneIDs   []byte
	weights   []byte
}

// ParseSkinnedMesh parses a skinned mesh file from raw bytes.
// Inverse bind poses are validated lazily by InverseBindPoses since their
// count comes from the skeleton.
func ParseSkinnedMesh(data []byte) (*SkinnedMesh, error) {
	if err := checkMagic(data); err != nil {
		return nil, err
	}

	m := &SkinnedMesh{data: data}
	if err := readHeader(data, &m.header, SkinnedMeshHeaderSize); err != nil {
		return nil, err
	}
	h := m.header

	var err error
	if m.indices, err = section(data, SkinnedMeshHeaderSize, h.IndexOffset, h.IndexCount, indexSize, "indices"); err != nil {
		return nil, err
	}

	positions, err := section(data, SkinnedMeshHeaderSize, h.PositionsOffset, h.VertCount, vec3Size, "positions")
	if err != nil {
		return nil, err
	}
	normals, err := section(data, SkinnedMeshHeaderSize, h.NormalsOffset, h.VertCount, vec3Size, "normals")
	if err != nil {
		return nil, err
	}
	uvs, err := section(data, SkinnedMeshHeaderSize, h.UVsOffset, h.VertCount, vec2Size, "uvs")
	if err != nil {
		return nil, err
	}
	m.positions = Vec3View{positions}
	m.normals = Vec3View{normals}
	m.uvs = Vec2View{uvs}

	if m.boneIDs, err = section(data, SkinnedMeshHeaderSize, h.BoneIDsOffset, h.VertCount, influenceSize, "bone ids"); err != nil {
		return nil, err
	}
	if m.weights, err = section(data, SkinnedMeshHeaderSize, h.BoneWeightsOffset, h.VertCount, influenceSize, "bone weights"); err != nil {
		return nil, err
	}

	for i := 0; i < m.NumIndices(); i++ {
		if idx := m.Index(i); int(idx) >= m.NumVertices() {
			return nil, fmt.Errorf("%w: index %d references vertex %d of %d", ErrKMXMeshRange, i, idx, m.NumVertices())
		}
	}

	return m, nil
}

// ParseSkinnedMeshFile parses a skinned mesh file from disk.
func ParseSkinnedMeshFile(path string) (*SkinnedMesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading skinned mesh file: %w", err)
	}
	return ParseSkinnedMesh(data)
}

// Version returns the version field of the header.
func (m *SkinnedMesh) Version() uint32 {
	return m.header.Version
}

// NumIndices returns the number of triangle indices.
func (m *SkinnedMesh) NumIndices() int {
	return int(m.header.IndexCount)
}

// NumVertices returns the number of vertices.
func (m *SkinnedMesh) NumVertices() int {
	return int(m.header.VertCount)
}

// Index returns index i. It panics if i is out of range.
func (m *SkinnedMesh) Index(i int) uint16 {
	b := m.indices[i*indexSize : (i+1)*indexSize]
	return uint16(b[0]) | uint16(b[1])<<8
}

// Indices copies the index buffer.
func (m *SkinnedMesh) Indices() []uint16 {
	out := make([]uint16, m.NumIndices())
	for i := range out {
		out[i] = m.Index(i)
	}
	return out
}

// Positions returns the bind-pose vertex positions.
func (m *SkinnedMesh) Positions() Vec3View { return m.positions }

// Normals returns the bind-pose vertex normals.
func (m *SkinnedMesh) Normals() Vec3View { return m.normals }

// UVs returns the texture coordinates.
func (m *SkinnedMesh) UVs() Vec2View { return m.uvs }

// Influence returns the bone influences of vertex v.
func (m *SkinnedMesh) Influence(v int) Influence {
	ids := m.boneIDs[v*influenceSize : (v+1)*influenceSize]
	weights := m.weights[v*influenceSize : (v+1)*influenceSize]

	var inf Influence
	for i := 0; i < MaxInfluences; i++ {
		inf.Bones[i] = readI32(ids, i*4)
		inf.Weights[i] = readF32(weights, i*4)
	}
	return inf
}

// ValidateBones checks that every weighted influence references a bone below
// numBones.
func (m *SkinnedMesh) ValidateBones(numBones int) error {
	for v := 0; v < m.NumVertices(); v++ {
		inf := m.Influence(v)
		for i, b := range inf.Bones {
			if inf.Weights[i] == 0 {
				continue
			}
			if b < 0 || int(b) >= numBones {
				return fmt.Errorf("%w: vertex %d influence %d references bone %d of %d", ErrKMXMeshRange, v, i, b, numBones)
			}
		}
	}
	return nil
}

// InverseBindPoses returns numBones inverse bind pose matrices.
func (m *SkinnedMesh) InverseBindPoses(numBones int) (Mat4View, error) {
	if numBones < 0 {
		return Mat4View{}, fmt.Errorf("%w: negative bone count %d", ErrKMXMeshRange, numBones)
	}
	b, err := section(m.data, SkinnedMeshHeaderSize, m.header.InverseBindPosesOffset, uint32(numBones), mat4Size, "inverse bind poses")
	if err != nil {
		return Mat4View{}, err
	}
	return Mat4View{b}, nil
}
