package model

import (
	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// BuildMesh creates a GPU mesh from the bind pose of a skinned mesh.
// Meshes stored without normals get face normals averaged per vertex.
// Returns nil for a mesh without vertices.
func BuildMesh(src *formats.SkinnedMesh) *Mesh {
	numVerts := src.NumVertices()
	if numVerts == 0 {
		return nil
	}

	positions, normals, uvs := src.Positions(), src.Normals(), src.UVs()
	vertices := make([]Vertex, numVerts)
	bounds := emptyBounds()
	hasNormals := false

	for i := range vertices {
		pos := positions.At(i)
		nrm := normals.At(i)
		if nrm.Length2() > 0 {
			hasNormals = true
		}
		uv := uvs.At(i)

		vertices[i] = Vertex{
			Position: vec3Array(pos),
			Normal:   vec3Array(nrm),
			TexCoord: [2]float32{uv.X, uv.Y},
		}
		updateBounds(&bounds, pos)
	}

	indices := make([]uint32, src.NumIndices())
	for i := range indices {
		indices[i] = uint32(src.Index(i))
	}

	if !hasNormals {
		FaceNormals(vertices, indices)
		SmoothNormals(vertices)
	}

	return &Mesh{
		Vertices: vertices,
		Indices:  indices,
		Bounds:   bounds,
	}
}

// FaceNormals accumulates triangle normals into the vertices they reference
// and normalizes the result. Degenerate triangles are skipped.
func FaceNormals(vertices []Vertex, indices []uint32) {
	sums := make([]math.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		v0 := arrayVec3(vertices[i0].Position)
		e1 := arrayVec3(vertices[i1].Position).Sub(v0)
		e2 := arrayVec3(vertices[i2].Position).Sub(v0)

		n := e1.Cross(e2)
		if n.Length2() < 1e-10 {
			continue
		}
		n = n.Normalize()
		sums[i0] = sums[i0].Add(n)
		sums[i1] = sums[i1].Add(n)
		sums[i2] = sums[i2].Add(n)
	}

	for i := range vertices {
		vertices[i].Normal = vec3Array(sums[i].Normalize())
	}
}

// SmoothNormals averages normals at shared vertex positions.
// This hides seams where a mesh duplicates vertices for UVs.
func SmoothNormals(vertices []Vertex) {
	const epsilon float32 = 0.001

	// Group vertices by quantized position for O(n) lookup
	posMap := make(map[[3]int32][]int)
	for i := range vertices {
		key := [3]int32{
			int32(vertices[i].Position[0] / epsilon),
			int32(vertices[i].Position[1] / epsilon),
			int32(vertices[i].Position[2] / epsilon),
		}
		posMap[key] = append(posMap[key], i)
	}

	for _, idxs := range posMap {
		if len(idxs) < 2 {
			continue
		}

		var sum math.Vec3
		for _, idx := range idxs {
			sum = sum.Add(arrayVec3(vertices[idx].Normal))
		}

		avg := vec3Array(sum.Normalize())
		for _, idx := range idxs {
			vertices[idx].Normal = avg
		}
	}
}

func updateBounds(b *Bounds, p math.Vec3) {
	if p.X < b.Min.X {
		b.Min.X = p.X
	}
	if p.Y < b.Min.Y {
		b.Min.Y = p.Y
	}
	if p.Z < b.Min.Z {
		b.Min.Z = p.Z
	}
	if p.X > b.Max.X {
		b.Max.X = p.X
	}
	if p.Y > b.Max.Y {
		b.Max.Y = p.Y
	}
	if p.Z > b.Max.Z {
		b.Max.Z = p.Z
	}
}

func vec3Array(v math.Vec3) [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

func arrayVec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}
