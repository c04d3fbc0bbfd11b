package model

import (
	"fmt"

	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// SkinMesh applies linear blend skinning: every bind-pose vertex of mesh is
// transformed by the weighted sum of the pose matrices of its influences.
// Results go to out, which must hold NumVertices entries. Returns the bounds
// of the skinned positions.
//
// Weights need not sum to one; the blended w component renormalizes them.
// A vertex without weights keeps its bind pose.
func SkinMesh(mesh *formats.SkinnedMesh, poses []math.Mat4, out []Vertex) (Bounds, error) {
	numVerts := mesh.NumVertices()
	if len(out) < numVerts {
		return Bounds{}, fmt.Errorf("skinning %d vertices into a buffer of %d", numVerts, len(out))
	}
	if numVerts == 0 {
		return Bounds{}, nil
	}

	positions, normals, uvs := mesh.Positions(), mesh.Normals(), mesh.UVs()
	bounds := emptyBounds()

	for v := 0; v < numVerts; v++ {
		skin, err := blendPoses(mesh.Influence(v), poses)
		if err != nil {
			return Bounds{}, fmt.Errorf("vertex %d: %w", v, err)
		}

		pos := skin.TransformPoint(positions.At(v))
		nrm := skin.TransformDirection(normals.At(v)).Normalize()
		uv := uvs.At(v)

		out[v] = Vertex{
			Position: vec3Array(pos),
			Normal:   vec3Array(nrm),
			TexCoord: [2]float32{uv.X, uv.Y},
		}
		updateBounds(&bounds, pos)
	}

	return bounds, nil
}

// blendPoses returns the weighted sum of the influencing pose matrices.
func blendPoses(inf formats.Influence, poses []math.Mat4) (math.Mat4, error) {
	var skin math.Mat4
	var total float32

	for i, w := range inf.Weights {
		if w == 0 {
			continue
		}
		b := int(inf.Bones[i])
		if b < 0 || b >= len(poses) {
			return math.Mat4{}, fmt.Errorf("%w: bone %d of %d poses", formats.ErrKMXMeshRange, b, len(poses))
		}
		for j := range skin {
			skin[j] += poses[b][j] * w
		}
		total += w
	}

	if total == 0 {
		return math.Identity(), nil
	}
	return skin, nil
}
