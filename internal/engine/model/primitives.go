package model

import "github.com/Faultbox/kmx-platformer/pkg/math"

// cubeFaces lists each face's outward normal and its four corners,
// counter-clockwise seen from outside.
var cubeFaces = [6]struct {
	normal  [3]float32
	corners [4][3]float32
}{
	{[3]float32{0, 0, 1}, [4][3]float32{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}},
	{[3]float32{0, 0, -1}, [4][3]float32{{1, -1, -1}, {-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}}},
	{[3]float32{1, 0, 0}, [4][3]float32{{1, -1, 1}, {1, -1, -1}, {1, 1, -1}, {1, 1, 1}}},
	{[3]float32{-1, 0, 0}, [4][3]float32{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}}},
	{[3]float32{0, 1, 0}, [4][3]float32{{-1, 1, 1}, {1, 1, 1}, {1, 1, -1}, {-1, 1, -1}}},
	{[3]float32{0, -1, 0}, [4][3]float32{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}},
}

// CubeMesh returns the cube spanning [-1, 1] on each axis with flat normals.
func CubeMesh() *Mesh {
	uvs := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	mesh := &Mesh{
		Vertices: make([]Vertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
		Bounds: Bounds{
			Min: math.Vec3{X: -1, Y: -1, Z: -1},
			Max: math.Vec3{X: 1, Y: 1, Z: 1},
		},
	}

	for _, face := range cubeFaces {
		base := uint32(len(mesh.Vertices))
		for i, c := range face.corners {
			mesh.Vertices = append(mesh.Vertices, Vertex{
				Position: c,
				Normal:   face.normal,
				TexCoord: uvs[i],
			})
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base, base+2, base+3)
	}

	return mesh
}
