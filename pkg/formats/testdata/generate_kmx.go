//go:build ignore

// This program generates sample KMX files for manual testing.
// Run with: go run generate_kmx.go
package main

import (
	"os"

	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

func main() {
	// Three-bone chain along +Y with an idle sway and a run swing
	skel := formats.SkeletonSource{
		Bones: []formats.BoneSource{
			{Name: "hips"},
			{Name: "spine", Parent: "hips"},
			{Name: "head", Parent: "spine"},
		},
		Animations: []formats.AnimationSource{
			{
				Name:     "idle",
				Duration: 2,
				Tracks: map[string]formats.TrackSource{
					"hips": {Translations: []formats.TranslationKey{
						{Time: 0, Value: [3]float32{0, 0, 0}},
						{Time: 1, Value: [3]float32{0, 0.05, 0}},
						{Time: 2, Value: [3]float32{0, 0, 0}},
					}},
					"spine": {
						Translations: []formats.TranslationKey{
							{Time: 0, Value: [3]float32{0, 1, 0}},
							{Time: 2, Value: [3]float32{0, 1, 0}},
						},
						Rotations: []formats.RotationKey{
							{Time: 0, Axis: [3]float32{0, 0, 1}, Angle: -5},
							{Time: 1, Axis: [3]float32{0, 0, 1}, Angle: 5},
							{Time: 2, Axis: [3]float32{0, 0, 1}, Angle: -5},
						},
					},
					"head": {Translations: []formats.TranslationKey{
						{Time: 0, Value: [3]float32{0, 1, 0}},
						{Time: 2, Value: [3]float32{0, 1, 0}},
					}},
				},
			},
			{
				Name:     "run",
				Duration: 0.5,
				Tracks: map[string]formats.TrackSource{
					"hips": {Rotations: []formats.RotationKey{
						{Time: 0, Axis: [3]float32{1, 0, 0}, Angle: 15},
						{Time: 0.25, Axis: [3]float32{1, 0, 0}, Angle: -15},
						{Time: 0.5, Axis: [3]float32{1, 0, 0}, Angle: 15},
					}},
					"spine": {Translations: []formats.TranslationKey{
						{Time: 0, Value: [3]float32{0, 1, 0}},
						{Time: 0.5, Value: [3]float32{0, 1, 0}},
					}},
					"head": {Translations: []formats.TranslationKey{
						{Time: 0, Value: [3]float32{0, 1, 0}},
						{Time: 0.5, Value: [3]float32{0, 1, 0}},
					}},
				},
			},
		},
	}

	data, err := formats.EncodeSkeleton(skel)
	if err != nil {
		panic(err)
	}
	if err := os.WriteFile("sample.kmx", data, 0644); err != nil {
		panic(err)
	}
	println("Generated sample.kmx:", len(data), "bytes")
	println("  - 3 bones (hips > spine > head)")
	println("  - 2 animations (idle: 2s, run: 0.5s)")

	// One quad per bone, bind pose stacked along +Y
	var mesh formats.SkinnedMeshSource
	for b := 0; b < 3; b++ {
		y := float32(b)
		base := uint16(len(mesh.Positions))
		mesh.Positions = append(mesh.Positions,
			math.Vec3{X: -0.5, Y: y}, math.Vec3{X: 0.5, Y: y},
			math.Vec3{X: 0.5, Y: y + 1}, math.Vec3{X: -0.5, Y: y + 1},
		)
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base, base+2, base+3)
		for i := 0; i < 4; i++ {
			mesh.Normals = append(mesh.Normals, math.Vec3{Z: 1})
			mesh.Influences = append(mesh.Influences, formats.Influence{
				Bones:   [4]int32{int32(b)},
				Weights: [4]float32{1},
			})
		}
		mesh.UVs = append(mesh.UVs, math.Vec2{}, math.Vec2{X: 1}, math.Vec2{X: 1, Y: 1}, math.Vec2{Y: 1})
		// Poses chain through the parent's pose, so each inverse bind pose
		// undoes only the bone's own rest offset.
		ibp := math.Identity()
		if b > 0 {
			ibp = math.Translation(math.Vec3{Y: -1})
		}
		mesh.InverseBindPoses = append(mesh.InverseBindPoses, ibp)
	}

	data, err = formats.EncodeSkinnedMesh(mesh)
	if err != nil {
		panic(err)
	}
	if err := os.WriteFile("sample_mesh.kmx", data, 0644); err != nil {
		panic(err)
	}
	println("Generated sample_mesh.kmx:", len(data), "bytes")
	println("  - 12 vertices, 18 indices, 3 inverse bind poses")
}
