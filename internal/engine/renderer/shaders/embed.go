// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// MeshVertexShader transforms static and GPU-skinned meshes.
//
//go:embed mesh.vert
var MeshVertexShader string

// MeshFragmentShader shades meshes with a flat colour and one sun light.
//
//go:embed mesh.frag
var MeshFragmentShader string
