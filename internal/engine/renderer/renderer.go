// Package renderer provides OpenGL rendering functionality.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/kmx-platformer/internal/engine/lighting"
	"github.com/Faultbox/kmx-platformer/internal/engine/model"
	"github.com/Faultbox/kmx-platformer/internal/engine/renderer/shaders"
	"github.com/Faultbox/kmx-platformer/internal/engine/shader"
	"github.com/Faultbox/kmx-platformer/internal/logger"
	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// MaxBones is the size of the bone palette in the mesh shader. Skeletons
// with more bones are skinned on the CPU.
const MaxBones = 64

var _ model.PoseSink = (*Renderer)(nil)

// Renderer handles all OpenGL rendering.
type Renderer struct {
	width, height int

	Sun lighting.Sun

	program *shader.Program
	cube    *Mesh
	bones   []math.Mat4

	lineVAO, lineVBO uint32
	lineCap          int
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(width, height int) (*Renderer, error) {
	r := &Renderer{
		width:  width,
		height: height,
		Sun:    lighting.DefaultSun(),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	rendererName := gl.GoStr(gl.GetString(gl.RENDERER))
	logger.Info("OpenGL initialized",
		zap.String("version", version),
		zap.String("renderer", rendererName),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.ClearColor(0.4, 0.6, 0.9, 1.0)
	gl.Viewport(0, 0, int32(width), int32(height))

	var err error
	r.program, err = shader.NewProgram("mesh", shaders.MeshVertexShader, shaders.MeshFragmentShader)
	if err != nil {
		return nil, err
	}

	r.cube = r.Upload(model.CubeMesh())

	gl.GenVertexArrays(1, &r.lineVAO)
	gl.GenBuffers(1, &r.lineVBO)
	gl.BindVertexArray(r.lineVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, int32(unsafe.Sizeof(math.Vec3{})), 0)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)

	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	logger.Info("closing renderer")
	if r.cube != nil {
		r.cube.Delete()
	}
	if r.lineVBO != 0 {
		gl.DeleteBuffers(1, &r.lineVBO)
		gl.DeleteVertexArrays(1, &r.lineVAO)
	}
	if r.program != nil {
		r.program.Delete()
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.width = width
	r.height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// AspectRatio returns the viewport width/height.
func (r *Renderer) AspectRatio() float32 {
	if r.height == 0 {
		return 1
	}
	return float32(r.width) / float32(r.height)
}

// Begin clears the frame and sets the camera for the draws that follow.
func (r *Renderer) Begin(view, projection math.Mat4) {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	r.program.Use()
	r.program.SetMat4("uView", view)
	r.program.SetMat4("uProjection", projection)
	r.program.SetVec3("uSunDirection", r.Sun.Direction())
	gl.Uniform1f(r.program.Uniform("uAmbient"), r.Sun.Ambient)
	gl.Uniform1i(r.program.Uniform("uUnlit"), 0)
}

// End finishes the current frame.
func (r *Renderer) End() {
	gl.BindVertexArray(0)
}

// SetBoneMatrices stores the pose palette used by the next DrawSkinned.
func (r *Renderer) SetBoneMatrices(poses []math.Mat4) {
	r.bones = append(r.bones[:0], poses...)
}

// DrawCube draws the cube spanning [-1, 1], transformed by m.
func (r *Renderer) DrawCube(m math.Mat4, colour [4]float32) {
	r.Draw(r.cube, m, colour)
}

// Draw draws a static mesh.
func (r *Renderer) Draw(mesh *Mesh, m math.Mat4, colour [4]float32) {
	r.program.SetMat4("uModel", m)
	r.program.SetVec4("uColour", colour)
	gl.Uniform1i(r.program.Uniform("uSkinned"), 0)
	mesh.draw()
}

// DrawSkinned draws a skinned mesh in the pose last given to
// SetBoneMatrices. Palettes larger than MaxBones are skinned on the CPU.
func (r *Renderer) DrawSkinned(mesh *Mesh, m math.Mat4, colour [4]float32) error {
	if mesh.source == nil {
		return fmt.Errorf("mesh has no skinning data")
	}

	r.program.SetMat4("uModel", m)
	r.program.SetVec4("uColour", colour)

	if len(r.bones) > MaxBones {
		if err := mesh.skinOnCPU(r.bones); err != nil {
			return err
		}
		gl.Uniform1i(r.program.Uniform("uSkinned"), 0)
	} else {
		r.program.SetMat4Array("uBones", r.bones)
		gl.Uniform1i(r.program.Uniform("uSkinned"), 1)
	}

	mesh.draw()
	return nil
}

// DrawLines draws unlit line segments in world space, one per pair of
// points, on top of the scene.
func (r *Renderer) DrawLines(points []math.Vec3, colour [4]float32) {
	if len(points) < 2 {
		return
	}

	size := len(points) * int(unsafe.Sizeof(math.Vec3{}))
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	if len(points) > r.lineCap {
		gl.BufferData(gl.ARRAY_BUFFER, size, unsafe.Pointer(&points[0]), gl.STREAM_DRAW)
		r.lineCap = len(points)
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, size, unsafe.Pointer(&points[0]))
	}

	r.program.SetMat4("uModel", math.Identity())
	r.program.SetVec4("uColour", colour)
	gl.Uniform1i(r.program.Uniform("uSkinned"), 0)
	gl.Uniform1i(r.program.Uniform("uUnlit"), 1)
	gl.Disable(gl.DEPTH_TEST)

	gl.BindVertexArray(r.lineVAO)
	gl.DrawArrays(gl.LINES, 0, int32(len(points)&^1))

	gl.Enable(gl.DEPTH_TEST)
	gl.Uniform1i(r.program.Uniform("uUnlit"), 0)
}

// ReadPixels reads the back buffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	pixels := make([]byte, r.width*r.height*4)
	if len(pixels) == 0 {
		return pixels, r.width, r.height
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(r.width), int32(r.height), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
	return pixels, r.width, r.height
}

// Mesh is a mesh uploaded to the GPU.
type Mesh struct {
	vao, vbo, ebo, influenceVBO uint32
	indexCount                  int32

	source  *formats.SkinnedMesh
	scratch []model.Vertex
}

// Upload creates GPU buffers for a static mesh.
func (r *Renderer) Upload(src *model.Mesh) *Mesh {
	m := &Mesh{}
	m.upload(src)
	gl.BindVertexArray(0)
	return m
}

// UploadSkinned creates GPU buffers for a skinned mesh, including its bone
// influences. Returns nil for a mesh without vertices.
func (r *Renderer) UploadSkinned(src *formats.SkinnedMesh) *Mesh {
	bind := model.BuildMesh(src)
	if bind == nil {
		return nil
	}

	m := &Mesh{source: src}
	m.upload(bind)

	influences := make([]formats.Influence, src.NumVertices())
	for v := range influences {
		influences[v] = src.Influence(v)
	}
	stride := int32(unsafe.Sizeof(formats.Influence{}))

	gl.GenBuffers(1, &m.influenceVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.influenceVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(influences)*int(stride), unsafe.Pointer(&influences[0]), gl.STATIC_DRAW)

	// Bone IDs
	gl.VertexAttribIPointerWithOffset(3, 4, gl.INT, stride, 0)
	gl.EnableVertexAttribArray(3)
	// Weights
	gl.VertexAttribPointerWithOffset(4, 4, gl.FLOAT, false, stride, 4*4)
	gl.EnableVertexAttribArray(4)

	gl.BindVertexArray(0)

	logger.Debug("skinned mesh uploaded",
		zap.Int("vertices", src.NumVertices()),
		zap.Int32("indices", m.indexCount),
	)
	return m
}

// upload creates the VAO, vertex and index buffers and leaves the VAO bound.
func (m *Mesh) upload(src *model.Mesh) {
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	vertexSize := int(unsafe.Sizeof(model.Vertex{}))
	gl.BufferData(gl.ARRAY_BUFFER, len(src.Vertices)*vertexSize, unsafe.Pointer(&src.Vertices[0]), gl.DYNAMIC_DRAW)

	// Position
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, int32(vertexSize), 0)
	gl.EnableVertexAttribArray(0)
	// Normal
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, int32(vertexSize), 3*4)
	gl.EnableVertexAttribArray(1)
	// TexCoord
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, int32(vertexSize), 6*4)
	gl.EnableVertexAttribArray(2)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	if len(src.Indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(src.Indices)*4, unsafe.Pointer(&src.Indices[0]), gl.STATIC_DRAW)
	}
	m.indexCount = int32(len(src.Indices))
}

// skinOnCPU overwrites the vertex buffer with the posed mesh.
func (m *Mesh) skinOnCPU(poses []math.Mat4) error {
	if len(m.scratch) < m.source.NumVertices() {
		m.scratch = make([]model.Vertex, m.source.NumVertices())
	}
	if _, err := model.SkinMesh(m.source, poses, m.scratch); err != nil {
		return fmt.Errorf("cpu skinning: %w", err)
	}

	vertexSize := int(unsafe.Sizeof(model.Vertex{}))
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(m.scratch)*vertexSize, unsafe.Pointer(&m.scratch[0]))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

func (m *Mesh) draw() {
	gl.BindVertexArray(m.vao)
	gl.DrawElements(gl.TRIANGLES, m.indexCount, gl.UNSIGNED_INT, nil)
}

// Delete frees the GPU buffers.
func (m *Mesh) Delete() {
	for _, buf := range []*uint32{&m.vbo, &m.ebo, &m.influenceVBO} {
		if *buf != 0 {
			gl.DeleteBuffers(1, buf)
			*buf = 0
		}
	}
	if m.vao != 0 {
		gl.DeleteVertexArrays(1, &m.vao)
		m.vao = 0
	}
}
