package debug

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/kmx-platformer/internal/engine/model"
	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

func TestBoundsLines(t *testing.T) {
	b := model.Bounds{Min: math.Vec3{X: -1, Y: 0, Z: -2}, Max: math.Vec3{X: 1, Y: 3, Z: 2}}
	lines := BoundsLines(b, 0.5)
	require.Len(t, lines, BoundsLineCount)

	// Every edge is axis aligned and every endpoint is a padded corner
	for i := 0; i < len(lines); i += 2 {
		d := lines[i+1].Sub(lines[i])
		changed := 0
		for _, c := range []float32{d.X, d.Y, d.Z} {
			if c != 0 {
				changed++
			}
		}
		assert.Equal(t, 1, changed, "edge %d", i/2)
	}
	for _, p := range lines {
		assert.Contains(t, []float32{-1.5, 1.5}, p.X)
		assert.Contains(t, []float32{-0.5, 3.5}, p.Y)
		assert.Contains(t, []float32{-2.5, 2.5}, p.Z)
	}
}

func TestSkeletonLines(t *testing.T) {
	data, err := formats.EncodeSkeleton(formats.SkeletonSource{
		Bones: []formats.BoneSource{
			{Name: "hips"},
			{Name: "spine", Parent: "hips"},
			{Name: "head", Parent: "spine"},
		},
	})
	require.NoError(t, err)
	skel, err := formats.ParseSkeleton(data)
	require.NoError(t, err)

	poses := []math.Mat4{
		math.Identity(),
		math.Translation(math.Vec3{Y: 1}),
		math.Translation(math.Vec3{Y: 2}),
	}
	lines := SkeletonLines(skel, poses)
	require.Len(t, lines, 4)
	assert.Equal(t, math.Vec3{}, lines[0])
	assert.Equal(t, math.Vec3{Y: 1}, lines[1])
	assert.Equal(t, math.Vec3{Y: 1}, lines[2])
	assert.Equal(t, math.Vec3{Y: 2}, lines[3])

	Transform(lines, math.Translation(math.Vec3{X: 5}))
	assert.Equal(t, math.Vec3{X: 5, Y: 2}, lines[3])
}

// gradient returns GL-ordered pixels where row y has red = y.
func gradient(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			pixels[i] = byte(y)
			pixels[i+3] = 255
		}
	}
	return pixels
}

func fixedCapture(dir, format string) *ScreenshotCapture {
	sc := NewScreenshotCapture(dir, "shot", format)
	sc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return sc
}

func TestCaptureFromPixels_PNGFlipped(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	path, err := fixedCapture(dir, "png").CaptureFromPixels(gradient(2, 3), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shot_2026-01-02_03-04-05.000.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	// GL row 0 is the bottom of the image
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(2), r>>8)
	r, _, _, _ = img.At(0, 2).RGBA()
	assert.Equal(t, uint32(0), r>>8)
}

func TestCaptureFromImage_BMP(t *testing.T) {
	path, err := fixedCapture(t.TempDir(), "bmp").CaptureFromImage(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	assert.Equal(t, ".bmp", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := bmp.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Width)
}

func TestCaptureFromPixels_SizeMismatch(t *testing.T) {
	_, err := fixedCapture(t.TempDir(), "png").CaptureFromPixels(make([]byte, 7), 2, 2)
	assert.Error(t, err)
}

func TestCapture_UnknownFormat(t *testing.T) {
	_, err := fixedCapture(t.TempDir(), "gif").CaptureFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	assert.Error(t, err)
}
