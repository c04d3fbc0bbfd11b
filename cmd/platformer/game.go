package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/kmx-platformer/internal/assets"
	"github.com/Faultbox/kmx-platformer/internal/config"
	"github.com/Faultbox/kmx-platformer/internal/engine/debug"
	"github.com/Faultbox/kmx-platformer/internal/engine/input"
	"github.com/Faultbox/kmx-platformer/internal/engine/model"
	"github.com/Faultbox/kmx-platformer/internal/engine/renderer"
	"github.com/Faultbox/kmx-platformer/internal/engine/window"
	"github.com/Faultbox/kmx-platformer/internal/game"
	"github.com/Faultbox/kmx-platformer/internal/injector"
	"github.com/Faultbox/kmx-platformer/internal/logger"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// Game owns the platform adapters and the world they drive.
type Game struct {
	cfg      *config.Config
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	assets   *assets.Manager
	world    *game.World
	scenery  []game.Box

	playerMesh *renderer.Mesh

	// Debug overlays
	showSkeleton   bool
	showBounds     bool
	wantScreenshot bool
	screenshots    *debug.ScreenshotCapture
	overlayPoses   []math.Mat4
	skinned        []model.Vertex
}

var (
	skeletonColour = [4]float32{1, 1, 0, 1}
	boundsColour   = [4]float32{0, 1, 0, 1}
)

// NewGame opens the window and loads the level.
func NewGame(cfg *config.Config) (*Game, error) {
	logger.Info("initializing game",
		zap.String("title", cfg.Window.Title),
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
	)

	g := &Game{
		cfg:          cfg,
		scenery:      game.DefaultScenery(),
		showSkeleton: cfg.Debug.ShowSkeleton,
		showBounds:   cfg.Debug.ShowBounds,
		screenshots:  debug.NewScreenshotCapture(cfg.Debug.ScreenshotDir, "platformer", cfg.Debug.ScreenshotFormat),
	}

	var err error
	g.assets, err = injector.NewAssetManager(cfg)
	if err != nil {
		logger.Warn("no assets mounted", zap.Error(err))
		g.assets = assets.NewManager()
	}
	if len(cfg.Assets.Preload) > 0 {
		if err := g.assets.Preload(context.Background(), cfg.Assets.Preload); err != nil {
			g.Close()
			return nil, err
		}
	}

	g.world, err = injector.InitializeWorld(cfg, g.assets)
	if errors.Is(err, assets.ErrNotFound) {
		logger.Warn("player character missing, drawing a cube", zap.Error(err))
		g.world, err = game.NewWorld(cfg, nil), nil
	}
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("building world: %w", err)
	}

	// Create window (this also creates OpenGL context)
	g.window, err = window.New(cfg.Window)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	width, height := g.window.GetSize()
	g.renderer, err = renderer.New(width, height)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	g.uploadCharacter()
	g.input = input.New()
	g.window.SetRelativeMouse(g.world.Camera.MouseControls)

	logger.Info("game initialized successfully")
	return g, nil
}

// Run starts the main game loop.
func (g *Game) Run() error {
	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	logger.Info("starting game loop")

	for {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		if g.input.Update() {
			return nil
		}
		if g.handleEvents() {
			return nil
		}

		mouse := g.world.Camera.MouseControls
		g.world.Frame(g.input.Controls(), dt)
		if g.world.Camera.MouseControls != mouse {
			g.window.SetRelativeMouse(g.world.Camera.MouseControls)
		}

		if err := g.render(); err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		if g.wantScreenshot {
			g.wantScreenshot = false
			g.screenshot()
		}
		g.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			logger.Debug("fps",
				zap.Int("count", frameCount),
				zap.Float64("dt_ms", dt*1000),
				zap.Uint64("ticks", g.world.Ticks()),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
}

// handleEvents reacts to window and hotkey events. Returns true to quit.
func (g *Game) handleEvents() bool {
	for _, event := range g.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			g.renderer.Resize(g.window.GetSize())
		case input.EventKeyDown:
			ctrl := event.Mod&(sdl.KMOD_CTRL|sdl.KMOD_GUI) != 0
			switch {
			case event.Key == sdl.SCANCODE_ESCAPE:
				return true
			case event.Key == sdl.SCANCODE_F && ctrl:
				g.window.ToggleFullscreen()
			case event.Key == sdl.SCANCODE_F5:
				g.reloadCharacter()
			case event.Key == sdl.SCANCODE_F1:
				g.showSkeleton = !g.showSkeleton
			case event.Key == sdl.SCANCODE_F2:
				g.showBounds = !g.showBounds
			case event.Key == sdl.SCANCODE_F12:
				g.wantScreenshot = true
			}
		}
	}
	return false
}

// reloadCharacter re-reads the character assets and rebuilds the world if
// they changed on disk.
func (g *Game) reloadCharacter() {
	changed := false
	for _, path := range []string{g.cfg.Assets.Skeleton, g.cfg.Assets.SkinnedMesh} {
		c, err := g.assets.Reload(path)
		if err != nil {
			logger.Warn("reload failed", zap.String("path", path), zap.Error(err))
			return
		}
		changed = changed || c
	}
	if !changed {
		logger.Info("character assets unchanged")
		return
	}

	world, err := injector.InitializeWorld(g.cfg, g.assets)
	if err != nil {
		logger.Warn("reload failed", zap.Error(err))
		return
	}

	// Keep the player where they were.
	world.Player, world.Camera = g.world.Player, g.world.Camera
	g.world = world

	g.uploadCharacter()
	logger.Info("character reloaded")
}

// uploadCharacter replaces the player's GPU mesh with the world's character.
func (g *Game) uploadCharacter() {
	if g.playerMesh != nil {
		g.playerMesh.Delete()
		g.playerMesh = nil
	}
	if g.world.Character != nil {
		g.playerMesh = g.renderer.UploadSkinned(g.world.Character.Mesh)
	}
}

// render draws the current frame.
func (g *Game) render() error {
	cam := g.world.Camera
	g.renderer.Begin(cam.ViewMatrix(), cam.ProjectionMatrix(g.renderer.AspectRatio()))
	defer g.renderer.End()

	for _, box := range g.scenery {
		g.renderer.DrawCube(box.ModelMatrix(), box.Colour)
	}

	p := g.world.Player
	if g.playerMesh == nil {
		// Lift the cube so it stands on the ground.
		g.renderer.DrawCube(p.ModelMatrix().Mul(math.Translation(math.Vec3{Y: 1})), p.Colour)
		return nil
	}

	g.world.Animator.Emit(g.renderer)
	if err := g.renderer.DrawSkinned(g.playerMesh, p.ModelMatrix(), p.Colour); err != nil {
		return err
	}
	return g.drawOverlays()
}

// drawOverlays draws the character's bones and skinned bounds when enabled.
func (g *Game) drawOverlays() error {
	ch, anim := g.world.Character, g.world.Animator
	toWorld := g.world.Player.ModelMatrix()

	if g.showSkeleton {
		n := ch.Skeleton.NumBones()
		if len(g.overlayPoses) < n {
			g.overlayPoses = make([]math.Mat4, n)
		}
		poses := g.overlayPoses[:n]
		if anim.Animation() < 0 {
			// Bind pose: joints sit where the inverse bind poses undo.
			for b := range poses {
				poses[b] = ch.InverseBindPoses[b].Inverse()
			}
		} else {
			model.Animate(ch.Skeleton, anim.Animation(), anim.Time(), nil, poses)
		}
		lines := debug.SkeletonLines(ch.Skeleton, poses)
		debug.Transform(lines, toWorld)
		g.renderer.DrawLines(lines, skeletonColour)
	}

	if g.showBounds {
		if len(g.skinned) < ch.Mesh.NumVertices() {
			g.skinned = make([]model.Vertex, ch.Mesh.NumVertices())
		}
		bounds, err := model.SkinMesh(ch.Mesh, anim.Poses(), g.skinned)
		if err != nil {
			return fmt.Errorf("bounds overlay: %w", err)
		}
		lines := debug.BoundsLines(bounds, 0.02)
		debug.Transform(lines, toWorld)
		g.renderer.DrawLines(lines, boundsColour)
	}
	return nil
}

// screenshot saves the frame just rendered.
func (g *Game) screenshot() {
	pixels, width, height := g.renderer.ReadPixels()
	path, err := g.screenshots.CaptureFromPixels(pixels, width, height)
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	logger.Info("screenshot saved", zap.String("path", path))
}

// Close cleans up game resources.
func (g *Game) Close() {
	logger.Info("closing game")

	if g.input != nil {
		g.input.Close()
	}
	if g.playerMesh != nil {
		g.playerMesh.Delete()
	}
	if g.renderer != nil {
		g.renderer.Close()
	}
	if g.window != nil {
		g.window.Close()
	}
	if g.assets != nil {
		g.assets.Close()
	}
}
