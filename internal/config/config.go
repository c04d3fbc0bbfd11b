// Package config handles game configuration loading and management.
package config

// Config holds all game settings.
type Config struct {
	Window     WindowConfig     `yaml:"window"`
	Player     PlayerConfig     `yaml:"player"`
	Camera     CameraConfig     `yaml:"camera"`
	Simulation SimulationConfig `yaml:"simulation"`
	Assets     AssetsConfig     `yaml:"assets"`
	Logging    LoggingConfig    `yaml:"logging"`
	Debug      DebugConfig      `yaml:"debug"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// PlayerConfig holds movement tuning. Jump arc values are in world units:
// the player peaks at JumpHeight after travelling JumpDistToPeak at TopSpeed.
type PlayerConfig struct {
	TopSpeed       float32    `yaml:"top_speed"`
	TimeToTopSpeed float32    `yaml:"time_to_top_speed"`
	Friction       float32    `yaml:"friction"` // velocity kept per idle step; higher is slippier
	JumpHeight     float32    `yaml:"jump_height"`
	JumpDistToPeak float32    `yaml:"jump_dist_to_peak"`
	TurnSpeed      float32    `yaml:"turn_speed"` // degrees per second
	Scale          [3]float32 `yaml:"scale"`
}

// CameraConfig holds camera and projection settings.
type CameraConfig struct {
	MoveSpeed        float32 `yaml:"move_speed"`
	TurnSpeed        float32 `yaml:"turn_speed"` // degrees per second
	MouseSensitivity float32 `yaml:"mouse_sensitivity"`
	MouseControls    bool    `yaml:"mouse_controls"`
	FollowDistance   float32 `yaml:"follow_distance"`
	FollowHeight     float32 `yaml:"follow_height"`
	FOV              float32 `yaml:"fov"` // vertical, degrees
	Near             float32 `yaml:"near"`
	Far              float32 `yaml:"far"`
}

// SimulationConfig holds the fixed-timestep settings, in seconds.
type SimulationConfig struct {
	FixedStep  float64 `yaml:"fixed_step"`
	MaxFrameDt float64 `yaml:"max_frame_dt"`
}

// AssetsConfig holds asset file locations.
type AssetsConfig struct {
	SearchDirs       []string `yaml:"search_dirs"` // later entries take priority
	Skeleton         string   `yaml:"skeleton"`
	SkinnedMesh      string   `yaml:"skinned_mesh"`
	DefaultAnimation string   `yaml:"default_animation"`
	Preload          []string `yaml:"preload"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// DebugConfig holds debug overlay and screenshot settings.
type DebugConfig struct {
	ShowSkeleton     bool   `yaml:"show_skeleton"`
	ShowBounds       bool   `yaml:"show_bounds"`
	ScreenshotDir    string `yaml:"screenshot_dir"`
	ScreenshotFormat string `yaml:"screenshot_format"` // png or bmp
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:      "3D Platformer",
			Width:      1080,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Player: PlayerConfig{
			TopSpeed:       10,
			TimeToTopSpeed: 0.25,
			Friction:       0.3,
			JumpHeight:     3,
			JumpDistToPeak: 2,
			TurnSpeed:      720,
			Scale:          [3]float32{0.25, 0.5, 0.25},
		},
		Camera: CameraConfig{
			MoveSpeed:        10,
			TurnSpeed:        100,
			MouseSensitivity: 0.2,
			MouseControls:    false,
			FollowDistance:   5,
			FollowHeight:     2,
			FOV:              90,
			Near:             0.1,
			Far:              300,
		},
		Simulation: SimulationConfig{
			FixedStep:  1.0 / 200,
			MaxFrameDt: 0.1,
		},
		Assets: AssetsConfig{
			SearchDirs:       []string{"assets"},
			Skeleton:         "player.kmx",
			SkinnedMesh:      "player_mesh.kmx",
			DefaultAnimation: "idle",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Debug: DebugConfig{
			ScreenshotDir:    "screenshots",
			ScreenshotFormat: "png",
		},
	}
}
