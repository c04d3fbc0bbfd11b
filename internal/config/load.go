package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings the game loop cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("window: invalid size %dx%d", c.Window.Width, c.Window.Height)
	case c.Simulation.FixedStep <= 0:
		return fmt.Errorf("simulation: fixed_step must be positive, got %v", c.Simulation.FixedStep)
	case c.Simulation.MaxFrameDt < c.Simulation.FixedStep:
		return fmt.Errorf("simulation: max_frame_dt %v is below fixed_step %v",
			c.Simulation.MaxFrameDt, c.Simulation.FixedStep)
	case c.Player.TimeToTopSpeed <= 0 || c.Player.JumpDistToPeak <= 0:
		return errors.New("player: time_to_top_speed and jump_dist_to_peak must be positive")
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("camera: invalid clip range [%v, %v]", c.Camera.Near, c.Camera.Far)
	case c.Debug.ScreenshotFormat != "png" && c.Debug.ScreenshotFormat != "bmp":
		return fmt.Errorf("debug: unknown screenshot_format %q", c.Debug.ScreenshotFormat)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "KMXPlatformer")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "KMXPlatformer")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "kmx-platformer")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "kmx-platformer")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
