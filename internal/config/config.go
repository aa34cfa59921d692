// Package config loads Motion Masters settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/ayusman/motionmasters/internal/app"
	"github.com/ayusman/motionmasters/internal/capture"
	"github.com/ayusman/motionmasters/internal/detector"
	"github.com/ayusman/motionmasters/internal/render"
)

// DirName is the per-user data directory under $HOME.
const DirName = ".motionmasters"

// Config is the on-disk configuration.
type Config struct {
	Camera capture.Config       `yaml:"camera"`
	Pose   detector.PoseOptions `yaml:"pose"`
	Hands  detector.HandOptions `yaml:"hands"`

	// HandEvery runs the hand estimator on every n-th frame.
	HandEvery int `yaml:"hand_every"`
	RenderFPS int `yaml:"render_fps"`

	Server ServerConfig `yaml:"server"`
	Window WindowConfig `yaml:"window"`
	Tray   bool         `yaml:"tray"`

	// Database is the SQLite settings file.
	Database string `yaml:"database"`
	Debug    bool   `yaml:"debug"`
}

// ServerConfig configures the browser page.
type ServerConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Addr           string   `yaml:"addr"`
	StaticDir      string   `yaml:"static_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WindowConfig configures the desktop window.
type WindowConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Camera:    capture.DefaultConfig(),
		Pose:      detector.DefaultPoseOptions(),
		Hands:     detector.DefaultHandOptions(),
		HandEvery: app.DefaultHandEvery,
		RenderFPS: render.DefaultFPS,
		Server: ServerConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8080",
		},
		Window: WindowConfig{
			Title: "Motion Masters",
		},
		Database: filepath.Join(Dir(), "motionmasters.db"),
	}
}

// Dir returns the per-user data directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if err := c.Pose.Validate(); err != nil {
		return fmt.Errorf("pose: %w", err)
	}
	if err := c.Hands.Validate(); err != nil {
		return fmt.Errorf("hands: %w", err)
	}
	if c.HandEvery < 1 {
		return fmt.Errorf("hand_every must be at least 1, got %d", c.HandEvery)
	}
	if c.RenderFPS < 1 {
		return fmt.Errorf("render_fps must be at least 1, got %d", c.RenderFPS)
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 || c.Camera.FPS < 0 {
		return errors.New("camera width, height and fps must not be negative")
	}
	return nil
}

// Save writes the configuration to path, creating its directory.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// AppConfig returns the app settings described by c.
func (c Config) AppConfig() app.Config {
	return app.Config{
		Camera:    c.Camera,
		Pose:      c.Pose,
		Hands:     c.Hands,
		HandEvery: c.HandEvery,
		RenderFPS: c.RenderFPS,
	}
}
