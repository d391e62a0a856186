package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Variant selects which scene composition to run.
type Variant string

const (
	VariantOrbit   Variant = "orbit"
	VariantLookout Variant = "lookout"
)

type WindowConfig struct {
	Width     int32  `toml:"width"`
	Height    int32  `toml:"height"`
	Title     string `toml:"title"`
	VSync     bool   `toml:"vsync"`
	Resizable bool   `toml:"resizable"`
}

type RendererConfig struct {
	MaxPixelRatio float32 `toml:"max_pixel_ratio"`
	ShadowMapSize int32   `toml:"shadow_map_size"`
	MSAASamples   int     `toml:"msaa_samples"`
	ClearColor    string  `toml:"clear_color"`
}

type AssetConfig struct {
	Root           string `toml:"root"`
	Workers        int    `toml:"workers"`
	EnvironmentMap string `toml:"environment_map"`
	FloorAlpha     string `toml:"floor_alpha"`
	Gradient       string `toml:"gradient"`
	Model          string `toml:"model"`
	LookoutModel   string `toml:"lookout_model"`
	Ambience       string `toml:"ambience"`
}

type CameraConfig struct {
	Fov         float32 `toml:"fov"`
	Near        float32 `toml:"near"`
	Far         float32 `toml:"far"`
	MinPitchDeg float32 `toml:"min_pitch_deg"`
	MaxPitchDeg float32 `toml:"max_pitch_deg"`
	Sensitivity float32 `toml:"sensitivity"`
	Damping     float32 `toml:"damping"`
}

// FadeConfig holds the veil effect timings. Durations are TOML strings such
// as "1s" or "1500ms".
type FadeConfig struct {
	Enabled      bool     `toml:"enabled"`
	OverlayColor string   `toml:"overlay_color"`
	OverlayHold  Duration `toml:"overlay_hold"`
	OverlayFade  Duration `toml:"overlay_fade"`
	MaterialFade Duration `toml:"material_fade"`
}

type PanelConfig struct {
	Enabled   bool   `toml:"enabled"`
	TweakFile string `toml:"tweak_file"`
}

type Config struct {
	Variant  Variant        `toml:"variant"`
	Debug    bool           `toml:"debug"`
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetConfig    `toml:"assets"`
	Camera   CameraConfig   `toml:"camera"`
	Fade     FadeConfig     `toml:"fade"`
	Panel    PanelConfig    `toml:"panel"`
}

// Duration wraps time.Duration so it can be written as text in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Variant: VariantOrbit,
		Window: WindowConfig{
			Width:     1280,
			Height:    720,
			Title:     "Meadow3D",
			VSync:     true,
			Resizable: true,
		},
		Renderer: RendererConfig{
			MaxPixelRatio: 2,
			ShadowMapSize: 1024,
			MSAASamples:   4,
			ClearColor:    "#000000",
		},
		Assets: AssetConfig{
			Root:           "static",
			Workers:        4,
			EnvironmentMap: "hdri/cartoonEnviroment_hdr.hdr",
			FloorAlpha:     "floor/alpha.jpg",
			Gradient:       "gradients/5.jpg",
			Model:          "bath.glb",
			LookoutModel:   "lookout.glb",
			Ambience:       "sounds/ambience.mp3",
		},
		Camera: CameraConfig{
			Fov:         75,
			Near:        0.1,
			Far:         100,
			MinPitchDeg: -45,
			MaxPitchDeg: 45,
			Sensitivity: 0.002,
			Damping:     0.05,
		},
		Fade: FadeConfig{
			Enabled:      true,
			OverlayColor: "#4b241eff",
			OverlayHold:  Duration{time.Second},
			OverlayFade:  Duration{3 * time.Second},
			MaterialFade: Duration{5 * time.Second},
		},
		Panel: PanelConfig{
			Enabled:   true,
			TweakFile: "tweaks.toml",
		},
	}
}

// Load reads a TOML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the orchestrator cannot run with.
func (c Config) Validate() error {
	switch c.Variant {
	case VariantOrbit, VariantLookout:
	default:
		return fmt.Errorf("unknown variant %q", c.Variant)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Camera.MinPitchDeg >= c.Camera.MaxPitchDeg {
		return fmt.Errorf("camera pitch bounds inverted: [%v, %v]", c.Camera.MinPitchDeg, c.Camera.MaxPitchDeg)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("camera clip planes invalid: near=%v far=%v", c.Camera.Near, c.Camera.Far)
	}
	if c.Assets.Workers <= 0 {
		return fmt.Errorf("assets.workers must be positive, got %d", c.Assets.Workers)
	}
	if c.Fade.OverlayHold.Duration < 0 || c.Fade.OverlayFade.Duration < 0 || c.Fade.MaterialFade.Duration < 0 {
		return fmt.Errorf("fade durations must not be negative")
	}
	return nil
}

// Encode renders the configuration as TOML, used to write a starter file.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
