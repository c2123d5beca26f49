package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/image-annotator/pkg/intent"
	"github.com/menta2k/image-annotator/pkg/processing"
	"github.com/menta2k/image-annotator/pkg/session"
	"github.com/menta2k/image-annotator/pkg/types"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Environment variables that override file values
const (
	EnvInputDir  = "ANNOTATOR_INPUT_DIR"
	EnvOutputDir = "ANNOTATOR_OUTPUT_DIR"
	EnvZoom      = "ANNOTATOR_ZOOM"
	EnvStartAt   = "ANNOTATOR_START_AT"
)

// Config holds the application configuration. It is loaded once and
// treated as read-only afterwards.
type Config struct {
	Display DisplayConfig `json:"display" toml:"display" yaml:"display"`
	Marking MarkingConfig `json:"marking" toml:"marking" yaml:"marking"`
	Paths   PathsConfig   `json:"paths" toml:"paths" yaml:"paths"`
	Keys    KeysConfig    `json:"keys" toml:"keys" yaml:"keys"`
	Logging LoggingConfig `json:"logging" toml:"logging" yaml:"logging"`
	Preview PreviewConfig `json:"preview" toml:"preview" yaml:"preview"`
}

// DisplayConfig holds the display bounds, zoom level and the resample
// filter used when scaling frames
type DisplayConfig struct {
	Width     int     `json:"width" toml:"width" yaml:"width"`
	Height    int     `json:"height" toml:"height" yaml:"height"`
	ZoomLevel float64 `json:"zoom_level" toml:"zoom_level" yaml:"zoom_level"`
	Filter    string  `json:"filter" toml:"filter" yaml:"filter"`
}

// MarkingConfig holds marking colours (hex) and marker geometry
type MarkingConfig struct {
	PrimaryColor   string `json:"primary_color" toml:"primary_color" yaml:"primary_color"`
	SecondaryColor string `json:"secondary_color" toml:"secondary_color" yaml:"secondary_color"`
	SkipColor      string `json:"skip_color" toml:"skip_color" yaml:"skip_color"`
	Offset         int    `json:"offset" toml:"offset" yaml:"offset"`
	LineWidth      int    `json:"line_width" toml:"line_width" yaml:"line_width"`
}

// PathsConfig holds input and output locations
type PathsConfig struct {
	InputDir  string `json:"input_dir" toml:"input_dir" yaml:"input_dir"`
	OutputDir string `json:"output_dir" toml:"output_dir" yaml:"output_dir"`
	StartAt   int    `json:"start_at" toml:"start_at" yaml:"start_at"`
}

// KeysConfig holds the key bindings and the raw key code table per platform.
// Codes maps a GOOS value to "code" -> key name.
type KeysConfig struct {
	Bindings intent.Bindings              `json:"bindings" toml:"bindings" yaml:"bindings"`
	Codes    map[string]map[string]string `json:"codes" toml:"codes" yaml:"codes"`
}

// LoggingConfig holds log level and format (console, json or auto)
type LoggingConfig struct {
	Level  string `json:"level" toml:"level" yaml:"level"`
	Format string `json:"format" toml:"format" yaml:"format"`
}

// PreviewConfig controls frame snapshots written by the headless runner
type PreviewConfig struct {
	Dir      string `json:"dir" toml:"dir" yaml:"dir"`
	Format   string `json:"format" toml:"format" yaml:"format"`
	Quality  int    `json:"quality" toml:"quality" yaml:"quality"`
	Lossless bool   `json:"lossless" toml:"lossless" yaml:"lossless"`
	// Title stamps the frame title on every snapshot
	Title    bool   `json:"title" toml:"title" yaml:"title"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			Width:     1400,
			Height:    800,
			ZoomLevel: 4,
			Filter:    "linear",
		},
		Marking: MarkingConfig{
			PrimaryColor:   "#0000FF",
			SecondaryColor: "#00FF00",
			SkipColor:      "#FF0000",
			Offset:         5,
			LineWidth:      2,
		},
		Paths: PathsConfig{
			InputDir:  "../images",
			OutputDir: "../output",
		},
		Keys: KeysConfig{
			Bindings: intent.Bindings{Zoom: "a", Next: "n", Previous: "p", Skip: "s", LaneSwitch: "l"},
			Codes:    defaultCodes(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Preview: PreviewConfig{
			Format:  "png",
			Quality: 90,
			Title:   true,
		},
	}
}

// defaultCodes maps the ASCII codes the window toolkits report: lowercase
// from character hooks on linux and darwin, uppercase from key-down events on windows.
func defaultCodes() map[string]map[string]string {
	lower := map[string]string{}
	upper := map[string]string{}
	for _, k := range "anpsl" {
		lower[strconv.Itoa(int(k))] = string(k)
		upper[strconv.Itoa(int(k-'a'+'A'))] = string(k)
	}
	return map[string]map[string]string{
		"linux":   lower,
		"darwin":  copyCodes(lower),
		"windows": upper,
	}
}

func copyCodes(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// LoadFromFile loads configuration over the defaults. The format follows the
// extension: .toml, .yaml/.yml or .json.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration, choosing the format from the extension
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	default:
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides paths, zoom level and start index from the environment
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvInputDir)); v != "" {
		c.Paths.InputDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutputDir)); v != "" {
		c.Paths.OutputDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvZoom)); v != "" {
		zoom, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvZoom, err)
		}
		c.Display.ZoomLevel = zoom
	}
	if v := strings.TrimSpace(os.Getenv(EnvStartAt)); v != "" {
		start, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStartAt, err)
		}
		c.Paths.StartAt = start
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Display.Width < 1 || c.Display.Height < 1 {
		return fmt.Errorf("%w: display size must be positive, got %dx%d", ErrInvalidConfig, c.Display.Width, c.Display.Height)
	}

	if c.Display.ZoomLevel <= 1 {
		return fmt.Errorf("%w: display.zoom_level must be greater than 1", ErrInvalidConfig)
	}

	if _, ok := processing.FilterByName(c.Display.Filter); !ok {
		return fmt.Errorf("%w: display.filter must be one of %s", ErrInvalidConfig, strings.Join(processing.FilterNames(), ", "))
	}

	if c.Marking.Offset < 0 {
		return fmt.Errorf("%w: marking.offset cannot be negative", ErrInvalidConfig)
	}

	if c.Marking.LineWidth < 1 {
		return fmt.Errorf("%w: marking.line_width must be at least 1", ErrInvalidConfig)
	}

	if _, err := c.Palette(); err != nil {
		return err
	}

	if c.Paths.InputDir == "" || c.Paths.OutputDir == "" {
		return fmt.Errorf("%w: paths.input_dir and paths.output_dir are required", ErrInvalidConfig)
	}

	if c.Paths.StartAt < 0 {
		return fmt.Errorf("%w: paths.start_at cannot be negative", ErrInvalidConfig)
	}

	seen := map[string]intent.Kind{}
	for _, a := range c.Keys.Bindings.Actions() {
		if a.Key == "" {
			return fmt.Errorf("%w: no key bound to %s", ErrInvalidConfig, a.Kind)
		}
		if prev, dup := seen[a.Key]; dup {
			return fmt.Errorf("%w: key %q bound to both %s and %s", ErrInvalidConfig, a.Key, prev, a.Kind)
		}
		seen[a.Key] = a.Kind
	}

	for goos, codes := range c.Keys.Codes {
		for code := range codes {
			if _, err := strconv.Atoi(code); err != nil {
				return fmt.Errorf("%w: keys.codes.%s: %q is not a key code", ErrInvalidConfig, goos, code)
			}
		}
	}

	switch strings.ToLower(c.Preview.Format) {
	case "png", "jpg", "jpeg", "webp":
	default:
		return fmt.Errorf("%w: preview.format must be png, jpg or webp", ErrInvalidConfig)
	}

	if c.Preview.Quality < 1 || c.Preview.Quality > 100 {
		return fmt.Errorf("%w: preview.quality must be between 1 and 100", ErrInvalidConfig)
	}

	return nil
}

// Palette parses the marking colours
func (c *Config) Palette() (session.Palette, error) {
	primary, err := parseColor("marking.primary_color", c.Marking.PrimaryColor)
	if err != nil {
		return session.Palette{}, err
	}
	secondary, err := parseColor("marking.secondary_color", c.Marking.SecondaryColor)
	if err != nil {
		return session.Palette{}, err
	}
	skip, err := parseColor("marking.skip_color", c.Marking.SkipColor)
	if err != nil {
		return session.Palette{}, err
	}
	return session.Palette{Primary: primary, Secondary: secondary, Skip: skip}, nil
}

func parseColor(field, hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, field, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// Keymap resolves the key bindings and the raw code table for goos
func (c *Config) Keymap(goos string) intent.Keymap {
	codes := map[int]string{}
	for code, name := range c.Keys.Codes[goos] {
		n, err := strconv.Atoi(code)
		if err != nil {
			continue
		}
		codes[n] = name
	}
	return intent.NewKeymap(c.Keys.Bindings, codes)
}

// Platforms lists the platforms with a key code table, sorted
func (c *Config) Platforms() []string {
	out := make([]string, 0, len(c.Keys.Codes))
	for goos := range c.Keys.Codes {
		out = append(out, goos)
	}
	sort.Strings(out)
	return out
}

// SessionSettings builds the immutable settings handed to a session
func (c *Config) SessionSettings() (session.Settings, error) {
	palette, err := c.Palette()
	if err != nil {
		return session.Settings{}, err
	}
	return session.Settings{
		Display:       types.Size{Width: c.Display.Width, Height: c.Display.Height},
		ZoomLevel:     c.Display.ZoomLevel,
		Palette:       palette,
		MarkingOffset: c.Marking.Offset,
		MarkingWidth:  c.Marking.LineWidth,
		StartAt:       c.Paths.StartAt,
	}, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}
	return filepath.Join(home, ".config", "image-annotator", "config.toml")
}
