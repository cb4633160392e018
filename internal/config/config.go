package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Render RenderConfig `json:"render" yaml:"render"`
	Export ExportConfig `json:"export" yaml:"export"`
	Vision VisionConfig `json:"vision" yaml:"vision"`
	View   ViewConfig   `json:"view" yaml:"view"`
}

// RenderConfig holds configuration for burning annotations into images
type RenderConfig struct {
	Format      string  `json:"format" yaml:"format"`
	Quality     int     `json:"quality" yaml:"quality"`
	Lossless    bool    `json:"lossless" yaml:"lossless"`
	StrokeWidth float64 `json:"stroke_width" yaml:"stroke_width"`
	Label       bool    `json:"label" yaml:"label"`
	Suffix      string  `json:"suffix" yaml:"suffix"`
}

// ExportConfig holds configuration for SFrame export
type ExportConfig struct {
	PathPrefix string `json:"path_prefix" yaml:"path_prefix"`
	Output     string `json:"output" yaml:"output"`
}

// VisionConfig holds configuration for model-assisted suggestions
type VisionConfig struct {
	Backend       string  `json:"backend" yaml:"backend"`
	URL           string  `json:"url" yaml:"url"`
	Model         string  `json:"model" yaml:"model"`
	SendFormat    string  `json:"send_format" yaml:"send_format"`
	SendSize      int     `json:"send_size" yaml:"send_size"`
	SendQuality   int     `json:"send_quality" yaml:"send_quality"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
}

// ViewConfig is the display area assumed by headless selection
type ViewConfig struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			Format:      "png",
			Quality:     90,
			Lossless:    false,
			StrokeWidth: 2,
			Label:       true,
			Suffix:      "_annotated",
		},
		Export: ExportConfig{
			PathPrefix: "",
			Output:     "",
		},
		Vision: VisionConfig{
			Backend:       "ollama",
			URL:           "http://localhost:11434",
			Model:         "llava",
			SendFormat:    "jpg",
			SendSize:      768,
			SendQuality:   85,
			MinConfidence: 0.5,
		},
		View: ViewConfig{
			Width:  1024,
			Height: 768,
		},
	}
}

func isYAML(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}

// LoadFromFile loads configuration from a JSON file, or YAML when the
// extension is .yaml or .yml. Missing keys keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a file in the format its extension names
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch strings.ToLower(c.Render.Format) {
	case "png", "jpg", "webp":
	default:
		return fmt.Errorf("render.format must be one of png, jpg, webp")
	}

	if c.Render.Quality < 1 || c.Render.Quality > 100 {
		return fmt.Errorf("render.quality must be between 1 and 100")
	}

	if c.Render.StrokeWidth <= 0 {
		return fmt.Errorf("render.stroke_width must be positive")
	}

	switch c.Vision.Backend {
	case "ollama", "local":
	default:
		return fmt.Errorf("vision.backend must be ollama or local")
	}

	switch strings.ToLower(c.Vision.SendFormat) {
	case "png", "jpg":
	default:
		return fmt.Errorf("vision.send_format must be png or jpg")
	}

	if c.Vision.SendQuality < 1 || c.Vision.SendQuality > 100 {
		return fmt.Errorf("vision.send_quality must be between 1 and 100")
	}

	if c.Vision.SendSize < 0 {
		return fmt.Errorf("vision.send_size cannot be negative")
	}

	if c.Vision.MinConfidence < 0 || c.Vision.MinConfidence > 1 {
		return fmt.Errorf("vision.min_confidence must be between 0 and 1")
	}

	if c.View.Width <= 0 || c.View.Height <= 0 {
		return fmt.Errorf("view.width and view.height must be positive")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-annotator", "config.json")
}
