// Package config loads the viewer server settings from a YAML file.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults applied to every field the file leaves out.
const (
	DefaultAddr          = ":8080"
	DefaultWebDir        = "web"
	DefaultModel         = "DamagedHelmet.glb"
	DefaultWorkers       = 4
	DefaultThumbnailSize = 256
	DefaultMaxUploadSize = 64 << 20
	DefaultShutdownGrace = 5 * time.Second
)

// Config holds the viewer server settings.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// WebDir is the directory of static files served at "/".
	WebDir string `yaml:"web_dir"`

	// DefaultModel is the model loaded on startup. Empty disables the startup load.
	DefaultModel string `yaml:"default_model"`

	// Preload lists additional model files loaded into the cache on startup.
	Preload []string `yaml:"preload,omitempty"`

	// SmoothNormals averages generated normals across shared vertices.
	SmoothNormals bool `yaml:"smooth_normals"`

	// GenerateTangents computes tangents for primitives that have none.
	GenerateTangents bool `yaml:"generate_tangents"`

	// DisabledExtensions names glTF extensions whose handlers are removed from the registry.
	DisabledExtensions []string `yaml:"disabled_extensions,omitempty"`

	// Workers bounds the preload worker pool.
	Workers int `yaml:"workers"`

	// ThumbnailSize is the largest edge of a texture thumbnail in pixels.
	ThumbnailSize int `yaml:"thumbnail_size"`

	// MaxUploadSize caps the size of an uploaded model in bytes.
	MaxUploadSize int64 `yaml:"max_upload_size"`

	// ShutdownGrace is how long in-flight requests get on shutdown.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`

	// Debug enables per-load timing logs.
	Debug bool `yaml:"debug"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the default settings
func Default() Config {
	return Config{
		Addr:          DefaultAddr,
		WebDir:        DefaultWebDir,
		DefaultModel:  DefaultModel,
		Workers:       DefaultWorkers,
		ThumbnailSize: DefaultThumbnailSize,
		MaxUploadSize: DefaultMaxUploadSize,
		ShutdownGrace: DefaultShutdownGrace,
	}
}

// Load reads and validates the configuration file at path. An empty path returns Default.
//
// Parameters:
//   - path: the YAML file
//
// Returns:
//   - Config: the settings
//   - error: error if the file cannot be read, parsed or validated
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "Failed to open config %q", path)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, errors.Wrapf(err, "Config %q", path)
	}
	return cfg, nil
}

// Decode parses YAML settings on top of Default and validates the result.
// Unknown keys are rejected.
//
// Parameters:
//   - r: the YAML source
//
// Returns:
//   - Config: the settings
//   - error: error if the YAML is malformed or a value is invalid
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrapf(err, "Failed to unmarshal yaml")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
//
// Returns:
//   - error: the first invalid setting
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.Errorf("addr must not be empty")
	case c.Workers < 1:
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.ThumbnailSize < 1:
		return errors.Errorf("thumbnail_size must be at least 1, got %d", c.ThumbnailSize)
	case c.MaxUploadSize < 1:
		return errors.Errorf("max_upload_size must be at least 1, got %d", c.MaxUploadSize)
	case c.ShutdownGrace < 0:
		return errors.Errorf("shutdown_grace must not be negative, got %v", c.ShutdownGrace)
	}
	return nil
}

// Marshal encodes the configuration as YAML.
//
// Returns:
//   - []byte: the YAML document
//   - error: error if encoding fails
func (c *Config) Marshal() ([]byte, error) {
	var buffer bytes.Buffer
	enc := yaml.NewEncoder(&buffer)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, errors.Wrapf(err, "Failed to marshal yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrapf(err, "Failed to close yaml encoder")
	}
	return buffer.Bytes(), nil
}
