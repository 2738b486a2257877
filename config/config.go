// Package config handles opal.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents an opal.toml runtime configuration.
type Config struct {
	Stream  Stream  `toml:"stream"`
	Arena   Arena   `toml:"arena"`
	Symbols Symbols `toml:"symbols"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the opal.toml file (set at load time).
	Dir string `toml:"-"`
}

// Stream configures the byte-stream primitives.
type Stream struct {
	// ScratchCapacity is the starting capacity of the delimited-read
	// slow path's scratch buffer.
	ScratchCapacity int `toml:"scratch-capacity"`
}

// Arena configures permanent allocation.
type Arena struct {
	// BlockSlots is the slot count of each permanent arena block.
	BlockSlots int `toml:"block-slots"`
}

// Symbols configures symbol persistence.
type Symbols struct {
	// StorePath is the symbol store location, relative to Dir.
	// Empty disables persistence.
	StorePath string `toml:"store-path"`
}

// Log configures logging.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no opal.toml exists.
func Default() *Config {
	return &Config{
		Stream: Stream{ScratchCapacity: 80},
		Arena:  Arena{BlockSlots: 4096},
	}
}

// Load parses an opal.toml file from the given directory. Missing
// fields fall back to defaults; a missing file is an error (callers
// that tolerate absence should check fs.ErrNotExist and use Default).
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "opal.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Dir = dir

	if err := c.validate(path); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate(path string) error {
	if c.Stream.ScratchCapacity < 0 {
		return fmt.Errorf("%s: stream.scratch-capacity must not be negative", path)
	}
	if c.Arena.BlockSlots < 0 {
		return fmt.Errorf("%s: arena.block-slots must not be negative", path)
	}
	return nil
}

// StorePath returns the symbol store path resolved against the config
// directory, or "" if persistence is disabled.
func (c *Config) StorePath() string {
	if c.Symbols.StorePath == "" {
		return ""
	}
	if filepath.IsAbs(c.Symbols.StorePath) {
		return c.Symbols.StorePath
	}
	return filepath.Join(c.Dir, c.Symbols.StorePath)
}
