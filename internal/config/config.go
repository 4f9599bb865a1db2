// Package config loads engine settings from YAML or TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/orcsym/internal/instr"
	"github.com/roach88/orcsym/internal/plugin"
)

// Config holds the settings of one engine instance.
type Config struct {
	// BlockSize is the number of samples in an audio channel buffer.
	BlockSize int `yaml:"block_size" toml:"block_size"`

	// StringMaxLen is the size of a string channel buffer, terminator included.
	StringMaxLen int `yaml:"string_max_len" toml:"string_max_len"`

	// InstrumentGrowth is the initial size and growth step of the
	// instrument-number table.
	InstrumentGrowth int `yaml:"instrument_growth" toml:"instrument_growth"`

	// MaxInstrument is the highest instrument number a manifest may use.
	MaxInstrument int `yaml:"max_instrument" toml:"max_instrument"`

	// AssignmentOrder is "top-first" or "ascending-first".
	AssignmentOrder string `yaml:"assignment_order" toml:"assignment_order"`

	// PluginDir is the directory searched for opcodes.dir and plugin
	// libraries. Empty disables plugins.
	PluginDir string `yaml:"plugin_dir" toml:"plugin_dir"`

	// LibraryPattern maps a library short name to its file name.
	LibraryPattern string `yaml:"library_pattern" toml:"library_pattern"`

	// CaseInsensitiveFiles folds library names before comparing them.
	CaseInsensitiveFiles bool `yaml:"case_insensitive_files" toml:"case_insensitive_files"`

	// MemoryLimit caps the bytes held by globals and channels. 0 is unlimited.
	MemoryLimit int64 `yaml:"memory_limit" toml:"memory_limit"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" toml:"log_level"`
}

// Default block and buffer sizes.
const (
	DefaultBlockSize    = 10
	DefaultStringMaxLen = 256
)

// Default returns the built-in configuration for the host platform.
func Default() Config {
	return Config{
		BlockSize:            DefaultBlockSize,
		StringMaxLen:         DefaultStringMaxLen,
		InstrumentGrowth:     instr.DefaultGrowth,
		MaxInstrument:        instr.DefaultMaxNumber,
		AssignmentOrder:      instr.TopFirst.String(),
		LibraryPattern:       plugin.DefaultLibraryPattern(),
		CaseInsensitiveFiles: plugin.DefaultCaseInsensitive(),
		LogLevel:             "info",
	}
}

// Load reads the file at path over the defaults. The decoder is chosen by
// extension: .yaml or .yml for YAML, .toml for TOML. Unknown keys are
// rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension %q: want .yaml, .yml or .toml", ext)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if c.BlockSize < 1 {
		return fmt.Errorf("block_size must be positive, got %d", c.BlockSize)
	}
	if c.StringMaxLen < 1 {
		return fmt.Errorf("string_max_len must be positive, got %d", c.StringMaxLen)
	}
	if c.InstrumentGrowth < 1 {
		return fmt.Errorf("instrument_growth must be positive, got %d", c.InstrumentGrowth)
	}
	if c.MaxInstrument < 1 {
		return fmt.Errorf("max_instrument must be positive, got %d", c.MaxInstrument)
	}
	if c.MemoryLimit < 0 {
		return fmt.Errorf("memory_limit must not be negative, got %d", c.MemoryLimit)
	}
	if _, err := instr.ParseOrder(c.AssignmentOrder); err != nil {
		return err
	}
	if err := plugin.ValidatePattern(c.LibraryPattern); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Order returns the parsed assignment order. Validate must have passed.
func (c Config) Order() instr.Order {
	o, _ := instr.ParseOrder(c.AssignmentOrder)
	return o
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q: must be debug, info, warn or error", s)
	}
	return l, nil
}
