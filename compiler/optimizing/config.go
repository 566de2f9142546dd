package optimizing

import (
	"fmt"
	"os"
	"runtime"

	"github.com/naoina/toml"
)

// CompilerFilter selects how much of a dex method set gets the optimizing
// treatment. The values mirror the runtime's filter names.
type CompilerFilter string

const (
	// CompileNothing short-circuits every build attempt to Skipped.
	CompileNothing CompilerFilter = "nothing"
	// CompileSpeed is the default balanced filter.
	CompileSpeed CompilerFilter = "speed"
	// CompileEverything builds even methods the heuristics would skip.
	CompileEverything CompilerFilter = "everything"
)

// hugeMethodThreshold is the default code-unit count above which a method
// is left to the interpreter.
const hugeMethodThreshold = 10000

// Config carries the knobs of the build pipeline and its caches.
type Config struct {
	CompilerFilter      CompilerFilter `toml:"compiler-filter"`
	HugeMethodThreshold uint32         `toml:"huge-method-threshold"`

	// GraphCacheSize bounds the number of finished graphs kept resident.
	GraphCacheSize int `toml:"graph-cache-size"`

	// Workers sizes the background compilation pool.
	Workers int `toml:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		CompilerFilter:      CompileSpeed,
		HugeMethodThreshold: hugeMethodThreshold,
		GraphCacheSize:      4096,
		Workers:             runtime.NumCPU(),
	}
}

// LoadConfig reads a TOML config file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CompilerFilter {
	case CompileNothing, CompileSpeed, CompileEverything:
	default:
		return fmt.Errorf("unknown compiler filter %q", c.CompilerFilter)
	}
	if c.GraphCacheSize <= 0 {
		return fmt.Errorf("graph-cache-size must be positive, got %d", c.GraphCacheSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}
