package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"weightgen/internal/logging"
)

// FileName is the config file looked up from the working directory upwards.
const FileName = ".weightgen.yaml"

// Config holds all weightgen configuration.
type Config struct {
	// Weight controls the generated function signature.
	Weight WeightConfig `yaml:"weight"`

	// Annotation controls how directives are found and classified.
	Annotation AnnotationConfig `yaml:"annotation"`

	// Output controls where and how generated files are written.
	Output OutputConfig `yaml:"output"`

	// Generate tunes the file driver.
	Generate GenerateConfig `yaml:"generate"`

	// Watch tunes watch mode.
	Watch WatchConfig `yaml:"watch"`

	// Sandbox tunes interpreted execution of generated Go.
	Sandbox SandboxConfig `yaml:"sandbox"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// WeightConfig configures the generated signature.
type WeightConfig struct {
	Type   string `yaml:"type"`   // return type of generated functions
	Prefix string `yaml:"prefix"` // prepended to the source function name
}

// AnnotationConfig configures annotation discovery.
type AnnotationConfig struct {
	// Directive is the Go comment directive, without the leading "//".
	// Shape-forcing variants replace the part after the colon
	// (weight:expr, weight:fn, weight:result).
	Directive string `yaml:"directive"`

	// RustAttribute is the Rust attribute name. The _expr, _fn and _result
	// suffixed names force a shape.
	RustAttribute string `yaml:"rust_attribute"`

	// LenientTuples ignores tuple elements past the second instead of failing.
	LenientTuples bool `yaml:"lenient_tuples"`
}

// OutputConfig configures generated files.
type OutputConfig struct {
	Suffix string `yaml:"suffix"` // file stem suffix, e.g. "_weight"
}

// GenerateConfig configures the file driver.
type GenerateConfig struct {
	Workers   int `yaml:"workers"`    // parallel files; 0 means GOMAXPROCS
	CacheSize int `yaml:"cache_size"` // rendered outputs kept by content hash
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"` // quiet period before regenerating
}

// SandboxConfig configures interpreted execution.
type SandboxConfig struct {
	Timeout string `yaml:"timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Weight: WeightConfig{
			Type:   "Weight",
			Prefix: "weighted_",
		},
		Annotation: AnnotationConfig{
			Directive:     "weight:derive",
			RustAttribute: "derive_weight",
		},
		Output: OutputConfig{
			Suffix: "_weight",
		},
		Generate: GenerateConfig{
			Workers:   0,
			CacheSize: 256,
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
		Sandbox: SandboxConfig{
			Timeout: "5s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// A .env file next to the config is loaded into the environment first so its
// values take part in the overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"))

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.ConfigDebug("no config at %s, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		logging.ConfigDebug("loaded config from %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find walks from dir to the filesystem root looking for FileName. It returns
// dir/FileName when none exists so Load falls back to defaults.
func Find(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Join(dir, FileName)
	}
	for d := abs; ; d = filepath.Dir(d) {
		candidate := filepath.Join(d, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		if filepath.Dir(d) == d {
			break
		}
	}
	return filepath.Join(abs, FileName)
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	// godotenv.Load never overrides variables already set in the process.
	if err := godotenv.Load(path); err != nil {
		logging.ConfigWarn("ignoring %s: %v", path, err)
	}
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WEIGHTGEN_WEIGHT_TYPE"); v != "" {
		c.Weight.Type = v
	}
	if v := os.Getenv("WEIGHTGEN_PREFIX"); v != "" {
		c.Weight.Prefix = v
	}
	if v := os.Getenv("WEIGHTGEN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Generate.Workers = n
		} else {
			logging.ConfigWarn("WEIGHTGEN_WORKERS=%q is not a number", v)
		}
	}
	if v := os.Getenv("WEIGHTGEN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("WEIGHTGEN_LENIENT_TUPLES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Annotation.LenientTuples = b
		} else {
			logging.ConfigWarn("WEIGHTGEN_LENIENT_TUPLES=%q is not a boolean", v)
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Weight.Type == "" {
		return fmt.Errorf("weight.type must not be empty")
	}
	if c.Weight.Prefix == "" {
		return fmt.Errorf("weight.prefix must not be empty")
	}
	if c.Annotation.Directive == "" {
		return fmt.Errorf("annotation.directive must not be empty")
	}
	if c.Annotation.RustAttribute == "" {
		return fmt.Errorf("annotation.rust_attribute must not be empty")
	}
	if c.Output.Suffix == "" {
		return fmt.Errorf("output.suffix must not be empty (generated files would overwrite their sources)")
	}
	if c.Generate.Workers < 0 {
		return fmt.Errorf("generate.workers must be >= 0, got %d", c.Generate.Workers)
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("invalid watch.debounce: %w", err)
	}
	if _, err := time.ParseDuration(c.Sandbox.Timeout); err != nil {
		return fmt.Errorf("invalid sandbox.timeout: %w", err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	return nil
}

// GetDebounce returns the watch debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 300 * time.Millisecond
	}
	return d
}

// GetSandboxTimeout returns the sandbox timeout as a duration.
func (c *Config) GetSandboxTimeout() time.Duration {
	d, err := time.ParseDuration(c.Sandbox.Timeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
