// Package config loads volcast settings from built-in defaults, an optional
// YAML file and VOLCAST_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// VOLCAST_ENGINE_BUNDLE_DIR -> engine.bundle_dir.
	EnvPrefix = "VOLCAST_"
	// PathEnvVar names an explicit config file.
	PathEnvVar = "VOLCAST_CONFIG"
	// DefaultPath is used when PathEnvVar is unset and the file exists.
	DefaultPath = "volcast.yaml"
)

// Config holds all volcast configuration.
type Config struct {
	Engine  EngineConfig  `koanf:"engine"`
	Compare CompareConfig `koanf:"compare"`
	IDs     IDsConfig     `koanf:"ids"`
	Output  OutputConfig  `koanf:"output"`
	Log     LogConfig     `koanf:"log"`
}

// EngineConfig locates model files and tunes inference.
type EngineConfig struct {
	ModelsDir         string `koanf:"models_dir" validate:"required"`
	BundleDir         string `koanf:"bundle_dir" validate:"required"`
	LibPath           string `koanf:"lib_path"`
	IntraOpThreads    int    `koanf:"intra_op_threads" validate:"gte=0,lte=256"`
	MissingCloseEarly string `koanf:"missing_close_early" validate:"oneof=zero nan"`
}

// CompareConfig controls comparison-set selection.
type CompareConfig struct {
	CorpusPath   string `koanf:"corpus_path"`
	Cap          int    `koanf:"cap" validate:"gte=1,lte=100"`
	DiversityKey string `koanf:"diversity_key" validate:"oneof=series category both"`
}

// IDsConfig bounds id allocation.
type IDsConfig struct {
	MaxAttempts int `koanf:"max_attempts" validate:"gte=1,lte=100000"`
}

// OutputConfig selects where results are written.
type OutputConfig struct {
	Format    string `koanf:"format" validate:"oneof=stdout file both"`
	Path      string `koanf:"path" validate:"required_unless=Format stdout"`
	Pretty    bool   `koanf:"pretty"`
	MaxSize   int64  `koanf:"max_size" validate:"gte=0"` // bytes before the file rotates; 0 never
	Verbosity string `koanf:"verbosity" validate:"oneof=minimal full"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error off"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			ModelsDir:         "models",
			BundleDir:         "models/bundle",
			IntraOpThreads:    4,
			MissingCloseEarly: "zero",
		},
		Compare: CompareConfig{
			CorpusPath:   "data.json",
			Cap:          8,
			DiversityKey: "series",
		},
		IDs:    IDsConfig{MaxAttempts: 64},
		Output: OutputConfig{Format: "stdout", Verbosity: "minimal"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// Load layers defaults, the config file at path (or the one named by
// VOLCAST_CONFIG, or ./volcast.yaml), and the environment. An explicit path
// that does not exist is an error; a missing default file is not.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := Default()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load defaults: %w", err)
	}

	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config: %w", err)
		}
		return path, nil
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath, nil
	}
	return "", nil
}

// envKey maps VOLCAST_ENGINE_BUNDLE_DIR to engine.bundle_dir. Section names
// contain no underscores, so only the first one separates section from key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if s == "config" {
		return ""
	}
	return strings.Replace(s, "_", ".", 1)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %q (value %v)", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
}
