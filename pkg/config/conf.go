package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/advscorer/pkg/score"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600

	// DefaultLogLevel is used when the config file does not set one.
	DefaultLogLevel = "info"
)

// Config represents app config object.
type Config struct {
	Params   score.Params `yaml:"params"`
	Workers  int          `yaml:"workers"`
	LogLevel string       `yaml:"log_level"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		Params:   score.DefaultParams(),
		Workers:  0,
		LogLevel: DefaultLogLevel,
	}
}

// Path returns the config file path inside dirPath.
func Path(dirPath string) string {
	return filepath.Join(dirPath, configFileName)
}

// Save writes c to the config file in dirPath.
func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(Path(dirPath), b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file: %s: %w", configFileName, err)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one.
// Values missing from the file keep their defaults; explicit zeros are kept.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dirPath, dirMode); err != nil {
			return nil, fmt.Errorf("failed to create dir: %s: %w", dirPath, err)
		}
	}

	path := Path(dirPath)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %s: %w", path, err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file: %s: %w", path, err)
	}
	c.LogLevel = strings.TrimSpace(c.LogLevel)
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	if changes := Changes(Default(), c); len(changes) > 0 {
		slog.Debug("params differ from defaults", "changes", changes)
	}

	return c, nil
}

// Changes lists the params of c that differ from base, zero values included.
func Changes(base, c *Config) []string {
	if base == nil || c == nil {
		return nil
	}

	var changes []string
	diff := func(name string, from, to float32) {
		if math.Float32bits(from) != math.Float32bits(to) {
			changes = append(changes, fmt.Sprintf("%s: %g -> %g", name, from, to))
		}
	}

	b, p := base.Params, c.Params
	diff("min_score", b.MinScore, p.MinScore)
	diff("max_score", b.MaxScore, p.MaxScore)
	diff("min_adv_weight", b.MinAdvWeight, p.MinAdvWeight)
	diff("no_adv_score", b.NoAdvScore, p.NoAdvScore)
	diff("min_adv_boost", b.MinAdvBoost, p.MinAdvBoost)
	diff("max_adv_boost", b.MaxAdvBoost, p.MaxAdvBoost)
	diff("slope", b.Slope, p.Slope)
	diff("intercept", b.Intercept, p.Intercept)

	return changes
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}
	slog.Debug("home dir", "path", home)

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir: %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
