package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "MANGAS"

// Store persists Config as YAML. Reads go through viper so MANGAS_* env vars
// override file values.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns <user config dir>/mangas/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mangas", "config.yaml"), nil
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the config file. A missing file yields defaults; a corrupted one
// yields defaults together with the parse error so callers can log it.
func (s *Store) Load() (Config, error) {
	v := viperWithDefaults(Defaults())

	if _, err := os.Stat(s.path); err == nil {
		v.SetConfigFile(s.path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			// Keep env overrides but ignore the broken file.
			return s.fromViper(viperWithDefaults(Defaults())), fmt.Errorf("failed to read config %s: %w", s.path, err)
		}
	}

	return s.fromViper(v), nil
}

func viperWithDefaults(d Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("output_format", string(d.OutputFormat))
	v.SetDefault("keep_images", d.KeepImages)
	v.SetDefault("max_chapter_workers", d.MaxChapterWorkers)
	v.SetDefault("max_image_workers", d.MaxImageWorkers)
	v.SetDefault("retry_count", d.RetryCount)
	v.SetDefault("retry_delay_seconds", d.RetryDelaySeconds)
	return v
}

func (s *Store) fromViper(v *viper.Viper) Config {
	cfg := Config{
		OutputDir:         v.GetString("output_dir"),
		OutputFormat:      OutputFormat(v.GetString("output_format")),
		KeepImages:        v.GetBool("keep_images"),
		MaxChapterWorkers: v.GetInt("max_chapter_workers"),
		MaxImageWorkers:   v.GetInt("max_image_workers"),
		RetryCount:        v.GetInt("retry_count"),
		RetryDelaySeconds: v.GetFloat64("retry_delay_seconds"),
	}
	return cfg.Normalize()
}

// Save writes cfg atomically while holding an advisory lock on the file.
func (s *Store) Save(cfg Config) error {
	cfg = cfg.Normalize()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock config: %w", err)
	}
	defer lock.Unlock()

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}
