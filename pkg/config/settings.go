package config

import (
	"strings"
	"sync"
)

// Settings is the live, concurrently readable configuration exposed to the
// presentation layer. Writes go through clamping setters.
type Settings struct {
	mu  sync.RWMutex
	cfg Config
}

func NewSettings(cfg Config) *Settings {
	return &Settings{cfg: cfg.Normalize()}
}

// Snapshot returns a copy of the current configuration.
func (s *Settings) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Replace swaps the whole configuration, normalizing it first.
func (s *Settings) Replace(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg.Normalize()
	s.mu.Unlock()
}

func (s *Settings) update(fn func(c *Config)) {
	s.mu.Lock()
	fn(&s.cfg)
	s.mu.Unlock()
}

func (s *Settings) OutputDir() string { return s.Snapshot().OutputDir }
func (s *Settings) OutputFormat() OutputFormat { return s.Snapshot().OutputFormat }
func (s *Settings) KeepImages() bool { return s.Snapshot().KeepImages }
func (s *Settings) MaxChapterWorkers() int { return s.Snapshot().MaxChapterWorkers }
func (s *Settings) MaxImageWorkers() int { return s.Snapshot().MaxImageWorkers }
func (s *Settings) RetryCount() int { return s.Snapshot().RetryCount }
func (s *Settings) RetryDelaySeconds() float64 { return s.Snapshot().RetryDelaySeconds }

func (s *Settings) SetOutputDir(dir string) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = DefaultOutputDir
	}
	s.update(func(c *Config) { c.OutputDir = dir })
}

// SetOutputFormat accepts any string; unknown formats fall back to images.
func (s *Settings) SetOutputFormat(format string) {
	f, _ := ParseOutputFormat(format)
	s.update(func(c *Config) { c.OutputFormat = f })
}

func (s *Settings) SetKeepImages(keep bool) {
	s.update(func(c *Config) { c.KeepImages = keep })
}

func (s *Settings) SetMaxChapterWorkers(n int) {
	n = ClampInt(n, MinChapterWorkers, MaxChapterWorkers)
	s.update(func(c *Config) { c.MaxChapterWorkers = n })
}

func (s *Settings) SetMaxImageWorkers(n int) {
	n = ClampInt(n, MinImageWorkers, MaxImageWorkers)
	s.update(func(c *Config) { c.MaxImageWorkers = n })
}

func (s *Settings) SetRetryCount(n int) {
	n = ClampInt(n, MinRetryCount, MaxRetryCount)
	s.update(func(c *Config) { c.RetryCount = n })
}

func (s *Settings) SetRetryDelaySeconds(seconds float64) {
	seconds = ClampRetryDelay(seconds)
	s.update(func(c *Config) { c.RetryDelaySeconds = seconds })
}
