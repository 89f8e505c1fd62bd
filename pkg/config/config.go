// Package config holds user download settings. Every numeric field is clamped
// to its documented range when it is written, so readers never see an
// out-of-range value.
package config

import (
	"math"
	"strings"
	"time"
)

type OutputFormat string

const (
	FormatImages OutputFormat = "images"
	FormatPDF    OutputFormat = "pdf"
	FormatCBZ    OutputFormat = "cbz"
	FormatEPUB   OutputFormat = "epub"
)

// Formats lists every accepted output format.
var Formats = []OutputFormat{FormatImages, FormatPDF, FormatCBZ, FormatEPUB}

// Archive reports whether the format bundles a chapter into a single file.
func (f OutputFormat) Archive() bool {
	return f == FormatPDF || f == FormatCBZ || f == FormatEPUB
}

// ParseOutputFormat matches s case-insensitively against Formats.
func ParseOutputFormat(s string) (OutputFormat, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, f := range Formats {
		if string(f) == s {
			return f, true
		}
	}
	return FormatImages, false
}

const (
	MinChapterWorkers = 1
	MaxChapterWorkers = 10
	MinImageWorkers   = 1
	MaxImageWorkers   = 20
	MinRetryCount     = 1
	MaxRetryCount     = 10
	MinRetryDelay     = 0.5
	MaxRetryDelay     = 10.0
	RetryDelayStep    = 0.5
)

const (
	DefaultOutputDir         = "./downloads"
	DefaultOutputFormat      = FormatImages
	DefaultKeepImages        = true
	DefaultMaxChapterWorkers = 3
	DefaultMaxImageWorkers   = 5
	DefaultRetryCount        = 3
	DefaultRetryDelay        = 2.0
)

type Config struct {
	OutputDir         string       `yaml:"output_dir"`
	OutputFormat      OutputFormat `yaml:"output_format"`
	KeepImages        bool         `yaml:"keep_images"`
	MaxChapterWorkers int          `yaml:"max_chapter_workers"`
	MaxImageWorkers   int          `yaml:"max_image_workers"`
	RetryCount        int          `yaml:"retry_count"`
	RetryDelaySeconds float64      `yaml:"retry_delay_seconds"`
}

func Defaults() Config {
	return Config{
		OutputDir:         DefaultOutputDir,
		OutputFormat:      DefaultOutputFormat,
		KeepImages:        DefaultKeepImages,
		MaxChapterWorkers: DefaultMaxChapterWorkers,
		MaxImageWorkers:   DefaultMaxImageWorkers,
		RetryCount:        DefaultRetryCount,
		RetryDelaySeconds: DefaultRetryDelay,
	}
}

// Normalize returns a copy of c with every field forced into range.
func (c Config) Normalize() Config {
	if strings.TrimSpace(c.OutputDir) == "" {
		c.OutputDir = DefaultOutputDir
	}
	c.OutputFormat, _ = ParseOutputFormat(string(c.OutputFormat))
	c.MaxChapterWorkers = ClampInt(c.MaxChapterWorkers, MinChapterWorkers, MaxChapterWorkers)
	c.MaxImageWorkers = ClampInt(c.MaxImageWorkers, MinImageWorkers, MaxImageWorkers)
	c.RetryCount = ClampInt(c.RetryCount, MinRetryCount, MaxRetryCount)
	c.RetryDelaySeconds = ClampRetryDelay(c.RetryDelaySeconds)
	return c
}

// RetryDelay is RetryDelaySeconds as a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampRetryDelay clamps seconds to [MinRetryDelay, MaxRetryDelay] and snaps
// it to the nearest RetryDelayStep.
func ClampRetryDelay(seconds float64) float64 {
	if math.IsNaN(seconds) || seconds < MinRetryDelay {
		return MinRetryDelay
	}
	if seconds > MaxRetryDelay {
		return MaxRetryDelay
	}
	return math.Round(seconds/RetryDelayStep) * RetryDelayStep
}
