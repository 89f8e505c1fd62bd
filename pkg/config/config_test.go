package config

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, "./downloads", d.OutputDir)
	assert.Equal(t, FormatImages, d.OutputFormat)
	assert.True(t, d.KeepImages)
	assert.Equal(t, 3, d.MaxChapterWorkers)
	assert.Equal(t, 5, d.MaxImageWorkers)
	assert.Equal(t, 3, d.RetryCount)
	assert.Equal(t, 2.0, d.RetryDelaySeconds)
	assert.Equal(t, d, d.Normalize())
}

func TestNormalizeClampsEveryField(t *testing.T) {
	cfg := Config{
		OutputDir:         "  ",
		OutputFormat:      "tiff",
		MaxChapterWorkers: 0,
		MaxImageWorkers:   50,
		RetryCount:        -3,
		RetryDelaySeconds: 42,
	}.Normalize()

	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, FormatImages, cfg.OutputFormat)
	assert.Equal(t, MinChapterWorkers, cfg.MaxChapterWorkers)
	assert.Equal(t, MaxImageWorkers, cfg.MaxImageWorkers)
	assert.Equal(t, MinRetryCount, cfg.RetryCount)
	assert.Equal(t, MaxRetryDelay, cfg.RetryDelaySeconds)
}

func TestClampRetryDelay(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0.5},
		{-1, 0.5},
		{0.5, 0.5},
		{0.7, 0.5},
		{0.8, 1.0},
		{2.25, 2.5},
		{9.9, 10},
		{11, 10},
		{math.NaN(), 0.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampRetryDelay(tt.in), "input %v", tt.in)
	}
}

func TestParseOutputFormat(t *testing.T) {
	f, ok := ParseOutputFormat(" CBZ ")
	assert.True(t, ok)
	assert.Equal(t, FormatCBZ, f)

	f, ok = ParseOutputFormat("docx")
	assert.False(t, ok)
	assert.Equal(t, FormatImages, f)

	assert.True(t, FormatPDF.Archive())
	assert.True(t, FormatEPUB.Archive())
	assert.False(t, FormatImages.Archive())
}

func TestRetryDelayDuration(t *testing.T) {
	cfg := Defaults()
	cfg.RetryDelaySeconds = 1.5
	assert.Equal(t, 1500*time.Millisecond, cfg.RetryDelay())
}
