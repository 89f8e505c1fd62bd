package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettingsSettersClamp(t *testing.T) {
	s := NewSettings(Defaults())

	s.SetMaxImageWorkers(50)
	assert.Equal(t, 20, s.MaxImageWorkers())

	s.SetMaxImageWorkers(0)
	assert.Equal(t, 1, s.MaxImageWorkers())

	s.SetMaxChapterWorkers(11)
	assert.Equal(t, 10, s.MaxChapterWorkers())

	s.SetRetryCount(0)
	assert.Equal(t, 1, s.RetryCount())

	s.SetRetryCount(100)
	assert.Equal(t, 10, s.RetryCount())

	s.SetRetryDelaySeconds(0.1)
	assert.Equal(t, 0.5, s.RetryDelaySeconds())

	s.SetRetryDelaySeconds(3.3)
	assert.Equal(t, 3.5, s.RetryDelaySeconds())
}

func TestSettingsOutputFields(t *testing.T) {
	s := NewSettings(Defaults())

	s.SetOutputFormat("pdf")
	assert.Equal(t, FormatPDF, s.OutputFormat())

	s.SetOutputFormat("bogus")
	assert.Equal(t, FormatImages, s.OutputFormat())

	s.SetOutputDir("/tmp/manga")
	assert.Equal(t, "/tmp/manga", s.OutputDir())

	s.SetOutputDir("")
	assert.Equal(t, DefaultOutputDir, s.OutputDir())

	s.SetKeepImages(false)
	assert.False(t, s.KeepImages())
}

func TestSettingsSnapshotIsACopy(t *testing.T) {
	s := NewSettings(Defaults())
	snap := s.Snapshot()

	s.SetMaxChapterWorkers(7)

	assert.Equal(t, DefaultMaxChapterWorkers, snap.MaxChapterWorkers)
	assert.Equal(t, 7, s.Snapshot().MaxChapterWorkers)
}

func TestNewSettingsNormalizes(t *testing.T) {
	s := NewSettings(Config{MaxImageWorkers: 99, RetryCount: 3, RetryDelaySeconds: 2})
	assert.Equal(t, 20, s.MaxImageWorkers())
	assert.Equal(t, 1, s.MaxChapterWorkers())
}

func TestSettingsConcurrentAccess(t *testing.T) {
	s := NewSettings(Defaults())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.SetMaxImageWorkers(n)
		}(i)
		go func() {
			defer wg.Done()
			v := s.MaxImageWorkers()
			assert.GreaterOrEqual(t, v, MinImageWorkers)
			assert.LessOrEqual(t, v, MaxImageWorkers)
		}()
	}
	wg.Wait()
}
