package integrations

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kerbaras/mangadl/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestProcessImages(t *testing.T) {
	job := testJob(t, config.FormatImages, true, testPNG(t, 2, 2), testJPEG(t, 3, 3))

	res, err := NewChapterProcessor().Process(context.Background(), job)
	require.NoError(t, err)

	wantDir := filepath.Join(job.Config.OutputDir, "Solo_ Leveling", "Chapter 1")
	assert.Equal(t, wantDir, res.Dir)
	assert.Empty(t, res.ArchivePath)
	assert.Equal(t, []string{"001.png", "002.jpg"}, dirEntries(t, wantDir))

	got, err := os.ReadFile(filepath.Join(wantDir, "001.png"))
	require.NoError(t, err)
	assert.Equal(t, job.Pages[0], got)
}

func TestProcessCBZWithoutKeepingImages(t *testing.T) {
	job := testJob(t, config.FormatCBZ, false, testPNG(t, 2, 2), testPNG(t, 4, 1))

	res, err := NewChapterProcessor().Process(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, []string{"Chapter 1.cbz"}, dirEntries(t, res.Dir))
	assert.Empty(t, res.Images)

	zr, err := zip.OpenReader(res.ArchivePath)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"ComicInfo.xml", "001.png", "002.png"}, names)
}

func TestProcessCBZKeepingImages(t *testing.T) {
	job := testJob(t, config.FormatCBZ, true, testPNG(t, 2, 2))

	res, err := NewChapterProcessor().Process(context.Background(), job)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"001.png", "Chapter 1.cbz"}, dirEntries(t, res.Dir))
	assert.Len(t, res.Images, 1)
}

func TestProcessPDF(t *testing.T) {
	job := testJob(t, config.FormatPDF, false, testPNG(t, 10, 20), testJPEG(t, 30, 10))

	res, err := NewChapterProcessor().Process(context.Background(), job)
	require.NoError(t, err)

	content, err := os.ReadFile(res.ArchivePath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")), "not a PDF")
	assert.Equal(t, []string{"Chapter 1.pdf"}, dirEntries(t, res.Dir))
}

func TestProcessEPUB(t *testing.T) {
	job := testJob(t, config.FormatEPUB, false, testPNG(t, 2, 2))

	res, err := NewChapterProcessor().Process(context.Background(), job)
	require.NoError(t, err)

	zr, err := zip.OpenReader(res.ArchivePath)
	require.NoError(t, err)
	defer zr.Close()
	require.NotEmpty(t, zr.File)
	assert.Equal(t, "mimetype", zr.File[0].Name)
}

func TestProcessCorruptPageLeavesNoArchive(t *testing.T) {
	for _, format := range []config.OutputFormat{config.FormatCBZ, config.FormatPDF, config.FormatEPUB} {
		t.Run(string(format), func(t *testing.T) {
			job := testJob(t, format, false, testPNG(t, 2, 2), []byte("definitely not an image"))

			res, err := NewChapterProcessor().Process(context.Background(), job)
			require.Error(t, err)

			var encErr *EncodingError
			assert.True(t, errors.As(err, &encErr), "expected EncodingError, got %T: %v", err, err)

			for _, name := range dirEntries(t, res.Dir) {
				assert.False(t, strings.HasSuffix(name, "."+string(format)), "archive %s published", name)
				assert.NotContains(t, name, ".tmp-", "temp file %s left behind", name)
			}
			// Source images stay when encoding fails.
			assert.Contains(t, dirEntries(t, res.Dir), "001.png")
		})
	}
}

func TestProcessNoPages(t *testing.T) {
	job := testJob(t, config.FormatImages, true)

	_, err := NewChapterProcessor().Process(context.Background(), job)

	var encErr *EncodingError
	assert.True(t, errors.As(err, &encErr))
}

func TestProcessUnwritableOutput(t *testing.T) {
	job := testJob(t, config.FormatImages, true, testPNG(t, 1, 1))
	blocker := filepath.Join(job.Config.OutputDir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	job.Config.OutputDir = blocker

	_, err := NewChapterProcessor().Process(context.Background(), job)

	var ioErr *IOError
	assert.True(t, errors.As(err, &ioErr), "expected IOError, got %v", err)
}

func TestProcessCancelled(t *testing.T) {
	job := testJob(t, config.FormatCBZ, true, testPNG(t, 1, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChapterProcessor().Process(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessRemovesStalePages(t *testing.T) {
	job := testJob(t, config.FormatImages, true, testPNG(t, 2, 2), testPNG(t, 2, 2))
	dir := ChapterDir(job.Config.OutputDir, job.Manga, job.Chapter)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range []string{"001.jpg", "002.png", "003.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("old"), 0644))
	}

	res, err := NewChapterProcessor().Process(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "001.png"), filepath.Join(dir, "002.png")}, res.Images)
	assert.Equal(t, []string{"001.png", "002.png", "notes.txt"}, dirEntries(t, dir))

	got, err := os.ReadFile(filepath.Join(dir, "002.png"))
	require.NoError(t, err)
	assert.Equal(t, job.Pages[1], got)
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002.png", "001.jpg", "ComicInfo.xml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	images, err := ListImages(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "001.jpg"), filepath.Join(dir, "002.png")}, images)
}
