package integrations

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/kerbaras/mangadl/pkg/config"
	"github.com/kerbaras/mangadl/pkg/data"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 128})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func testJob(t *testing.T, format config.OutputFormat, keep bool, pages ...[]byte) Job {
	t.Helper()
	cfg := config.Defaults()
	cfg.OutputDir = t.TempDir()
	cfg.OutputFormat = format
	cfg.KeepImages = keep
	return Job{
		Manga:   &data.Manga{ID: "m1", Title: "Solo: Leveling", Description: "Hunters", URL: "https://example.com/m1"},
		Chapter: data.ChapterMeta{ID: "c1", Title: "Chapter 1", Number: "1", Volume: "1"},
		Pages:   pages,
		Config:  cfg,
	}
}
