package integrations

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/kerbaras/mangadl/pkg/config"
	"github.com/kerbaras/mangadl/pkg/data"
)

type encoder func(w io.Writer, job Job) error

var encoders = map[config.OutputFormat]encoder{
	config.FormatPDF:  encodePDF,
	config.FormatCBZ:  encodeCBZ,
	config.FormatEPUB: encodeEPUB,
}

// ChapterDir is outputDir/<manga title>/<chapter title>, both sanitized.
func ChapterDir(outputDir string, manga *data.Manga, chapter data.ChapterMeta) string {
	mangaTitle := ""
	if manga != nil {
		mangaTitle = manga.Title
	}
	return filepath.Join(outputDir, SanitizeFilename(mangaTitle), SanitizeFilename(chapter.DisplayTitle()))
}

// ArchivePath is where an archive format publishes the chapter.
func ArchivePath(dir string, chapter data.ChapterMeta, format config.OutputFormat) string {
	return filepath.Join(dir, SanitizeFilename(chapter.DisplayTitle())+"."+string(format))
}

// ChapterProcessor writes pages to the chapter directory and, for archive
// formats, bundles them into a single file published atomically.
type ChapterProcessor struct{}

func NewChapterProcessor() *ChapterProcessor {
	return &ChapterProcessor{}
}

func (p *ChapterProcessor) Process(ctx context.Context, job Job) (Result, error) {
	cfg := job.Config.Normalize()
	if len(job.Pages) == 0 {
		return Result{}, &EncodingError{Format: string(cfg.OutputFormat), Err: errors.New("chapter has no pages")}
	}

	dir := ChapterDir(cfg.OutputDir, job.Manga, job.Chapter)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Result{}, &IOError{Path: dir, Err: err}
	}
	res := Result{Dir: dir}

	for i, page := range job.Pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		path := filepath.Join(dir, PageFilename(i, page))
		if err := publish(path, writeBytes(path, page)); err != nil {
			return res, err
		}
		res.Images = append(res.Images, path)
	}
	if err := pruneStaleImages(dir, res.Images); err != nil {
		return res, err
	}

	if !cfg.OutputFormat.Archive() {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	encode := encoders[cfg.OutputFormat]
	archive := ArchivePath(dir, job.Chapter, cfg.OutputFormat)
	if err := publish(archive, func(w io.Writer) error { return encode(w, job) }); err != nil {
		return res, err
	}
	res.ArchivePath = archive

	if !cfg.KeepImages {
		for _, path := range res.Images {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return res, &IOError{Path: path, Err: err}
			}
		}
		res.Images = nil
	}

	return res, nil
}

// pruneStaleImages removes page files in dir left by an earlier download of
// the same chapter that are not part of current.
func pruneStaleImages(dir string, current []string) error {
	found, err := ListImages(dir)
	if err != nil {
		return &IOError{Path: dir, Err: err}
	}
	for _, path := range found {
		if slices.Contains(current, path) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return &IOError{Path: path, Err: err}
		}
	}
	return nil
}

// ListImages returns the page files present in dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && isImageFile(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}
