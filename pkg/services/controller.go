package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/sources"
)

// DownloadOptions selects chapters of a manga. Empty options select every
// chapter.
type DownloadOptions struct {
	// ChapterRange is a comma separated list of chapter numbers or
	// inclusive ranges, e.g. "1-3,5,7.5".
	ChapterRange string
	ChapterIDs   []string
	// Indices are positions in the chapter list and win over the other
	// filters.
	Indices []int
	// SkipDownloaded drops chapters the history already has as done.
	SkipDownloaded bool
}

// DownloadedChecker reports whether a chapter was already downloaded.
type DownloadedChecker interface {
	Downloaded(chapterID string) (bool, error)
}

// MangaController resolves mangas from the source and hands selections to
// the orchestrator.
type MangaController struct {
	source       sources.Source
	orchestrator *Orchestrator
	history      DownloadedChecker
	logger       *slog.Logger
}

func NewMangaController(source sources.Source, orchestrator *Orchestrator, history DownloadedChecker) *MangaController {
	return &MangaController{
		source:       source,
		orchestrator: orchestrator,
		history:      history,
		logger:       orchestrator.logger,
	}
}

func (c *MangaController) SearchManga(ctx context.Context, query string) ([]data.Manga, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	return c.source.Search(ctx, query)
}

func (c *MangaController) GetManga(ctx context.Context, id string) (*data.Manga, error) {
	manga, err := c.source.FetchManga(ctx, id)
	if err != nil {
		return nil, &FetchError{Op: "manga", ChapterID: id, Page: -1, Err: err}
	}
	return manga, nil
}

// Download fetches the manga and starts a session for the selected chapters.
func (c *MangaController) Download(ctx context.Context, mangaID string, options DownloadOptions) (*data.Manga, string, error) {
	manga, err := c.GetManga(ctx, mangaID)
	if err != nil {
		return nil, "", err
	}
	indices, err := c.SelectChapters(manga, options)
	if err != nil {
		return manga, "", err
	}
	id, err := c.orchestrator.StartDownload(manga, indices)
	return manga, id, err
}

// SelectChapters turns options into indices into manga.Chapters.
func (c *MangaController) SelectChapters(manga *data.Manga, options DownloadOptions) ([]int, error) {
	if manga == nil {
		return nil, fmt.Errorf("manga cannot be nil")
	}
	if len(options.Indices) > 0 {
		return options.Indices, nil
	}

	indices, err := filterChapters(manga.Chapters, options)
	if err != nil {
		return nil, err
	}

	if options.SkipDownloaded && c.history != nil {
		kept := indices[:0]
		for _, i := range indices {
			done, err := c.history.Downloaded(manga.Chapters[i].ID)
			if err != nil {
				c.logger.Warn("history lookup failed", "chapter", manga.Chapters[i].ID, "error", err)
			}
			if !done {
				kept = append(kept, i)
			}
		}
		indices = kept
	}
	return indices, nil
}

func filterChapters(chapters []data.ChapterMeta, options DownloadOptions) ([]int, error) {
	match := func(data.ChapterMeta) bool { return true }

	if len(options.ChapterIDs) > 0 {
		match = func(ch data.ChapterMeta) bool { return slices.Contains(options.ChapterIDs, ch.ID) }
	} else if strings.TrimSpace(options.ChapterRange) != "" {
		ranges, err := parseRanges(options.ChapterRange)
		if err != nil {
			return nil, err
		}
		match = func(ch data.ChapterMeta) bool {
			n, err := strconv.ParseFloat(ch.Number, 64)
			if err != nil {
				return false
			}
			for _, r := range ranges {
				if n >= r[0] && n <= r[1] {
					return true
				}
			}
			return false
		}
	}

	var out []int
	for i, ch := range chapters {
		if match(ch) {
			out = append(out, i)
		}
	}
	return out, nil
}

func parseRanges(s string) ([][2]float64, error) {
	var out [][2]float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chapter range %q", part)
		}
		end := start
		if isRange {
			end, err = strconv.ParseFloat(strings.TrimSpace(hi), 64)
			if err != nil || end < start {
				return nil, fmt.Errorf("invalid chapter range %q", part)
			}
		}
		out = append(out, [2]float64{start, end})
	}
	return out, nil
}
