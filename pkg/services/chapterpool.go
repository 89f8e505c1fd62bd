package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/integrations"
	"github.com/kerbaras/mangadl/pkg/metrics"
	"github.com/kerbaras/mangadl/pkg/retry"
	"github.com/kerbaras/mangadl/pkg/sources"
	"golang.org/x/sync/errgroup"
)

// ChapterOutcome is the terminal result of one chapter task.
type ChapterOutcome struct {
	Chapter  data.ChapterMeta
	Success  bool
	Started  bool
	Path     string
	Err      error
	Duration time.Duration
}

// chapterReporter receives a chapter task's milestones. finished is called
// exactly once per selected chapter.
type chapterReporter interface {
	started(ch data.ChapterMeta)
	pagesResolved(ch data.ChapterMeta, pages int)
	pageDone(ch data.ChapterMeta, done, pages int)
	processing(ch data.ChapterMeta)
	finished(out ChapterOutcome)
}

// ChapterPool drives chapters end to end: page index, pages, post-processing.
type ChapterPool struct {
	source    sources.Source
	images    *ImagePool
	processor integrations.Processor
	policy    retry.Policy
	sleep     retry.Sleeper
	workers   int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewChapterPool(source sources.Source, images *ImagePool, processor integrations.Processor, workers int, policy retry.Policy, sleep retry.Sleeper, logger *slog.Logger, m *metrics.Metrics) *ChapterPool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChapterPool{
		source:    source,
		images:    images,
		processor: processor,
		policy:    policy,
		sleep:     sleep,
		workers:   workers,
		logger:    logger,
		metrics:   m,
	}
}

// Run admits the session's chapters in selection order, at most workers at a
// time, and returns when every chapter has been reported. Chapter failures
// never stop siblings.
func (p *ChapterPool) Run(ctx context.Context, s *DownloadSession, r chapterReporter) {
	var g errgroup.Group
	g.SetLimit(p.workers)

	for _, ch := range s.Chapters {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			p.runChapter(ctx, s, ch, r)
			return nil
		})
	}
	g.Wait()

	// Chapters never admitted because of cancellation.
	for _, ch := range s.pending() {
		r.finished(ChapterOutcome{Chapter: ch, Err: ErrCancelled})
	}
}

func (p *ChapterPool) runChapter(ctx context.Context, s *DownloadSession, ch data.ChapterMeta, r chapterReporter) {
	start := time.Now()
	out := ChapterOutcome{Chapter: ch}
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("chapter task panicked", "chapter", ch.ID, "panic", rec)
			out.Success = false
			out.Err = fmt.Errorf("chapter task panicked: %v", rec)
		}
		if out.Started {
			p.forget(ch.ID)
		}
		out.Duration = time.Since(start)
		r.finished(out)
	}()

	if ctx.Err() != nil {
		out.Err = ErrCancelled
		return
	}
	r.started(ch)
	out.Started = true

	pages, err := p.fetchPageIndex(ctx, ch)
	if err != nil {
		out.Err = cancelled(ctx, err)
		return
	}
	ch.PageCount = pages
	out.Chapter = ch
	r.pagesResolved(ch, pages)

	images := make([][]byte, pages)
	var pageErr error
	done := 0
	for res := range p.images.FetchPages(ctx, ch.ID, pages) {
		done++
		if res.Err != nil {
			if pageErr == nil {
				pageErr = res.Err
			}
			p.logger.Error("page failed", "chapter", ch.ID, "page", res.Index, "error", res.Err)
		} else {
			images[res.Index] = res.Data
		}
		r.pageDone(ch, done, pages)
	}

	if ctx.Err() != nil {
		out.Err = ErrCancelled
		return
	}
	if pageErr != nil {
		out.Err = pageErr
		return
	}

	r.processing(ch)
	result, err := p.processor.Process(ctx, integrations.Job{
		Manga:   s.Manga,
		Chapter: ch,
		Pages:   images,
		Config:  s.Config,
	})
	if err != nil {
		out.Err = cancelled(ctx, err)
		return
	}

	out.Success = true
	out.Path = result.Dir
	if result.ArchivePath != "" {
		out.Path = result.ArchivePath
	}
}

func (p *ChapterPool) fetchPageIndex(ctx context.Context, ch data.ChapterMeta) (int, error) {
	onRetry := func(attempt int, err error, delay time.Duration) {
		p.metrics.Retry("index")
		p.logger.Warn("page index fetch failed, retrying",
			"chapter", ch.ID, "attempt", attempt, "delay", delay, "error", err)
	}

	pages, err := retry.Do(ctx, p.policy, p.sleep, onRetry, func(ctx context.Context, attempt int) (int, error) {
		n, err := p.source.FetchPageIndex(ctx, ch)
		if err != nil {
			return 0, &FetchError{Op: "page index", ChapterID: ch.ID, Page: -1, Err: err}
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	if pages <= 0 {
		return 0, &FetchError{Op: "page index", ChapterID: ch.ID, Page: -1, Err: errors.New("chapter has no pages")}
	}
	return pages, nil
}

// forget releases per-chapter state the source keeps, if any.
func (p *ChapterPool) forget(chapterID string) {
	if f, ok := p.source.(sources.Forgetter); ok {
		f.Forget(chapterID)
	}
}

// cancelled maps any error observed after cancellation to ErrCancelled.
func cancelled(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return err
}
