package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/metrics"
	"github.com/kerbaras/mangadl/pkg/retry"
	"github.com/kerbaras/mangadl/pkg/sources"
	"golang.org/x/sync/semaphore"
)

// ImagePool fetches pages for every chapter of a session. Its weighted
// semaphore bounds in-flight fetches across all chapters, not per chapter.
type ImagePool struct {
	source  sources.Source
	slots   *semaphore.Weighted
	policy  retry.Policy
	sleep   retry.Sleeper
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewImagePool(source sources.Source, workers int, policy retry.Policy, sleep retry.Sleeper, logger *slog.Logger, m *metrics.Metrics) *ImagePool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImagePool{
		source:  source,
		slots:   semaphore.NewWeighted(int64(workers)),
		policy:  policy,
		sleep:   sleep,
		logger:  logger,
		metrics: m,
	}
}

// FetchPages returns the chapter's pages in index order. Pages are fetched
// concurrently as slots allow; a page that exhausts its retries yields a
// failed result without stopping the others. Breaking out of the loop
// cancels outstanding fetches and waits for them.
func (p *ImagePool) FetchPages(ctx context.Context, chapterID string, pageCount int) iter.Seq[data.PageResult] {
	return func(yield func(data.PageResult) bool) {
		ctx, cancel := context.WithCancel(ctx)
		var wg sync.WaitGroup
		defer func() {
			cancel()
			wg.Wait()
		}()

		results := make([]chan data.PageResult, pageCount)
		for i := range pageCount {
			results[i] = make(chan data.PageResult, 1)
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] <- p.fetchPage(ctx, chapterID, i)
			}()
		}

		for i := range pageCount {
			if !yield(<-results[i]) {
				return
			}
		}
	}
}

func (p *ImagePool) fetchPage(ctx context.Context, chapterID string, index int) (res data.PageResult) {
	res.Index = index
	defer func() {
		if r := recover(); r != nil {
			res.Data = nil
			res.Err = fmt.Errorf("page %d fetch panicked: %v", index, r)
		}
		p.metrics.PageFetched(res.Err == nil)
	}()

	onRetry := func(attempt int, err error, delay time.Duration) {
		p.metrics.Retry("image")
		p.logger.Warn("page fetch failed, retrying",
			"chapter", chapterID, "page", index, "attempt", attempt, "delay", delay, "error", err)
	}

	res.Data, res.Err = retry.Do(ctx, p.policy, p.sleep, onRetry, func(ctx context.Context, attempt int) ([]byte, error) {
		if err := p.slots.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer p.slots.Release(1)
		p.metrics.FetchStarted()
		defer p.metrics.FetchDone()

		content, err := p.source.FetchImage(ctx, chapterID, index)
		if err == nil && len(content) == 0 {
			err = errors.New("empty response")
		}
		if err != nil {
			return nil, &FetchError{Op: "page", ChapterID: chapterID, Page: index, Err: err}
		}
		return content, nil
	})
	return res
}
