package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kerbaras/mangadl/pkg/config"
	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/integrations"
	"github.com/kerbaras/mangadl/pkg/metrics"
	"github.com/kerbaras/mangadl/pkg/retry"
	"github.com/kerbaras/mangadl/pkg/sources"
)

// ConfigStore persists configuration for SaveConfig.
type ConfigStore interface {
	Save(cfg config.Config) error
}

// HistoryRecorder stores terminal chapter outcomes.
type HistoryRecorder interface {
	RecordChapter(rec data.DownloadRecord) error
}

type Option func(*Orchestrator)

func WithStore(store ConfigStore) Option {
	return func(o *Orchestrator) { o.store = store }
}

func WithHistory(history HistoryRecorder) Option {
	return func(o *Orchestrator) { o.history = history }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithEventHandler(handler EventHandler) Option {
	return func(o *Orchestrator) { o.handler = handler }
}

func WithProcessor(processor integrations.Processor) Option {
	return func(o *Orchestrator) {
		if processor != nil {
			o.processor = processor
		}
	}
}

// WithClock replaces the sleep used between retries.
func WithClock(sleep retry.Sleeper) Option {
	return func(o *Orchestrator) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// Orchestrator runs one download session at a time
type Orchestrator struct {
	source    sources.Source
	settings  *config.Settings
	store     ConfigStore
	history   HistoryRecorder
	processor integrations.Processor
	sleep     retry.Sleeper
	logger    *slog.Logger
	metrics   *metrics.Metrics
	handler   EventHandler

	mu      sync.Mutex
	session *DownloadSession

	emitMu sync.Mutex
}

func NewOrchestrator(source sources.Source, settings *config.Settings, opts ...Option) *Orchestrator {
	if settings == nil {
		settings = config.NewSettings(config.Defaults())
	}
	o := &Orchestrator{
		source:    source,
		settings:  settings,
		processor: integrations.NewChapterProcessor(),
		sleep:     retry.Sleep,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Settings is the live configuration. Writes apply to the next session.
func (o *Orchestrator) Settings() *config.Settings {
	return o.settings
}

func (o *Orchestrator) SaveConfig() error {
	if o.store == nil {
		return errors.New("no config store configured")
	}
	if err := o.store.Save(o.settings.Snapshot()); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// StartDownload validates the selection and starts a session in the
// background. Indices refer to manga.Chapters and are processed in the given
// order.
func (o *Orchestrator) StartDownload(manga *data.Manga, indices []int) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// A session stays active until its FinishedEvent has been delivered.
	if o.session != nil && !o.session.delivered() {
		return "", invalid(ErrSessionActive, "session %s is still running", o.session.ID)
	}
	if err := validateSelection(manga, indices); err != nil {
		return "", err
	}

	s := newSession(uuid.NewString(), manga, indices, o.settings.Snapshot())
	o.session = s
	go o.run(s)

	return s.ID, nil
}

func validateSelection(manga *data.Manga, indices []int) error {
	if manga == nil {
		return invalid(ErrNoChapters, "no manga given")
	}
	if len(indices) == 0 {
		return invalid(ErrNoChapters, "empty chapter selection")
	}

	seenIdx := make(map[int]bool, len(indices))
	seenID := make(map[string]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(manga.Chapters) {
			return invalid(ErrChapterOutOfRange, "index %d not in [0, %d)", i, len(manga.Chapters))
		}
		if seenIdx[i] {
			return invalid(ErrDuplicateChapter, "index %d selected twice", i)
		}
		id := manga.Chapters[i].ID
		if seenID[id] {
			return invalid(ErrDuplicateChapter, "chapter id %q selected twice", id)
		}
		seenIdx[i] = true
		seenID[id] = true
	}
	return nil
}

// CancelDownload cancels the active session and returns once every chapter
// task has stopped and FinishedEvent has been delivered. It is a no-op when
// no session is running.
func (o *Orchestrator) CancelDownload() {
	o.mu.Lock()
	s := o.session
	o.mu.Unlock()
	if s == nil {
		return
	}
	if s.requestCancel() {
		o.logger.Info("cancelling download", "session", s.ID)
	}
	<-s.done
}

// Wait blocks until the current session, if any, has finished.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	s := o.session
	o.mu.Unlock()
	if s != nil {
		<-s.done
	}
}

func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session != nil && !o.session.delivered()
}

// Snapshot copies the bookkeeping of the current or most recent session.
func (o *Orchestrator) Snapshot() SessionSnapshot {
	o.mu.Lock()
	s := o.session
	o.mu.Unlock()
	if s == nil {
		return SessionSnapshot{}
	}
	return s.Snapshot()
}

func (o *Orchestrator) run(s *DownloadSession) {
	defer close(s.done)
	defer s.cancel()

	logger := o.logger.With("session", s.ID)
	title := ""
	if s.Manga != nil {
		title = s.Manga.Title
	}
	logger.Info("download started", "manga", title, "chapters", s.Total(),
		"format", s.Config.OutputFormat, "chapter_workers", s.Config.MaxChapterWorkers,
		"image_workers", s.Config.MaxImageWorkers)

	o.emit(ProgressEvent{
		SessionID: s.ID,
		Total:     s.Total(),
		Status:    fmt.Sprintf("Starting download of %d chapter(s)", s.Total()),
	})

	policy := retry.FromConfig(s.Config)
	policy.Retryable = func(err error) bool {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	images := NewImagePool(o.source, s.Config.MaxImageWorkers, policy, o.sleep, logger, o.metrics)
	chapters := NewChapterPool(o.source, images, o.processor, s.Config.MaxChapterWorkers, policy, o.sleep, logger, o.metrics)
	chapters.Run(s.ctx, s, &sessionReporter{o: o, s: s, logger: logger})

	completed, failed, cancelled := s.markFinished()
	logger.Info("download finished", "successful", completed, "failed", failed, "cancelled", cancelled)
	o.emit(FinishedEvent{
		SessionID:  s.ID,
		Successful: completed,
		Failed:     failed,
		Cancelled:  cancelled,
	})
}

func (o *Orchestrator) emit(ev Event) {
	o.emitFunc(func() Event { return ev })
}

// emitFunc builds the event while holding the emit lock so counters read by
// build are never delivered out of order.
func (o *Orchestrator) emitFunc(build func() Event) {
	if o.handler == nil {
		return
	}
	o.emitMu.Lock()
	defer o.emitMu.Unlock()
	o.handler(build())
}

// sessionReporter turns chapter milestones into session bookkeeping and
// events.
type sessionReporter struct {
	o      *Orchestrator
	s      *DownloadSession
	logger *slog.Logger
}

func (r *sessionReporter) progress(ch data.ChapterMeta, page, pages int, status string) {
	r.o.emitFunc(func() Event {
		return ProgressEvent{
			SessionID:    r.s.ID,
			Current:      r.s.terminal(),
			Total:        r.s.Total(),
			Status:       status,
			ChapterTitle: ch.DisplayTitle(),
			Page:         page,
			Pages:        pages,
		}
	})
}

func (r *sessionReporter) started(ch data.ChapterMeta) {
	if err := r.s.begin(ch.ID); err != nil {
		r.logger.Error("chapter state", "chapter", ch.ID, "error", err)
		return
	}
	r.logger.Debug("chapter started", "chapter", ch.ID, "title", ch.DisplayTitle())
	r.progress(ch, 0, 0, fmt.Sprintf("Downloading %s", ch.DisplayTitle()))
}

func (r *sessionReporter) pagesResolved(ch data.ChapterMeta, pages int) {
	r.progress(ch, 0, pages, fmt.Sprintf("%s: %d page(s)", ch.DisplayTitle(), pages))
}

func (r *sessionReporter) pageDone(ch data.ChapterMeta, done, pages int) {
	r.progress(ch, done, pages, fmt.Sprintf("%s: page %d/%d", ch.DisplayTitle(), done, pages))
}

func (r *sessionReporter) processing(ch data.ChapterMeta) {
	r.progress(ch, ch.PageCount, ch.PageCount,
		fmt.Sprintf("%s: writing %s", ch.DisplayTitle(), r.s.Config.OutputFormat))
}

func (r *sessionReporter) finished(out ChapterOutcome) {
	ch := out.Chapter
	if err := r.s.finish(ch.ID, out.Success); err != nil {
		if !out.Success || r.s.finish(ch.ID, false) != nil {
			// Already terminal: its completion has been reported.
			r.logger.Error("chapter state", "chapter", ch.ID, "error", err)
			return
		}
		r.logger.Error("chapter state, marking failed", "chapter", ch.ID, "error", err)
		out.Success = false
		out.Err = err
	}

	status := data.StatusDone
	if out.Success {
		r.logger.Info("chapter done", "chapter", ch.ID, "title", ch.DisplayTitle(), "path", out.Path)
	} else {
		status = data.StatusFailed
		r.logger.Error("chapter failed", "chapter", ch.ID, "title", ch.DisplayTitle(),
			"kind", ErrorKind(out.Err), "error", out.Err)
	}
	r.o.metrics.ChapterFinished(status.String(), out.Duration)
	r.record(out, status)

	r.o.emit(ChapterCompleteEvent{
		SessionID: r.s.ID,
		ChapterID: ch.ID,
		Title:     ch.DisplayTitle(),
		Success:   out.Success,
		Err:       out.Err,
	})

	text := fmt.Sprintf("Finished %s", ch.DisplayTitle())
	if !out.Success {
		text = fmt.Sprintf("Failed %s", ch.DisplayTitle())
	}
	r.progress(ch, ch.PageCount, ch.PageCount, text)
}

func (r *sessionReporter) record(out ChapterOutcome, status data.ChapterStatus) {
	if r.o.history == nil {
		return
	}
	rec := data.DownloadRecord{
		SessionID:    r.s.ID,
		ChapterID:    out.Chapter.ID,
		ChapterTitle: out.Chapter.DisplayTitle(),
		Status:       status,
		OutputPath:   out.Path,
		Pages:        out.Chapter.PageCount,
		FinishedAt:   time.Now(),
	}
	if r.s.Manga != nil {
		rec.MangaID = r.s.Manga.ID
		rec.MangaTitle = r.s.Manga.Title
	}
	if out.Err != nil {
		rec.Error = out.Err.Error()
	}
	if err := r.o.history.RecordChapter(rec); err != nil {
		r.logger.Warn("failed to record history", "chapter", out.Chapter.ID, "error", err)
	}
}
