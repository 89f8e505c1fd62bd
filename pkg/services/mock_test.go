package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kerbaras/mangadl/pkg/config"
	"github.com/kerbaras/mangadl/pkg/data"
)

// Mock implementations for testing

type mockSource struct {
	searchFunc         func(ctx context.Context, query string) ([]data.Manga, error)
	fetchMangaFunc     func(ctx context.Context, id string) (*data.Manga, error)
	fetchPageIndexFunc func(ctx context.Context, chapter data.ChapterMeta) (int, error)
	fetchImageFunc     func(ctx context.Context, chapterID string, pageIndex int) ([]byte, error)
	forgetFunc         func(chapterID string)
}

func (m *mockSource) Search(ctx context.Context, query string) ([]data.Manga, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query)
	}
	return nil, nil
}

func (m *mockSource) FetchManga(ctx context.Context, id string) (*data.Manga, error) {
	if m.fetchMangaFunc != nil {
		return m.fetchMangaFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockSource) FetchPageIndex(ctx context.Context, chapter data.ChapterMeta) (int, error) {
	if m.fetchPageIndexFunc != nil {
		return m.fetchPageIndexFunc(ctx, chapter)
	}
	return 1, nil
}

func (m *mockSource) FetchImage(ctx context.Context, chapterID string, pageIndex int) ([]byte, error) {
	if m.fetchImageFunc != nil {
		return m.fetchImageFunc(ctx, chapterID, pageIndex)
	}
	return []byte(fmt.Sprintf("%s-%d", chapterID, pageIndex)), nil
}

func (m *mockSource) Forget(chapterID string) {
	if m.forgetFunc != nil {
		m.forgetFunc(chapterID)
	}
}

type mockStore struct {
	saved []config.Config
	err   error
}

func (m *mockStore) Save(cfg config.Config) error {
	m.saved = append(m.saved, cfg)
	return m.err
}

type mockHistory struct {
	mu      sync.Mutex
	records []data.DownloadRecord
	done    map[string]bool
	err     error
}

func (m *mockHistory) RecordChapter(rec data.DownloadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

func (m *mockHistory) Downloaded(chapterID string) (bool, error) {
	return m.done[chapterID], nil
}

// eventLog collects events in delivery order.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) handle(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func (l *eventLog) completions() []ChapterCompleteEvent {
	var out []ChapterCompleteEvent
	for _, ev := range l.all() {
		if c, ok := ev.(ChapterCompleteEvent); ok {
			out = append(out, c)
		}
	}
	return out
}

func (l *eventLog) finished() []FinishedEvent {
	var out []FinishedEvent
	for _, ev := range l.all() {
		if f, ok := ev.(FinishedEvent); ok {
			out = append(out, f)
		}
	}
	return out
}

// Test helpers

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func testManga(n int) *data.Manga {
	manga := &data.Manga{ID: "manga-1", Title: "Test Manga"}
	for i := 0; i < n; i++ {
		manga.Chapters = append(manga.Chapters, data.ChapterMeta{
			ID:     fmt.Sprintf("id%d", i),
			Title:  fmt.Sprintf("ch%d", i),
			Number: fmt.Sprintf("%d", i+1),
		})
	}
	return manga
}

func testSettings(t *testing.T, mutate func(*config.Config)) *config.Settings {
	t.Helper()
	cfg := config.Defaults()
	cfg.OutputDir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	return config.NewSettings(cfg.Normalize())
}

func newTestOrchestrator(t *testing.T, source *mockSource, mutate func(*config.Config), opts ...Option) (*Orchestrator, *eventLog) {
	t.Helper()
	events := &eventLog{}
	opts = append([]Option{WithEventHandler(events.handle), WithClock(noSleep)}, opts...)
	o := NewOrchestrator(source, testSettings(t, mutate), opts...)
	t.Cleanup(o.CancelDownload)
	return o, events
}

// waitTimeout fails the test if the orchestrator does not finish in time.
func waitTimeout(t *testing.T, o *Orchestrator, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		o.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("session did not finish in time")
	}
}
