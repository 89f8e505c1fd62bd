package services

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/kerbaras/mangadl/pkg/config"
	"github.com/kerbaras/mangadl/pkg/data"
)

// DownloadSession is one StartDownload call through its FinishedEvent. The
// status map and counters are only touched under mu.
type DownloadSession struct {
	ID       string
	Manga    *data.Manga
	Indices  []int
	Chapters []data.ChapterMeta
	Config   config.Config

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	status    map[string]data.ChapterStatus
	completed int
	failed    int
	cancelled bool
	finished  bool
}

// SessionSnapshot is a copy of a session's bookkeeping.
type SessionSnapshot struct {
	ID        string
	MangaID   string
	Total     int
	Completed int
	Failed    int
	Cancelled bool
	Finished  bool
	Statuses  map[string]data.ChapterStatus
}

func newSession(id string, manga *data.Manga, indices []int, cfg config.Config) *DownloadSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &DownloadSession{
		ID:      id,
		Manga:   manga,
		Indices: append([]int(nil), indices...),
		Config:  cfg,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		status:  make(map[string]data.ChapterStatus, len(indices)),
	}
	for _, i := range indices {
		ch := manga.Chapters[i]
		s.Chapters = append(s.Chapters, ch)
		s.status[ch.ID] = data.StatusPending
	}
	return s
}

func (s *DownloadSession) Total() int {
	return len(s.Chapters)
}

// begin moves a chapter from Pending to Downloading.
func (s *DownloadSession) begin(chapterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(chapterID, data.StatusDownloading)
}

// finish moves a chapter into its terminal state and updates the counters
// in the same critical section.
func (s *DownloadSession) finish(chapterID string, success bool) error {
	next := data.StatusFailed
	if success {
		next = data.StatusDone
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(chapterID, next); err != nil {
		return err
	}
	if success {
		s.completed++
	} else {
		s.failed++
	}
	return nil
}

func (s *DownloadSession) transitionLocked(chapterID string, next data.ChapterStatus) error {
	cur, ok := s.status[chapterID]
	if !ok {
		return fmt.Errorf("chapter %s is not part of session %s", chapterID, s.ID)
	}
	if !cur.CanTransition(next) {
		return fmt.Errorf("chapter %s: illegal transition %s -> %s", chapterID, cur, next)
	}
	s.status[chapterID] = next
	return nil
}

// pending returns the selected chapters still in the Pending state.
func (s *DownloadSession) pending() []data.ChapterMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []data.ChapterMeta
	for _, ch := range s.Chapters {
		if s.status[ch.ID] == data.StatusPending {
			out = append(out, ch)
		}
	}
	return out
}

// requestCancel flags the session and cancels its context. It reports whether
// this call was the first to cancel a running session.
func (s *DownloadSession) requestCancel() bool {
	s.mu.Lock()
	first := !s.cancelled && !s.finished
	if !s.finished {
		s.cancelled = true
	}
	s.mu.Unlock()
	s.cancel()
	return first
}

// markFinished closes the bookkeeping. Later cancel requests are no-ops.
func (s *DownloadSession) markFinished() (completed, failed int, cancelled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	return s.completed, s.failed, s.cancelled
}

// terminal returns how many chapters are Done or Failed.
func (s *DownloadSession) terminal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed + s.failed
}

// delivered reports whether done has been closed.
func (s *DownloadSession) delivered() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done is closed after the session's FinishedEvent has been delivered.
func (s *DownloadSession) Done() <-chan struct{} {
	return s.done
}

func (s *DownloadSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SessionSnapshot{
		ID:        s.ID,
		Total:     len(s.Chapters),
		Completed: s.completed,
		Failed:    s.failed,
		Cancelled: s.cancelled,
		Finished:  s.finished,
		Statuses:  maps.Clone(s.status),
	}
	if s.Manga != nil {
		snap.MangaID = s.Manga.ID
	}
	return snap
}
