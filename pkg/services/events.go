package services

// Event is one of ProgressEvent, ChapterCompleteEvent or FinishedEvent.
type Event interface {
	isEvent()
}

// EventHandler receives session events. Calls are never concurrent. A
// handler must not call CancelDownload or Wait synchronously.
type EventHandler func(Event)

// ProgressEvent reports a milestone. Current counts chapters that reached a
// terminal state out of Total selected. Page and Pages describe the chapter
// named by ChapterTitle when the milestone is page level.
type ProgressEvent struct {
	SessionID    string
	Current      int
	Total        int
	Status       string
	ChapterTitle string
	Page         int
	Pages        int
}

// ChapterCompleteEvent is emitted exactly once per selected chapter.
type ChapterCompleteEvent struct {
	SessionID string
	ChapterID string
	Title     string
	Success   bool
	Err       error
}

// FinishedEvent is the last event of a session.
type FinishedEvent struct {
	SessionID  string
	Successful int
	Failed     int
	Cancelled  bool
}

func (ProgressEvent) isEvent()        {}
func (ChapterCompleteEvent) isEvent() {}
func (FinishedEvent) isEvent()        {}
