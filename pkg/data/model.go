package data

import "fmt"

type Manga struct {
	ID          string
	Title       string
	Description string
	URL         string
	Chapters    []ChapterMeta
}

// ChapterMeta describes a chapter as listed by the source. PageCount is zero
// until the chapter's page index has been fetched.
type ChapterMeta struct {
	ID        string
	Title     string
	Number    string
	Volume    string
	PageCount int
}

// DisplayTitle returns the title shown to users and used for folder names.
func (c ChapterMeta) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	if c.Number != "" {
		return fmt.Sprintf("Chapter %s", c.Number)
	}
	return c.ID
}

// ChapterStatus is the per-chapter state inside a download session.
type ChapterStatus int

const (
	StatusPending ChapterStatus = iota
	StatusDownloading
	StatusDone
	StatusFailed
)

func (s ChapterStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDownloading:
		return "downloading"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are allowed.
func (s ChapterStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// CanTransition reports whether s -> next is a legal move.
func (s ChapterStatus) CanTransition(next ChapterStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusDownloading || next == StatusFailed
	case StatusDownloading:
		return next == StatusDone || next == StatusFailed
	default:
		return false
	}
}

// PageResult is the outcome of fetching one page. Exactly one of Data or Err
// is meaningful.
type PageResult struct {
	Index int
	Data  []byte
	Err   error
}

func (p PageResult) OK() bool {
	return p.Err == nil
}
