package sources

import (
	"context"

	"github.com/kerbaras/mangadl/pkg/data"
)

// Source is the remote content capability the downloader consumes. Every
// method may fail transiently; callers own retries.
type Source interface {
	Search(ctx context.Context, query string) ([]data.Manga, error)
	// FetchManga returns the manga with its ordered chapter list.
	FetchManga(ctx context.Context, mangaID string) (*data.Manga, error)
	// FetchPageIndex resolves how many pages a chapter has.
	FetchPageIndex(ctx context.Context, chapter data.ChapterMeta) (int, error)
	FetchImage(ctx context.Context, chapterID string, pageIndex int) ([]byte, error)
}

// Forgetter is implemented by sources that cache per-chapter state. Forget is
// called once the chapter reaches a terminal state.
type Forgetter interface {
	Forget(chapterID string)
}
