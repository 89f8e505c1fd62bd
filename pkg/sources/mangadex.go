package sources

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"sync"

	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/utils"
)

const mangaDexURL = "https://api.mangadex.org"

var _ Forgetter = (*MangaDex)(nil)

type Manga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       map[string]string `json:"title"`
		Description map[string]string `json:"description"`
	} `json:"attributes"`
}

func (m *Manga) ToManga() *data.Manga {
	return &data.Manga{
		ID:          m.ID,
		Title:       localized(m.Attributes.Title),
		Description: localized(m.Attributes.Description),
		URL:         fmt.Sprintf("https://mangadex.org/title/%s", m.ID),
	}
}

type Chapter struct {
	ID         string `json:"id"`
	Attributes struct {
		Title    string `json:"title"`
		Language string `json:"translatedLanguage"`
		Volume   string `json:"volume"`
		Number   string `json:"chapter"`
		Pages    int    `json:"pages"`
	} `json:"attributes"`
}

func (c *Chapter) ToChapter() data.ChapterMeta {
	return data.ChapterMeta{
		ID:        c.ID,
		Title:     c.Attributes.Title,
		Volume:    c.Attributes.Volume,
		Number:    c.Attributes.Number,
		PageCount: c.Attributes.Pages,
	}
}

// localized prefers the English value, then any value in key order.
func localized(m map[string]string) string {
	if v, ok := m["en"]; ok {
		return v
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if m[k] != "" {
			return m[k]
		}
	}
	return ""
}

type MangaDex struct {
	api      *utils.API
	language string

	mu    sync.Mutex
	pages map[string]*pageSet
}

// pageSet holds the at-home URLs resolved for one chapter. They expire, so a
// failed download drops the set and the next attempt resolves it again.
type pageSet struct {
	urls []string
}

func NewMangaDex() *MangaDex {
	return NewMangaDexForLanguage("en")
}

// NewMangaDexForLanguage lists only chapters translated to language.
func NewMangaDexForLanguage(language string) *MangaDex {
	return NewMangaDexWithAPI(utils.NewAPI(mangaDexURL), language)
}

func NewMangaDexWithAPI(api *utils.API, language string) *MangaDex {
	return &MangaDex{api: api, language: language, pages: make(map[string]*pageSet)}
}

func (m *MangaDex) Search(ctx context.Context, query string) ([]data.Manga, error) {
	var mangas struct {
		Data []Manga `json:"data"`
	}
	if err := m.api.Get(ctx, "/manga", url.Values{"title": {query}}, &mangas); err != nil {
		return nil, err
	}
	out := make([]data.Manga, len(mangas.Data))
	for i, manga := range mangas.Data {
		out[i] = *manga.ToManga()
	}
	return out, nil
}

func (m *MangaDex) FetchManga(ctx context.Context, id string) (*data.Manga, error) {
	var manga struct {
		Data Manga `json:"data"`
	}
	if err := m.api.Get(ctx, fmt.Sprintf("/manga/%s", url.PathEscape(id)), nil, &manga); err != nil {
		return nil, err
	}
	out := manga.Data.ToManga()

	chapters, err := m.feed(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapters: %w", err)
	}
	out.Chapters = chapters
	return out, nil
}

func (m *MangaDex) feed(ctx context.Context, id string) ([]data.ChapterMeta, error) {
	const limit = 500

	var out []data.ChapterMeta
	for offset := 0; ; offset += limit {
		params := url.Values{
			"translatedLanguage[]": {m.language},
			"order[chapter]":       {"asc"},
			"limit":                {strconv.Itoa(limit)},
			"offset":               {strconv.Itoa(offset)},
		}
		var feed struct {
			Data  []Chapter `json:"data"`
			Total int       `json:"total"`
		}
		if err := m.api.Get(ctx, fmt.Sprintf("/manga/%s/feed", url.PathEscape(id)), params, &feed); err != nil {
			return nil, err
		}
		for _, chapter := range feed.Data {
			out = append(out, chapter.ToChapter())
		}
		if len(feed.Data) < limit || len(out) >= feed.Total {
			return out, nil
		}
	}
}

func (m *MangaDex) FetchPageIndex(ctx context.Context, chapter data.ChapterMeta) (int, error) {
	set, err := m.resolve(ctx, chapter.ID)
	if err != nil {
		return 0, err
	}
	return len(set.urls), nil
}

func (m *MangaDex) resolve(ctx context.Context, chapterID string) (*pageSet, error) {
	var server struct {
		BaseURL string `json:"baseUrl"`
		Chapter struct {
			Hash string   `json:"hash"`
			Data []string `json:"data"`
		} `json:"chapter"`
	}
	if err := m.api.Get(ctx, fmt.Sprintf("/at-home/server/%s", url.PathEscape(chapterID)), nil, &server); err != nil {
		return nil, err
	}
	set := &pageSet{urls: make([]string, len(server.Chapter.Data))}
	for i, file := range server.Chapter.Data {
		set.urls[i] = fmt.Sprintf("%s/data/%s/%s", server.BaseURL, server.Chapter.Hash, file)
	}

	m.mu.Lock()
	m.pages[chapterID] = set
	m.mu.Unlock()

	return set, nil
}

func (m *MangaDex) FetchImage(ctx context.Context, chapterID string, pageIndex int) ([]byte, error) {
	m.mu.Lock()
	set, ok := m.pages[chapterID]
	m.mu.Unlock()

	if !ok {
		var err error
		if set, err = m.resolve(ctx, chapterID); err != nil {
			return nil, err
		}
	}
	if pageIndex < 0 || pageIndex >= len(set.urls) {
		return nil, fmt.Errorf("page %d out of range for chapter %s (%d pages)", pageIndex, chapterID, len(set.urls))
	}

	content, err := m.api.Download(ctx, set.urls[pageIndex])
	if err != nil {
		m.drop(chapterID, set)
		return nil, err
	}
	return content, nil
}

// drop removes set unless a concurrent fetch already replaced it.
func (m *MangaDex) drop(chapterID string, set *pageSet) {
	m.mu.Lock()
	if m.pages[chapterID] == set {
		delete(m.pages, chapterID)
	}
	m.mu.Unlock()
}

// Forget drops cached page URLs for a chapter.
func (m *MangaDex) Forget(chapterID string) {
	m.mu.Lock()
	delete(m.pages, chapterID)
	m.mu.Unlock()
}

func (m *MangaDex) cached(chapterID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pages[chapterID]
	return ok
}
