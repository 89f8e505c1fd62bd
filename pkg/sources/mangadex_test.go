package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMangaDex(t *testing.T, handler http.HandlerFunc) *MangaDex {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewMangaDexWithAPI(utils.NewAPIWithLimiter(server.URL, nil), "en")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestMangaDex_Search(t *testing.T) {
	md := newTestMangaDex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga", r.URL.Path)
		assert.Equal(t, "naruto", r.URL.Query().Get("title"))
		w.Write([]byte(`{"data":[{"id":"6b1eb93e","attributes":{"title":{"en":"Naruto"}}}]}`))
	})

	mangas, err := md.Search(context.Background(), "naruto")
	require.NoError(t, err)
	require.Len(t, mangas, 1)
	assert.Equal(t, "6b1eb93e", mangas[0].ID)
	assert.Equal(t, "Naruto", mangas[0].Title)
}

func TestMangaDex_FetchManga(t *testing.T) {
	md := newTestMangaDex(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/manga/m1":
			w.Write([]byte(`{"data":{"id":"m1","attributes":{"title":{"ja-ro":"Naruto"},"description":{"en":"Ninja"}}}}`))
		case "/manga/m1/feed":
			assert.Equal(t, "en", r.URL.Query().Get("translatedLanguage[]"))
			w.Write([]byte(`{"total":2,"data":[
				{"id":"c1","attributes":{"title":"Uzumaki Naruto!","chapter":"1","volume":"1","pages":3}},
				{"id":"c2","attributes":{"title":"","chapter":"2","volume":"1","pages":0}}
			]}`))
		default:
			http.NotFound(w, r)
		}
	})

	manga, err := md.FetchManga(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Naruto", manga.Title)
	assert.Equal(t, "Ninja", manga.Description)
	require.Len(t, manga.Chapters, 2)
	assert.Equal(t, data.ChapterMeta{ID: "c1", Title: "Uzumaki Naruto!", Number: "1", Volume: "1", PageCount: 3}, manga.Chapters[0])
	assert.Equal(t, "Chapter 2", manga.Chapters[1].DisplayTitle())
}

func TestMangaDex_PagesAndImages(t *testing.T) {
	var serverURL string
	md := newTestMangaDex(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/at-home/server/c1":
			writeJSON(w, map[string]any{
				"baseUrl": serverURL,
				"chapter": map[string]any{"hash": "h", "data": []string{"a.png", "b.png"}},
			})
		case "/data/h/a.png":
			w.Write([]byte("page-a"))
		case "/data/h/b.png":
			w.Write([]byte("page-b"))
		default:
			http.NotFound(w, r)
		}
	})
	serverURL = md.api.BaseURL()

	n, err := md.FetchPageIndex(context.Background(), data.ChapterMeta{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	img, err := md.FetchImage(context.Background(), "c1", 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("page-b"), img)

	_, err = md.FetchImage(context.Background(), "c1", 2)
	assert.Error(t, err)
}

func TestMangaDex_FetchImageResolvesIndexLazily(t *testing.T) {
	var serverURL string
	md := newTestMangaDex(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/at-home/server/c9":
			writeJSON(w, map[string]any{
				"baseUrl": serverURL,
				"chapter": map[string]any{"hash": "h", "data": []string{"x.jpg"}},
			})
		case "/data/h/x.jpg":
			w.Write([]byte("x"))
		default:
			http.NotFound(w, r)
		}
	})
	serverURL = md.api.BaseURL()

	img, err := md.FetchImage(context.Background(), "c9", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), img)
}

func TestMangaDex_FetchImageReresolvesAfterFailure(t *testing.T) {
	expired := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	t.Cleanup(expired.Close)
	fresh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/h/a.png", r.URL.Path)
		w.Write([]byte("page-a"))
	}))
	t.Cleanup(fresh.Close)

	resolved := 0
	md := newTestMangaDex(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/at-home/server/c1", r.URL.Path)
		base := expired.URL
		if resolved > 0 {
			base = fresh.URL
		}
		resolved++
		writeJSON(w, map[string]any{
			"baseUrl": base,
			"chapter": map[string]any{"hash": "h", "data": []string{"a.png"}},
		})
	})

	_, err := md.FetchPageIndex(context.Background(), data.ChapterMeta{ID: "c1"})
	require.NoError(t, err)

	_, err = md.FetchImage(context.Background(), "c1", 0)
	require.Error(t, err)
	assert.False(t, md.cached("c1"))

	img, err := md.FetchImage(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("page-a"), img)
	assert.Equal(t, 2, resolved)
}

func TestMangaDex_Forget(t *testing.T) {
	var serverURL string
	md := newTestMangaDex(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"baseUrl": serverURL,
			"chapter": map[string]any{"hash": "h", "data": []string{"a.png"}},
		})
	})
	serverURL = md.api.BaseURL()

	_, err := md.FetchPageIndex(context.Background(), data.ChapterMeta{ID: "c1"})
	require.NoError(t, err)
	assert.True(t, md.cached("c1"))

	md.Forget("c1")
	assert.False(t, md.cached("c1"))
}

func TestLocalized(t *testing.T) {
	assert.Equal(t, "English", localized(map[string]string{"en": "English", "ja": "Japanese"}))
	assert.Equal(t, "A", localized(map[string]string{"zz": "Z", "aa": "A"}))
	assert.Equal(t, "", localized(nil))
}
