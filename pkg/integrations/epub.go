package integrations

import (
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/go-shiori/go-epub"
)

// encodeEPUB builds a single-section EPUB with one full-width image per page.
func encodeEPUB(w io.Writer, job Job) error {
	title := job.Chapter.DisplayTitle()
	if job.Manga != nil && job.Manga.Title != "" {
		title = fmt.Sprintf("%s - %s", job.Manga.Title, title)
	}

	e, err := epub.NewEpub(title)
	if err != nil {
		return &EncodingError{Format: "epub", Err: err}
	}
	e.SetLang("en")
	if job.Manga != nil && job.Manga.Description != "" {
		e.SetDescription(job.Manga.Description)
	}

	var body strings.Builder
	body.WriteString(fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(job.Chapter.DisplayTitle())))

	for i, page := range job.Pages {
		mime := ImageMIME(page)
		if mime == "" {
			return &EncodingError{Format: "epub", Err: fmt.Errorf("page %d is not a recognized image", i)}
		}
		source := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(page)

		internalPath, err := e.AddImage(source, PageFilename(i, page))
		if err != nil {
			return &EncodingError{Format: "epub", Err: fmt.Errorf("page %d: %w", i, err)}
		}
		body.WriteString(fmt.Sprintf(
			`<div class="page"><img src="%s" alt="Page %d" style="width:100%%;height:auto;"/></div>%s`,
			internalPath, i+1, "\n",
		))
	}

	if _, err := e.AddSection(body.String(), job.Chapter.DisplayTitle(), "", ""); err != nil {
		return &EncodingError{Format: "epub", Err: err}
	}
	if _, err := e.WriteTo(w); err != nil {
		return &EncodingError{Format: "epub", Err: err}
	}
	return nil
}
