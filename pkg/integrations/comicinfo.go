package integrations

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/kerbaras/mangadl/pkg/data"
)

// ComicInfo is the subset of the ComicRack schema readers rely on.
type ComicInfo struct {
	XMLName   xml.Name `xml:"ComicInfo"`
	XMLNSXsi  string   `xml:"xmlns:xsi,attr"`
	XMLNSXsd  string   `xml:"xmlns:xsd,attr"`
	Title     string   `xml:"Title,omitempty"`
	Series    string   `xml:"Series,omitempty"`
	Number    string   `xml:"Number,omitempty"`
	Volume    string   `xml:"Volume,omitempty"`
	Summary   string   `xml:"Summary,omitempty"`
	PageCount int      `xml:"PageCount,omitempty"`
	Manga     string   `xml:"Manga"`
	Web       string   `xml:"Web,omitempty"`
}

func NewComicInfo(manga *data.Manga, chapter data.ChapterMeta, pageCount int) ComicInfo {
	info := ComicInfo{
		XMLNSXsi:  "http://www.w3.org/2001/XMLSchema-instance",
		XMLNSXsd:  "http://www.w3.org/2001/XMLSchema",
		Title:     chapter.DisplayTitle(),
		PageCount: pageCount,
		Manga:     "Yes",
	}
	if manga != nil {
		info.Series = manga.Title
		info.Summary = manga.Description
		info.Web = manga.URL
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(chapter.Number), 64); err == nil {
		info.Number = strconv.FormatFloat(n, 'f', -1, 64)
	}
	if _, err := strconv.Atoi(strings.TrimSpace(chapter.Volume)); err == nil {
		info.Volume = strings.TrimSpace(chapter.Volume)
	}
	return info
}

func (c ComicInfo) Marshal() ([]byte, error) {
	out, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
