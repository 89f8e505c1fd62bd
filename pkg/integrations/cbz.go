package integrations

import (
	"archive/zip"
	"fmt"
	"io"
)

// encodeCBZ writes pages plus ComicInfo.xml as a comic book zip.
func encodeCBZ(w io.Writer, job Job) error {
	info, err := NewComicInfo(job.Manga, job.Chapter, len(job.Pages)).Marshal()
	if err != nil {
		return &EncodingError{Format: "cbz", Err: err}
	}

	zw := zip.NewWriter(w)

	fw, err := zw.Create("ComicInfo.xml")
	if err != nil {
		return &EncodingError{Format: "cbz", Err: err}
	}
	if _, err := fw.Write(info); err != nil {
		return &EncodingError{Format: "cbz", Err: err}
	}

	for i, page := range job.Pages {
		if ImageMIME(page) == "" {
			return &EncodingError{Format: "cbz", Err: fmt.Errorf("page %d is not a recognized image", i)}
		}
		// Pages are already compressed images.
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: PageFilename(i, page), Method: zip.Store})
		if err != nil {
			return &EncodingError{Format: "cbz", Err: err}
		}
		if _, err := fw.Write(page); err != nil {
			return &EncodingError{Format: "cbz", Err: err}
		}
	}

	if err := zw.Close(); err != nil {
		return &EncodingError{Format: "cbz", Err: err}
	}
	return nil
}
