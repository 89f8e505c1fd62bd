package integrations

import (
	"fmt"
	"strings"

	"github.com/h2non/filetype"
)

var invalidNameChars = []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}

// SanitizeFilename replaces characters that are invalid in file names.
func SanitizeFilename(name string) string {
	result := name
	for _, char := range invalidNameChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	result = strings.TrimSpace(result)
	if result == "" {
		return "untitled"
	}
	return result
}

// ImageExtension sniffs the image type of content and returns its extension
// with the leading dot. Unknown content falls back to ".jpg".
func ImageExtension(content []byte) string {
	kind, err := filetype.Match(content)
	if err != nil || kind == filetype.Unknown || !filetype.IsImage(content) {
		return ".jpg"
	}
	return "." + kind.Extension
}

// ImageMIME returns the sniffed MIME type or "" when content is not an image.
func ImageMIME(content []byte) string {
	if !filetype.IsImage(content) {
		return ""
	}
	kind, err := filetype.Match(content)
	if err != nil {
		return ""
	}
	return kind.MIME.Value
}

// PageFilename names page index (0-based) as a 1-based, zero-padded file.
func PageFilename(index int, content []byte) string {
	return fmt.Sprintf("%03d%s", index+1, ImageExtension(content))
}

// isImageFile checks if a file has an image extension
func isImageFile(filename string) bool {
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"} {
		if strings.HasSuffix(strings.ToLower(filename), ext) {
			return true
		}
	}
	return false
}
