package integrations

import "fmt"

// EncodingError means the chapter could not be turned into the requested
// archive, usually because a page is not a decodable image.
type EncodingError struct {
	Format string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s encoding failed: %v", e.Format, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// IOError wraps a filesystem failure while writing chapter output.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
