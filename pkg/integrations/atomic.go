package integrations

import (
	"io"
	"os"
	"path/filepath"
)

// publish writes through write into a temp file next to path and renames it
// into place only if write and close both succeed. A reader never observes a
// partial file at path.
func publish(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &IOError{Path: path, Err: err}
	}
	return nil
}

func writeBytes(path string, content []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		if _, err := w.Write(content); err != nil {
			return &IOError{Path: path, Err: err}
		}
		return nil
	}
}
