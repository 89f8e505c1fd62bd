package integrations

import (
	"context"

	"github.com/kerbaras/mangadl/pkg/config"
	"github.com/kerbaras/mangadl/pkg/data"
)

// Job is one fully downloaded chapter. Pages are ordered by page index.
type Job struct {
	Manga   *data.Manga
	Chapter data.ChapterMeta
	Pages   [][]byte
	Config  config.Config
}

// Result describes what a processor wrote.
type Result struct {
	Dir         string
	ArchivePath string
	Images      []string
}

// Processor persists a chapter to disk in the configured output format.
type Processor interface {
	Process(ctx context.Context, job Job) (Result, error)
}
