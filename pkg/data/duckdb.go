package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	session_id    VARCHAR NOT NULL,
	manga_id      VARCHAR NOT NULL,
	manga_title   VARCHAR,
	chapter_id    VARCHAR NOT NULL,
	chapter_title VARCHAR,
	status        VARCHAR NOT NULL,
	output_path   VARCHAR,
	pages         INTEGER,
	error         VARCHAR,
	finished_at   TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, chapter_id)
)`

// DownloadRecord is one terminal chapter outcome.
type DownloadRecord struct {
	SessionID    string
	MangaID      string
	MangaTitle   string
	ChapterID    string
	ChapterTitle string
	Status       ChapterStatus
	OutputPath   string
	Pages        int
	Error        string
	FinishedAt   time.Time
}

func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// Repository stores download history in DuckDB.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// OpenRepository opens (or creates) the history database at path.
func OpenRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) RecordChapter(rec DownloadRecord) error {
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO downloads
			(session_id, manga_id, manga_title, chapter_id, chapter_title, status, output_path, pages, error, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.MangaID, rec.MangaTitle, rec.ChapterID, rec.ChapterTitle,
		rec.Status.String(), rec.OutputPath, rec.Pages, rec.Error, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record chapter %s: %w", rec.ChapterID, err)
	}
	return nil
}

// ListChapters returns the history for a manga, newest first.
func (r *Repository) ListChapters(mangaID string) ([]DownloadRecord, error) {
	rows, err := r.db.Query(`
		SELECT session_id, manga_id, manga_title, chapter_id, chapter_title, status, output_path, pages, error, finished_at
		FROM downloads
		WHERE manga_id = ?
		ORDER BY finished_at DESC, chapter_id`, mangaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DownloadRecord
	for rows.Next() {
		var (
			rec    DownloadRecord
			status string
			path   sql.NullString
			errMsg sql.NullString
			mTitle sql.NullString
			cTitle sql.NullString
			pages  sql.NullInt64
		)
		if err := rows.Scan(&rec.SessionID, &rec.MangaID, &mTitle, &rec.ChapterID, &cTitle,
			&status, &path, &pages, &errMsg, &rec.FinishedAt); err != nil {
			return nil, err
		}
		rec.MangaTitle = mTitle.String
		rec.ChapterTitle = cTitle.String
		rec.Status = parseStatus(status)
		rec.OutputPath = path.String
		rec.Pages = int(pages.Int64)
		rec.Error = errMsg.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Downloaded reports whether chapterID has ever finished successfully.
func (r *Repository) Downloaded(chapterID string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM downloads WHERE chapter_id = ? AND status = ?`,
		chapterID, StatusDone.String()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func parseStatus(s string) ChapterStatus {
	switch s {
	case "done":
		return StatusDone
	case "failed":
		return StatusFailed
	case "downloading":
		return StatusDownloading
	default:
		return StatusPending
	}
}
