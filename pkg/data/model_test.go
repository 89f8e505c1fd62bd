package data

import "testing"

func TestChapterStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to ChapterStatus
		want     bool
	}{
		{StatusPending, StatusDownloading, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusDone, false},
		{StatusDownloading, StatusDone, true},
		{StatusDownloading, StatusFailed, true},
		{StatusDownloading, StatusPending, false},
		{StatusDone, StatusFailed, false},
		{StatusFailed, StatusDone, false},
		{StatusFailed, StatusFailed, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestChapterStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusDownloading.Terminal() {
		t.Error("Pending and Downloading must not be terminal")
	}
	if !StatusDone.Terminal() || !StatusFailed.Terminal() {
		t.Error("Done and Failed must be terminal")
	}
}

func TestChapterDisplayTitle(t *testing.T) {
	if got := (ChapterMeta{ID: "c", Title: "Romance Dawn"}).DisplayTitle(); got != "Romance Dawn" {
		t.Errorf("Expected title, got %q", got)
	}
	if got := (ChapterMeta{ID: "c", Number: "12"}).DisplayTitle(); got != "Chapter 12" {
		t.Errorf("Expected 'Chapter 12', got %q", got)
	}
	if got := (ChapterMeta{ID: "c"}).DisplayTitle(); got != "c" {
		t.Errorf("Expected id fallback, got %q", got)
	}
}
