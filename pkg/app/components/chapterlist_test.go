package components

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kerbaras/mangadl/pkg/data"
)

func testChapters(n int) []data.ChapterMeta {
	out := make([]data.ChapterMeta, n)
	for i := range out {
		out[i] = data.ChapterMeta{ID: string(rune('a' + i)), Number: string(rune('1' + i))}
	}
	return out
}

func TestNewChapterList(t *testing.T) {
	list := NewChapterList(testChapters(3))

	if len(list.Items) != 3 {
		t.Errorf("Expected 3 items, got %d", len(list.Items))
	}
	if list.SelectedIndex != 0 {
		t.Errorf("Expected SelectedIndex 0, got %d", list.SelectedIndex)
	}
	if len(list.SelectedIndices()) != 0 {
		t.Error("Expected nothing selected")
	}
}

func TestNavigationWraps(t *testing.T) {
	list := NewChapterList(testChapters(3))

	list.Prev()
	if list.SelectedIndex != 2 {
		t.Errorf("Expected wrap to 2, got %d", list.SelectedIndex)
	}
	list.Next()
	if list.SelectedIndex != 0 {
		t.Errorf("Expected wrap to 0, got %d", list.SelectedIndex)
	}

	empty := NewChapterList(nil)
	empty.Next()
	empty.Prev()
	empty.Toggle()
	if empty.SelectedIndex != 0 {
		t.Errorf("Expected 0 on empty list, got %d", empty.SelectedIndex)
	}
}

func TestToggle(t *testing.T) {
	list := NewChapterList(testChapters(4))

	list.Next()
	list.Toggle()
	list.Next()
	list.Next()
	list.Toggle()
	if got := list.SelectedIndices(); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Errorf("Expected [1 3], got %v", got)
	}

	list.Toggle()
	if got := list.SelectedIndices(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Expected [1], got %v", got)
	}
}

func TestToggleAll(t *testing.T) {
	list := NewChapterList(testChapters(3))
	list.Select([]int{0, 7})

	list.ToggleAll()
	if len(list.SelectedIndices()) != 3 {
		t.Errorf("Expected all selected, got %v", list.SelectedIndices())
	}
	list.ToggleAll()
	if len(list.SelectedIndices()) != 0 {
		t.Errorf("Expected none selected, got %v", list.SelectedIndices())
	}
}

func TestChapterListView(t *testing.T) {
	list := NewChapterList(testChapters(2))
	list.Toggle()

	view := list.View()
	if !strings.Contains(view, "[x] Chapter 1") {
		t.Errorf("Expected selected first chapter in view:\n%s", view)
	}
	if !strings.Contains(view, "[ ] Chapter 2") {
		t.Errorf("Expected unselected second chapter in view:\n%s", view)
	}
	if !strings.Contains(view, "1 of 2 selected") {
		t.Error("Expected selection count in view")
	}

	if !strings.Contains(NewChapterList(nil).View(), "No chapters available") {
		t.Error("Expected empty message")
	}
}
