package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangadl/pkg/app/styles"
	"github.com/kerbaras/mangadl/pkg/data"
)

type ChapterListItem struct {
	Chapter  data.ChapterMeta
	Selected bool
}

// ChapterList is a scrollable list of chapters with a toggle per row.
type ChapterList struct {
	Items         []ChapterListItem
	SelectedIndex int
	Width         int
	Height        int
}

func NewChapterList(chapters []data.ChapterMeta) *ChapterList {
	items := make([]ChapterListItem, len(chapters))
	for i, ch := range chapters {
		items[i] = ChapterListItem{Chapter: ch}
	}
	return &ChapterList{
		Items:  items,
		Width:  80,
		Height: 20,
	}
}

func (m *ChapterList) Next() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex++
	if m.SelectedIndex >= len(m.Items) {
		m.SelectedIndex = 0
	}
}

func (m *ChapterList) Prev() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex--
	if m.SelectedIndex < 0 {
		m.SelectedIndex = len(m.Items) - 1
	}
}

// Toggle flips the row under the cursor.
func (m *ChapterList) Toggle() {
	if len(m.Items) == 0 {
		return
	}
	m.Items[m.SelectedIndex].Selected = !m.Items[m.SelectedIndex].Selected
}

// ToggleAll selects every row, or clears them all if all were selected.
func (m *ChapterList) ToggleAll() {
	all := true
	for _, item := range m.Items {
		if !item.Selected {
			all = false
			break
		}
	}
	for i := range m.Items {
		m.Items[i].Selected = !all
	}
}

func (m *ChapterList) Select(indices []int) {
	for _, i := range indices {
		if i >= 0 && i < len(m.Items) {
			m.Items[i].Selected = true
		}
	}
}

// SelectedIndices returns the toggled rows in list order.
func (m *ChapterList) SelectedIndices() []int {
	var out []int
	for i, item := range m.Items {
		if item.Selected {
			out = append(out, i)
		}
	}
	return out
}

func (m *ChapterList) View() string {
	if len(m.Items) == 0 {
		emptyMsg := styles.MutedStyle.Render("No chapters available")
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, emptyMsg)
	}

	// Keep the cursor inside the visible window.
	start := 0
	if m.Height > 0 && m.SelectedIndex >= m.Height {
		start = m.SelectedIndex - m.Height + 1
	}
	end := len(m.Items)
	if m.Height > 0 && end > start+m.Height {
		end = start + m.Height
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		item := m.Items[i]
		box := "[ ]"
		if item.Selected {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s", box, item.Chapter.DisplayTitle())
		if item.Chapter.Volume != "" {
			line += styles.MutedStyle.Render(fmt.Sprintf("  vol. %s", item.Chapter.Volume))
		}

		if i == m.SelectedIndex {
			b.WriteString(styles.SelectedStyle.Render("> " + line))
		} else {
			b.WriteString(styles.TextStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString(styles.MutedStyle.Render(fmt.Sprintf("%d of %d selected", len(m.SelectedIndices()), len(m.Items))))
	return b.String()
}
