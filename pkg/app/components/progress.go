package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/kerbaras/mangadl/pkg/app/styles"
	"github.com/kerbaras/mangadl/pkg/services"
)

type chapterProgress struct {
	Title  string
	Page   int
	Pages  int
	Status string
	Err    error
}

// ProgressTracker folds orchestrator events into what the download screen
// shows: one row per active chapter plus the session totals.
type ProgressTracker struct {
	downloads map[string]*chapterProgress
	completed map[string]bool
	order     []string
	current   int
	total     int
	status    string
	failures  []string
	finished  *services.FinishedEvent
	bar       progress.Model
	width     int
}

func NewProgressTracker(width int) *ProgressTracker {
	p := &ProgressTracker{
		downloads: make(map[string]*chapterProgress),
		completed: make(map[string]bool),
		bar:       progress.New(progress.WithGradient(string(styles.Primary), string(styles.Secondary))),
	}
	p.SetWidth(width)
	return p
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
	p.bar.Width = max(width-4, 10)
}

func (p *ProgressTracker) Update(ev services.Event) {
	switch ev := ev.(type) {
	case services.ProgressEvent:
		p.current, p.total, p.status = ev.Current, ev.Total, ev.Status
		if ev.ChapterTitle == "" || p.completed[ev.ChapterTitle] {
			return
		}
		row := p.row(ev.ChapterTitle)
		row.Page, row.Pages = ev.Page, ev.Pages
		if row.Status == "" || row.Status == "pending" {
			row.Status = "downloading"
		}
		if ev.Pages > 0 && ev.Page == ev.Pages {
			row.Status = "processing"
		}

	case services.ChapterCompleteEvent:
		// Finished chapters leave the active list.
		delete(p.downloads, ev.Title)
		p.completed[ev.Title] = true
		p.removeOrder(ev.Title)
		if !ev.Success {
			msg := ev.Title
			if ev.Err != nil {
				msg = fmt.Sprintf("%s: %v", ev.Title, ev.Err)
			}
			p.failures = append(p.failures, msg)
		}

	case services.FinishedEvent:
		fin := ev
		p.finished = &fin
		p.current = ev.Successful + ev.Failed
		p.downloads = make(map[string]*chapterProgress)
		p.order = nil
	}
}

func (p *ProgressTracker) row(title string) *chapterProgress {
	row, ok := p.downloads[title]
	if !ok {
		row = &chapterProgress{Title: title}
		p.downloads[title] = row
		p.order = append(p.order, title)
	}
	return row
}

func (p *ProgressTracker) removeOrder(title string) {
	for i, t := range p.order {
		if t == title {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}

func (p *ProgressTracker) Clear() {
	p.downloads = make(map[string]*chapterProgress)
	p.completed = make(map[string]bool)
	p.order = nil
	p.current, p.total = 0, 0
	p.status = ""
	p.failures = nil
	p.finished = nil
}

func (p *ProgressTracker) HasActive() bool {
	return len(p.downloads) > 0
}

// Finished returns the session summary once FinishedEvent has arrived.
func (p *ProgressTracker) Finished() (services.FinishedEvent, bool) {
	if p.finished == nil {
		return services.FinishedEvent{}, false
	}
	return *p.finished, true
}

func (p *ProgressTracker) View() string {
	var b strings.Builder

	if p.total > 0 {
		b.WriteString(styles.TitleStyle.Render(fmt.Sprintf("Chapters %d/%d", p.current, p.total)))
		b.WriteString("\n")
		b.WriteString(p.bar.ViewAs(float64(p.current) / float64(p.total)))
		b.WriteString("\n\n")
	}

	for _, title := range p.order {
		row := p.downloads[title]
		b.WriteString(styles.TextStyle.Render(row.Title))
		b.WriteString("\n")

		statusText := row.Status
		if row.Pages > 0 {
			percentage := float64(row.Page) / float64(row.Pages) * 100
			statusText = fmt.Sprintf("%s (%d/%d pages - %.0f%%)", row.Status, row.Page, row.Pages, percentage)
			b.WriteString(renderProgressBar(row.Page, row.Pages, p.width-4))
			b.WriteString("\n")
		}
		b.WriteString(styles.StatusStyle(row.Status).Render(statusText))
		b.WriteString("\n\n")
	}

	if p.finished == nil && p.status != "" {
		b.WriteString(styles.MutedStyle.Render(p.status))
		b.WriteString("\n")
	}

	if fin, ok := p.Finished(); ok {
		summary := fmt.Sprintf("Finished: %d successful, %d failed", fin.Successful, fin.Failed)
		style := styles.StatusCompleted
		if fin.Cancelled {
			summary += " (cancelled)"
			style = styles.StatusWarning
		} else if fin.Failed > 0 {
			style = styles.StatusError
		}
		b.WriteString(style.Render(summary))
		b.WriteString("\n")
	}

	for _, msg := range p.failures {
		b.WriteString(styles.StatusError.Render("Error: " + msg))
		b.WriteString("\n")
	}

	return b.String()
}

func renderProgressBar(current, total, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return styles.ProgressBarStyle.Render(bar)
}
