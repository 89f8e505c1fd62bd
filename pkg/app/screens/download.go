package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangadl/pkg/app/components"
	"github.com/kerbaras/mangadl/pkg/app/styles"
	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/services"
)

// Downloader is the orchestrator surface the screen drives.
type Downloader interface {
	StartDownload(manga *data.Manga, indices []int) (string, error)
	CancelDownload()
}

// EventMsg carries an orchestrator event into the program.
type EventMsg struct {
	Event services.Event
}

type startedMsg struct {
	sessionID string
	err       error
}

type cancelledMsg struct{}

type phase int

const (
	pickPhase phase = iota
	downloadPhase
	donePhase
)

// DownloadScreen lets the user toggle chapters, then follows the session
// until FinishedEvent.
type DownloadScreen struct {
	downloader Downloader
	manga      *data.Manga
	chapters   *components.ChapterList
	tracker    *components.ProgressTracker
	spinner    spinner.Model

	phase      phase
	autoStart  bool
	cancelling bool
	sessionID  string
	err        error
	width      int
}

// NewDownloadScreen starts immediately when preselected is not empty.
func NewDownloadScreen(d Downloader, manga *data.Manga, preselected []int) *DownloadScreen {
	list := components.NewChapterList(manga.Chapters)
	list.Select(preselected)
	return &DownloadScreen{
		downloader: d,
		manga:      manga,
		chapters:   list,
		tracker:    components.NewProgressTracker(80),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.StatusDownloading)),
		autoStart:  len(preselected) > 0,
		width:      80,
	}
}

func (s *DownloadScreen) Init() tea.Cmd {
	if s.autoStart {
		return tea.Batch(s.spinner.Tick, s.start(s.chapters.SelectedIndices()))
	}
	return s.spinner.Tick
}

func (s *DownloadScreen) start(indices []int) tea.Cmd {
	return func() tea.Msg {
		id, err := s.downloader.StartDownload(s.manga, indices)
		return startedMsg{sessionID: id, err: err}
	}
}

// cancel runs off the event loop; CancelDownload blocks until the session
// has drained.
func (s *DownloadScreen) cancel() tea.Cmd {
	return func() tea.Msg {
		s.downloader.CancelDownload()
		return cancelledMsg{}
	}
}

func (s *DownloadScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.chapters.Width = msg.Width
		s.chapters.Height = max(msg.Height-8, 5)
		s.tracker.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		return s.handleKey(msg)

	case startedMsg:
		if msg.err != nil {
			s.err = msg.err
			if s.autoStart {
				s.phase = donePhase
			}
			return s, nil
		}
		s.err = nil
		s.sessionID = msg.sessionID
		if s.phase == pickPhase {
			s.phase = downloadPhase
		}

	case EventMsg:
		// Events can overtake startedMsg.
		s.tracker.Update(msg.Event)
		if _, ok := msg.Event.(services.FinishedEvent); ok {
			s.phase = donePhase
		} else if s.phase == pickPhase {
			s.phase = downloadPhase
		}

	case cancelledMsg:
		s.cancelling = false

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}

	return s, nil
}

func (s *DownloadScreen) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch s.phase {
	case pickPhase:
		switch msg.String() {
		case "up", "k":
			s.chapters.Prev()
		case "down", "j":
			s.chapters.Next()
		case " ", "space", "x":
			s.chapters.Toggle()
		case "a":
			s.chapters.ToggleAll()
		case "enter":
			return s, s.start(s.chapters.SelectedIndices())
		case "q", "esc", "ctrl+c":
			return s, tea.Quit
		}

	case downloadPhase:
		switch msg.String() {
		case "c", "ctrl+c":
			if !s.cancelling {
				s.cancelling = true
				return s, s.cancel()
			}
		}

	case donePhase:
		switch msg.String() {
		case "q", "esc", "enter", "ctrl+c":
			return s, tea.Quit
		}
	}
	return s, nil
}

// Result returns the session summary once the download has finished.
func (s *DownloadScreen) Result() (services.FinishedEvent, bool) {
	return s.tracker.Finished()
}

func (s *DownloadScreen) Err() error {
	return s.err
}

func (s *DownloadScreen) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(s.manga.Title))
	b.WriteString("\n")

	switch s.phase {
	case pickPhase:
		b.WriteString(s.chapters.View())
		if s.err != nil {
			b.WriteString("\n")
			b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %v", s.err)))
		}
		b.WriteString(styles.HelpStyle.Render("↑/↓ move • space toggle • a all • enter download • q quit"))

	case downloadPhase:
		b.WriteString(s.spinner.View())
		if s.cancelling {
			b.WriteString(styles.StatusWarning.Render(" Cancelling..."))
		} else {
			b.WriteString(styles.StatusDownloading.Render(" Downloading"))
		}
		b.WriteString("\n\n")
		b.WriteString(s.tracker.View())
		b.WriteString(styles.HelpStyle.Render("c cancel"))

	case donePhase:
		if s.err != nil {
			b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %v", s.err)))
			b.WriteString("\n")
		}
		b.WriteString(s.tracker.View())
		b.WriteString(styles.HelpStyle.Render("q quit"))
	}

	return b.String()
}
