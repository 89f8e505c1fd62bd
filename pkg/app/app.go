package app

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangadl/pkg/app/screens"
	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/services"
)

// App hosts the download screen. Create it before the orchestrator and pass
// Handle as the orchestrator's event handler; sessions are started by the
// screen itself.
type App struct {
	program *tea.Program
	screen  *screens.DownloadScreen
}

func NewApp() *App {
	return &App{}
}

// Handle forwards an orchestrator event to the running program.
func (a *App) Handle(ev services.Event) {
	if a.program == nil {
		return
	}
	a.program.Send(screens.EventMsg{Event: ev})
}

// Run shows the chapter picker for manga, or starts right away when
// preselected is not empty, and returns once the user quits.
func (a *App) Run(d screens.Downloader, manga *data.Manga, preselected []int) (services.FinishedEvent, error) {
	a.screen = screens.NewDownloadScreen(d, manga, preselected)
	a.program = tea.NewProgram(a.screen, tea.WithAltScreen())

	if _, err := a.program.Run(); err != nil {
		return services.FinishedEvent{}, fmt.Errorf("download screen: %w", err)
	}
	if err := a.screen.Err(); err != nil {
		return services.FinishedEvent{}, err
	}
	fin, _ := a.screen.Result()
	return fin, nil
}
