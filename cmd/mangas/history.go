package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [manga-id]",
	Short: "Show download history of a manga",
	Long:  "Display the recorded chapter outcomes of a manga, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("history-db")
		if path == "" {
			path = defaultHistoryPath()
		}
		repo, err := data.OpenRepository(path)
		if err != nil {
			return err
		}
		defer repo.Close()

		records, err := repo.ListChapters(args[0])
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("📚 No downloads recorded. Use 'mangas download' to fetch chapters.")
			return nil
		}

		columns := []table.Column{
			{Title: "Chapter", Width: 30},
			{Title: "Status", Width: 8},
			{Title: "Pages", Width: 6},
			{Title: "Finished", Width: 17},
			{Title: "Output / Error", Width: 50},
		}

		rows := []table.Row{}
		for _, rec := range records {
			detail := rec.OutputPath
			if rec.Status == data.StatusFailed {
				detail = rec.Error
			}
			rows = append(rows, table.Row{
				truncateString(rec.ChapterTitle, 28),
				rec.Status.String(),
				fmt.Sprintf("%d", rec.Pages),
				rec.FinishedAt.Local().Format("2006-01-02 15:04"),
				truncateString(detail, 48),
			})
		}

		t := table.New(
			table.WithColumns(columns),
			table.WithRows(rows),
			table.WithFocused(false),
			table.WithHeight(len(rows)),
		)

		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)
		s.Selected = s.Selected.
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(false)
		t.SetStyles(s)

		fmt.Printf("\n📚 %s (%d chapter(s))\n\n", records[0].MangaTitle, len(records))
		fmt.Println(t.View())
		return nil
	},
}

func init() {
	historyCmd.Flags().String("history-db", "", "Download history database (default <user config dir>/mangas/history.duckdb)")
}
