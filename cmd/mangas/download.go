package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kerbaras/mangadl/pkg/app"
	"github.com/kerbaras/mangadl/pkg/config"
	"github.com/kerbaras/mangadl/pkg/data"
	"github.com/kerbaras/mangadl/pkg/metrics"
	"github.com/kerbaras/mangadl/pkg/services"
	"github.com/kerbaras/mangadl/pkg/sources"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download [manga-id]",
	Short: "Download manga chapters",
	Long: `Download chapters of a MangaDex manga.

Chapters are selected by number (--chapters 1-10,12), by id (--ids) or
interactively with --tui. Flags override the saved configuration for this
run only; use --save to persist them.`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	f := downloadCmd.Flags()
	f.StringP("language", "l", "en", "Language code (e.g., en, ja, es)")
	f.StringP("chapters", "c", "", "Chapter numbers or ranges (e.g., 1-10,12)")
	f.StringSlice("ids", nil, "Chapter ids to download")
	f.StringP("output", "o", "", "Output directory")
	f.StringP("format", "f", "", "Output format: images, pdf, cbz or epub")
	f.Bool("keep-images", true, "Keep page images next to pdf/cbz/epub archives")
	f.Int("chapter-workers", 0, "Chapters downloaded at once (1-10)")
	f.Int("image-workers", 0, "Pages fetched at once across all chapters (1-20)")
	f.Int("retries", 0, "Attempts per remote call (1-10)")
	f.Float64("retry-delay", 0, "Seconds between attempts (0.5-10, step 0.5)")
	f.Bool("save", false, "Save the resulting configuration")
	f.Bool("skip-downloaded", false, "Skip chapters the history has as done")
	f.String("history-db", "", "Download history database (default <user config dir>/mangas/history.duckdb)")
	f.Bool("no-history", false, "Do not record download history")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g., :9090)")
	f.Bool("tui", false, "Pick chapters and follow progress in a terminal UI")
}

// applyFlags writes explicitly set flags through the clamping setters.
func applyFlags(cmd *cobra.Command, s *config.Settings) {
	f := cmd.Flags()
	if f.Changed("output") {
		v, _ := f.GetString("output")
		s.SetOutputDir(v)
	}
	if f.Changed("format") {
		v, _ := f.GetString("format")
		if _, ok := config.ParseOutputFormat(v); !ok {
			logger.Warn("unknown output format, using images", "format", v)
		}
		s.SetOutputFormat(v)
	}
	if f.Changed("keep-images") {
		v, _ := f.GetBool("keep-images")
		s.SetKeepImages(v)
	}
	if f.Changed("chapter-workers") {
		v, _ := f.GetInt("chapter-workers")
		s.SetMaxChapterWorkers(v)
	}
	if f.Changed("image-workers") {
		v, _ := f.GetInt("image-workers")
		s.SetMaxImageWorkers(v)
	}
	if f.Changed("retries") {
		v, _ := f.GetInt("retries")
		s.SetRetryCount(v)
	}
	if f.Changed("retry-delay") {
		v, _ := f.GetFloat64("retry-delay")
		s.SetRetryDelaySeconds(v)
	}
}

func runDownload(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	language, _ := f.GetString("language")
	chapters, _ := f.GetString("chapters")
	ids, _ := f.GetStringSlice("ids")
	save, _ := f.GetBool("save")
	skip, _ := f.GetBool("skip-downloaded")
	historyPath, _ := f.GetString("history-db")
	noHistory, _ := f.GetBool("no-history")
	metricsAddr, _ := f.GetString("metrics-addr")
	useTUI, _ := f.GetBool("tui")

	store, settings, err := loadSettings()
	if err != nil {
		return err
	}
	applyFlags(cmd, settings)

	opts := []services.Option{services.WithStore(store), services.WithLogger(logger)}

	var history *data.Repository
	if !noHistory {
		if historyPath == "" {
			historyPath = defaultHistoryPath()
		}
		history, err = data.OpenRepository(historyPath)
		if err != nil {
			logger.Warn("download history disabled", "path", historyPath, "error", err)
		} else {
			defer history.Close()
			opts = append(opts, services.WithHistory(history))
		}
	}

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, services.WithMetrics(metrics.New(reg)))
		srv := serveMetrics(metricsAddr, reg)
		defer srv.Close()
	}

	var ui *app.App
	if useTUI {
		ui = app.NewApp()
		opts = append(opts, services.WithEventHandler(ui.Handle))
	} else {
		opts = append(opts, services.WithEventHandler(printEvent))
	}

	source := sources.NewMangaDexForLanguage(language)
	orchestrator := services.NewOrchestrator(source, settings, opts...)
	if save {
		if err := orchestrator.SaveConfig(); err != nil {
			return err
		}
		logger.Info("configuration saved", "path", store.Path())
	}

	var checker services.DownloadedChecker
	if history != nil {
		checker = history
	}
	controller := services.NewMangaController(source, orchestrator, checker)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manga, err := controller.GetManga(ctx, args[0])
	if err != nil {
		return err
	}
	options := services.DownloadOptions{ChapterRange: chapters, ChapterIDs: ids, SkipDownloaded: skip}

	if useTUI {
		var preselected []int
		if chapters != "" || len(ids) > 0 {
			if preselected, err = controller.SelectChapters(manga, options); err != nil {
				return err
			}
		}
		fin, err := ui.Run(orchestrator, manga, preselected)
		// Quitting the screen mid-download cancels the session.
		orchestrator.CancelDownload()
		if err != nil {
			return err
		}
		return summary(fin)
	}

	indices, err := controller.SelectChapters(manga, options)
	if err != nil {
		return err
	}
	fmt.Printf("📥 Downloading %d chapter(s) of %s\n", len(indices), manga.Title)
	if _, err := orchestrator.StartDownload(manga, indices); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if orchestrator.Active() {
			fmt.Println("\n⏹  Cancelling...")
			orchestrator.CancelDownload()
		}
	}()
	orchestrator.Wait()

	snap := orchestrator.Snapshot()
	return summary(services.FinishedEvent{
		SessionID:  snap.ID,
		Successful: snap.Completed,
		Failed:     snap.Failed,
		Cancelled:  snap.Cancelled,
	})
}

func printEvent(ev services.Event) {
	switch ev := ev.(type) {
	case services.ProgressEvent:
		if ev.Pages > 0 && ev.Page > 0 && ev.Page < ev.Pages {
			// Page-level detail only in debug logs.
			logger.Debug(ev.Status, "session", ev.SessionID)
			return
		}
		fmt.Printf("  [%d/%d] %s\n", ev.Current, ev.Total, ev.Status)
	case services.ChapterCompleteEvent:
		if ev.Success {
			fmt.Printf("  ✅ %s\n", ev.Title)
		} else {
			fmt.Printf("  ❌ %s: %v\n", ev.Title, ev.Err)
		}
	}
}

func summary(fin services.FinishedEvent) error {
	fmt.Printf("\n%d successful, %d failed", fin.Successful, fin.Failed)
	if fin.Cancelled {
		fmt.Print(" (cancelled)")
	}
	fmt.Println()
	if fin.Cancelled {
		return services.ErrCancelled
	}
	if fin.Failed > 0 {
		return fmt.Errorf("%d chapter(s) failed", fin.Failed)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}
