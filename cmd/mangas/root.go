package cmd

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kerbaras/mangadl/pkg/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	logger     = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "mangas",
	Short: "A concurrent manga downloader",
	Long:  "Download manga chapters as images, PDF, CBZ or EPUB with bounded, retrying workers",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default <user config dir>/mangas/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore() (*config.Store, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return config.NewStore(path), nil
}

// loadSettings reads the config file. A broken file is logged and replaced
// by defaults rather than aborting the command.
func loadSettings() (*config.Store, *config.Settings, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := store.Load()
	if err != nil {
		logger.Warn("using default configuration", "path", store.Path(), "error", err)
	}
	return store, config.NewSettings(cfg), nil
}

func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".mangas", "history.duckdb")
	}
	return filepath.Join(dir, "mangas", "history.duckdb")
}

func truncateString(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
