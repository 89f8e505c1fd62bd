package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kerbaras/mangadl/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change saved settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, settings, err := loadSettings()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(settings.Snapshot())
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		fmt.Println(store.Path())
		return nil
	},
}

// configSaveCmd persists the effective configuration, including MANGAS_*
// environment overrides, to the config file.
var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the effective configuration to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, settings, err := loadSettings()
		if err != nil {
			return err
		}
		if err := store.Save(settings.Snapshot()); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Println(store.Path())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting and save it",
	Long: `Change one setting and save it. Out-of-range numbers are clamped.

Keys: output_dir, output_format, keep_images, max_chapter_workers,
max_image_workers, retry_count, retry_delay_seconds`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, settings, err := loadSettings()
		if err != nil {
			return err
		}
		if err := setKey(settings, args[0], args[1]); err != nil {
			return err
		}
		if err := store.Save(settings.Snapshot()); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		logger.Info("configuration saved", "path", store.Path(), "key", args[0])
		return nil
	},
}

func setKey(s *config.Settings, key, value string) error {
	key = strings.ReplaceAll(strings.ToLower(key), "-", "_")
	switch key {
	case "output_dir":
		s.SetOutputDir(value)
	case "output_format":
		if _, ok := config.ParseOutputFormat(value); !ok {
			return fmt.Errorf("unknown output format %q", value)
		}
		s.SetOutputFormat(value)
	case "keep_images":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("keep_images: %w", err)
		}
		s.SetKeepImages(b)
	case "max_chapter_workers", "max_image_workers", "retry_count":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "max_chapter_workers":
			s.SetMaxChapterWorkers(n)
		case "max_image_workers":
			s.SetMaxImageWorkers(n)
		default:
			s.SetRetryCount(n)
		}
	case "retry_delay_seconds":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("retry_delay_seconds: %w", err)
		}
		s.SetRetryDelaySeconds(f)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSaveCmd)
	configCmd.AddCommand(configPathCmd)
}
