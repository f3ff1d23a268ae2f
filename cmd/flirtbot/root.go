package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"flirtbot/internal/config"
)

var (
	cfgPath   string
	appConfig *config.AppConfig
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "flirtbot",
	Short: "Answer with the closest pickup line in your language",
	Long: `flirtbot embeds a table of pickup lines per language and answers every
message with the line whose embedding is nearest to it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		cfg, path, err := loadConfig(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.ApplyEnv(os.Getenv)
		if err := cfg.Validate(); err != nil {
			return err
		}
		appConfig = cfg

		out := cmd.ErrOrStderr()
		if cmd.Name() == "chat" {
			// keep the terminal clean while bubbletea owns it
			out, err = chatLogOutput()
			if err != nil {
				return err
			}
		}
		logger, err = configureLogging(cfg.Log, out)
		if err != nil {
			return err
		}
		logger.Debug("config loaded", "path", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./flirtbot.yaml or ~/.config/flirtbot/config.yaml)")
	rootCmd.AddCommand(serveCmd, chatCmd, askCmd, importCmd)
}

func loadConfig(path string) (*config.AppConfig, string, error) {
	if path == "" {
		return config.LoadDefault()
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}
