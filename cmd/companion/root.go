package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/companion/internal/cli"
	"github.com/aretw0/companion/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "A multimodal conversational companion",
	Long: `companion routes every message to a conversation, image or audio reply,
remembers what matters about you, and keeps long conversations short by
summarizing them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to companion.yaml (default: ./companion.yaml or ~/.config/companion/companion.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("debug", false, "Shorthand for --log-level=debug")
}

// loadConfig reads the configuration named by the persistent flags and
// builds the process logger from it.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}
	logger, err := cli.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// buildApp loads the configuration and wires the agent.
func buildApp(cmd *cobra.Command) (*cli.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.Build(cmd.Context(), cfg, logger)
}
