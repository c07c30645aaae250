package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/japaniel/qisas/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "qisas",
		Short:         "Read Arabic stories with word and phrase glosses",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.Log, cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newStoriesCmd())
	cmd.AddCommand(newTokensCmd())
	cmd.AddCommand(newReadCmd())
	cmd.AddCommand(newLearnedCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newLookupCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(c config.LogConfig, w io.Writer) {
	lvl, err := config.ParseLogLevel(c.Level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if c.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

func requireConfig() (config.Config, error) {
	if activeCfg.Paths.DB == "" {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}
	return activeCfg, nil
}
