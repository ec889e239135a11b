// Package cmd implements the rsswatch command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rsswatch/internal/config"
	"rsswatch/internal/logger"
)

// env holds what every command needs after flags are parsed.
type env struct {
	configPath string
	cfg        config.Config
	log        *zap.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	e := &env{log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "rsswatch",
		Short: "RSS feed poller with validation and health monitoring",
		Long: `rsswatch validates RSS and Atom feeds, imports their recent articles
and keeps them fresh from a background process that retries failing feeds
and tracks their health.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(e.configPath)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = logger.New(cfg.LogLevel, cfg.LogFile)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", "", "path to a config file (yaml, json or toml)")

	root.AddCommand(
		newFetchCmd(e),
		newAddCmd(e),
		newImportCmd(e),
		newValidateCmd(e),
		newListCmd(e),
		newDeleteCmd(e),
		newArticlesCmd(e),
		newHealthCmd(e),
		newSetIntervalCmd(e),
		newSetWorkersCmd(e),
		newStatusCmd(e),
		newRefreshCmd(e),
		newPauseCmd(e),
		newResumeCmd(e),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
