package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abhinav-TB/Build-Trace/internal/ai"
	"github.com/abhinav-TB/Build-Trace/internal/config"
	"github.com/abhinav-TB/Build-Trace/internal/differ"
	"github.com/abhinav-TB/Build-Trace/internal/logger"
	"github.com/abhinav-TB/Build-Trace/internal/storage"
	"github.com/abhinav-TB/Build-Trace/internal/summary"
)

var (
	cfgFile string
	cfg     *config.Config
	log     logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "buildtrace",
	Short: "Change detection for versioned technical drawings",
	Long: `BuildTrace compares two versions of a technical drawing and reports
which objects were added, removed, or moved, with a human-readable
summary of the delta.

  buildtrace diff A.json B.json       # compare two drawing versions
  buildtrace process manifest.json    # run a batch of comparisons
  buildtrace status metrics.json      # health check over saved metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.buildtrace/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("summarize", false, "use the external summarizer (requires ANTHROPIC_API_KEY)")

	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("summarizer.enabled", rootCmd.PersistentFlags().Lookup("summarize"))

	rootCmd.AddCommand(newDiffCommand())
	rootCmd.AddCommand(newProcessCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newVersionCommand())
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log = logger.NewLogrus(cfg.Logging.Level)
	return nil
}

// newComposer builds the summary composer from configuration. When the
// external summarizer is enabled but cannot be constructed, the
// rule-based composer is used and the reason logged; summaries are
// never allowed to block a diff.
func newComposer() *summary.Composer {
	opts := []summary.Option{summary.WithLogger(log)}
	if cfg.Summarizer.Enabled {
		client, err := ai.NewClaudeClient(cfg.Summarizer.Model)
		if err != nil {
			log.Error("external summarizer unavailable, using rule-based summaries", err)
		} else {
			opts = append(opts,
				summary.WithGenerator(client),
				summary.WithTimeout(time.Duration(cfg.Summarizer.TimeoutSeconds)*time.Second),
			)
		}
	}
	return summary.NewComposer(opts...)
}

func newEngine() *differ.Engine {
	return differ.NewEngine(newComposer(), log)
}

func newStore() *storage.Store {
	opts := []storage.StoreOption{storage.WithStoreLogger(log)}
	if cfg.Storage.AnonymousGCS {
		opts = append(opts, storage.WithAnonymousGCS())
	}
	return storage.NewStore(opts...)
}
