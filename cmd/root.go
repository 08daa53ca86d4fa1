package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"megafacil/config"
)

var (
	historyPath string
	cfg         *config.Config
)

// Execute runs the command line until it finishes or the process is signalled
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "megafacil",
		Short:         "Lottery card generation service with a credit ledger",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.Get()
			if historyPath != "" {
				cfg.HistoryCSVPath = historyPath
			}
			setupLogging(cfg.LogLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&historyPath, "history", "", "draw history CSV (overrides HISTORY_CSV_PATH)")

	root.AddCommand(
		serveCmd(),
		migrateCmd(),
		accountsCmd(),
		creditsCmd(),
		previewCmd(),
		backtestCmd(),
	)
	return root
}

func setupLogging(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", level)
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}
