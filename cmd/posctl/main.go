// Command posctl is the back-office CLI: CSV export, receipt reprints,
// sales summary and a terminal chat with the demo assistant.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ariefcatur/restobill/internal/app"
	"github.com/ariefcatur/restobill/internal/config"
	"github.com/ariefcatur/restobill/internal/logx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg     config.Config
	logger  *zap.Logger
	timeout time.Duration
	storage string
)

var rootCmd = &cobra.Command{
	Use:           "posctl",
	Short:         "RestoBill back-office tools",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg = config.Load()
		if storage != "" {
			cfg.Storage = storage
		}
		cfg.Log.Mode = "production"
		cfg.Log.Stderr = true
		var err error
		logger, err = logx.New(cfg.Log, "posctl")
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().StringVar(&storage, "storage", "", "Override STORAGE (postgres|memory)")

	rootCmd.AddCommand(exportCmd, receiptCmd, salesCmd, migrateCmd, chatCmd)
}

// withStores opens storage for one command run.
func withStores(cmd *cobra.Command, fn func(ctx context.Context, s *app.Stores) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	s, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
