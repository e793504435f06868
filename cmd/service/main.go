// cmd/service/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github-ai-attribution/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}

type contextKey string

const configContextKey contextKey = "config"

func newRootCmd() *cobra.Command {
	logLevel := new(slog.LevelVar)

	root := &cobra.Command{
		Use:   "service",
		Short: "Attributes repository commits to AI coding tools",
		Long: `service links GitHub App installations to users and organizations,
ingests commit history from their repositories, classifies each commit as
AI-assisted or human-authored, and keeps per-repository rollups current.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize structured logger
			handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
			slog.SetDefault(slog.New(handler))

			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			setLogLevel(cfg.LogLevel, logLevel)
			slog.Info("Configuration loaded successfully")

			cmd.SetContext(context.WithValue(cmd.Context(), configContextKey, cfg))
			return nil
		},
	}

	root.AddCommand(newServeCmd(), newMigrateCmd(), newSyncCmd())
	return root
}

func configFrom(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(configContextKey).(*config.Config)
	return cfg
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
