// cmd/service/migrate.go
package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github-ai-attribution/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.Migrate(configFrom(cmd).DBURL); err != nil {
				return fmt.Errorf("failed to run database migrations: %w", err)
			}
			slog.Info("Database migrations applied successfully")
			return nil
		},
	}
}
