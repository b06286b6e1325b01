package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/darzi-doorstep/darzi-backend/pkg/config"
	"github.com/darzi-doorstep/darzi-backend/pkg/db"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
	"github.com/darzi-doorstep/darzi-backend/pkg/migrate"
)

var migrationsDir string

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the darzi database schema with goose",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&migrationsDir, "dir", migrate.DefaultDir, "goose migrations directory")

	root.AddCommand(
		dbCommand("up", "Apply all pending migrations", cobra.NoArgs, func(ctx context.Context, sqlDB *sql.DB, dialect string, _ []string) error {
			return migrate.Run(ctx, sqlDB, dialect, migrationsDir, "up")
		}),
		dbCommand("down", "Roll back the most recent migration", cobra.NoArgs, func(ctx context.Context, sqlDB *sql.DB, dialect string, _ []string) error {
			return migrate.Run(ctx, sqlDB, dialect, migrationsDir, "down")
		}),
		dbCommand("status", "Print the applied state of every migration", cobra.NoArgs, func(ctx context.Context, sqlDB *sql.DB, dialect string, _ []string) error {
			return migrate.Run(ctx, sqlDB, dialect, migrationsDir, "status")
		}),
		dbCommand("version <YYYYMMDDHHMMSS>", "Migrate up or down to the given version", cobra.ExactArgs(1), func(ctx context.Context, sqlDB *sql.DB, dialect string, args []string) error {
			return migrate.MigrateToVersion(ctx, sqlDB, dialect, migrationsDir, args[0])
		}),
		createCmd(),
		validateCmd(),
	)
	return root
}

type dbAction func(ctx context.Context, sqlDB *sql.DB, dialect string, args []string) error

// dbCommand wraps commands that need a live database connection.
func dbCommand(use, short string, args cobra.PositionalArgs, action dbAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logg := logger.New(logger.Options{
				ServiceName: "migrate",
				Level:       logger.ParseLevel(cfg.App.LogLevel),
				WarnStack:   cfg.App.LogWarnStack,
			})
			ctx := logg.WithFields(cmd.Context(), map[string]any{
				"env": cfg.App.Env,
				"cmd": cmd.Name(),
				"dir": migrationsDir,
			})

			dialect, err := migrate.Dialect(cfg.DB.Driver)
			if err != nil {
				return err
			}

			dbClient, err := db.New(ctx, cfg.DB, logg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer func() {
				if err := dbClient.Close(); err != nil {
					logg.Error(ctx, "error closing database", err)
				}
			}()

			sqlDB, err := dbClient.DB().DB()
			if err != nil {
				return fmt.Errorf("sql database: %w", err)
			}

			logg.Info(ctx, "migrate ready")
			if err := action(ctx, sqlDB, dialect, args); err != nil {
				return fmt.Errorf("goose %s failed: %w", cmd.Name(), err)
			}
			return nil
		},
	}
}

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Write a new timestamped SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(migrationsDir, args[0])
			if err != nil {
				return fmt.Errorf("create migration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check migration file names and goose annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrate.ValidateDir(migrationsDir); err != nil {
				return fmt.Errorf("migration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
			return nil
		},
	}
}
