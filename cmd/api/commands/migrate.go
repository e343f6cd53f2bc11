package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/mallmap/core/internal/infrastructure/config"
)

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand(opts *Options) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage the postgres mall_documents schema (up, down, version)",
	}

	var steps int
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Run up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, opts, "up", steps)
		},
	}
	upCmd.Flags().IntVar(&steps, "steps", 0, "Number of migrations to apply (0 applies all)")

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Run down migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, opts, "down", steps)
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 0, "Number of migrations to revert (0 reverts all)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showMigrationVersion(cmd, opts)
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
	return migrateCmd
}

func newMigrator(opts *Options) (*migrate.Migrate, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		return nil, fmt.Errorf("migrations apply to the postgres driver only, storage driver is %q", cfg.Storage.Driver)
	}

	source, err := migrationSource(cfg.Database.MigrationsPath)
	if err != nil {
		return nil, err
	}

	m, err := migrate.New(source, cfg.Database.GetMigrationURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

// migrationSource turns a directory into a file:// source URL.
func migrationSource(dir string) (string, error) {
	if dir == "" {
		dir = "migrations"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path: %w", err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func runMigration(cmd *cobra.Command, opts *Options, direction string, steps int) error {
	m, err := newMigrator(opts)
	if err != nil {
		return err
	}
	defer m.Close()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	out := cmd.OutOrStdout()
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintln(out, "No migrations to run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintf(out, "Migration %s completed successfully\n", direction)
	return nil
}

func showMigrationVersion(cmd *cobra.Command, opts *Options) error {
	m, err := newMigrator(opts)
	if err != nil {
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Current migration version: %d\n", version)
	fmt.Fprintf(cmd.OutOrStdout(), "Dirty: %t\n", dirty)
	return nil
}
