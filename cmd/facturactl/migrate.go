package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"facturard/internal/infrastructure/storage/postgres"
)

func migrateCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	withMigrator := func(fn func(cmd *cobra.Command, m *postgres.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			if err := env.load(); err != nil {
				return err
			}
			m, err := postgres.NewMigrator(env.cfg.Database.URL, env.log)
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(cmd, m)
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(_ *cobra.Command, m *postgres.Migrator) error {
			return m.Up()
		}),
	}

	var steps int
	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (one step by default)",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(_ *cobra.Command, m *postgres.Migrator) error {
			if all {
				return m.Down()
			}
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}
			return m.Steps(-steps)
		}),
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m *postgres.Migrator) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if dirty {
				fmt.Fprintf(cmd.OutOrStdout(), "%d (dirty)\n", v)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		}),
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
