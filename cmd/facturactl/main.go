// Package main provides facturactl, the operator CLI for schema migrations,
// tax ID checks and numbering batch administration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"facturard/internal/config"
	"facturard/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "facturactl",
		Short:         "facturard administration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	env := &cliEnv{verbose: &verbose}
	cmd.AddCommand(
		migrateCmd(env),
		taxidCmd(),
		batchCmd(env),
	)
	return cmd
}

// cliEnv lazily loads configuration and the logger for subcommands that
// touch the database.
type cliEnv struct {
	verbose *bool
	cfg     *config.Configuration
	log     *logger.Logger
}

func (e *cliEnv) load() error {
	if e.cfg != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := "info"
	if *e.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Development: true})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	e.cfg, e.log = cfg, log
	return nil
}
