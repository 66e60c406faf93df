package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"facturard/internal/app"
	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
	"facturard/internal/domain/batches"
)

func batchCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Inspect and register NCF numbering batches",
	}
	cmd.AddCommand(batchListCmd(env), batchCreateCmd(env))
	return cmd
}

func withApp(env *cliEnv, fn func(ctx context.Context, a *app.App) error) error {
	if err := env.load(); err != nil {
		return err
	}
	ctx := context.Background()
	a, err := app.New(ctx, env.cfg, env.log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func batchListCmd(env *cliEnv) *cobra.Command {
	var owner, docType string
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an account's batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerID, err := id.Parse(owner)
			if err != nil {
				return fmt.Errorf("--owner: %w", err)
			}
			return withApp(env, func(ctx context.Context, a *app.App) error {
				list, err := a.Batches.ListFor(ctx, ownerID, batches.Filter{
					DocumentType: numerator.DocumentType(docType),
					ActiveOnly:   activeOnly,
				})
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTYPE\tRANGE\tNEXT\tREMAINING\tEXPIRES\tACTIVE")
				for _, b := range list {
					expires := "-"
					if b.ExpiresAt != nil {
						expires = b.ExpiresAt.Format(time.DateOnly)
					}
					next := "-"
					if !b.Exhausted() {
						next = b.NextIdentifier()
					}
					fmt.Fprintf(w, "%s\t%s%s\t%d-%d\t%s\t%d\t%s\t%t\n",
						b.ID, b.Series, b.DocumentType, b.RangeStart, b.RangeEnd,
						next, b.Remaining(), expires, b.IsActive)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "account id")
	cmd.Flags().StringVar(&docType, "type", "", "document type, e.g. 32")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active batches")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func batchCreateCmd(env *cliEnv) *cobra.Command {
	var owner, series, docType, expires string
	var from, to int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a range authorized by DGII; replaces the active batch of the same type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerID, err := id.Parse(owner)
			if err != nil {
				return fmt.Errorf("--owner: %w", err)
			}
			req := batches.CreateRequest{
				DocumentType: numerator.DocumentType(docType),
				Series:       numerator.Series(strings.ToUpper(series)),
				RangeStart:   from,
				RangeEnd:     to,
			}
			if expires != "" {
				t, err := time.Parse(time.DateOnly, expires)
				if err != nil {
					return fmt.Errorf("--expires: %w", err)
				}
				req.ExpiresAt = &t
			}

			return withApp(env, func(ctx context.Context, a *app.App) error {
				b, err := a.Batches.CreateFor(ctx, ownerID, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s: %s%s %d-%d, next %s\n",
					b.ID, b.Series, b.DocumentType, b.RangeStart, b.RangeEnd, b.NextIdentifier())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "account id")
	cmd.Flags().StringVar(&series, "series", "E", "series prefix, E or B")
	cmd.Flags().StringVar(&docType, "type", "", "document type, e.g. 32")
	cmd.Flags().Int64Var(&from, "from", 1, "first number of the range")
	cmd.Flags().Int64Var(&to, "to", 0, "last number of the range (inclusive)")
	cmd.Flags().StringVar(&expires, "expires", "", "expiry date YYYY-MM-DD")
	for _, f := range []string{"owner", "type", "to"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
