package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/dittostore/internal/logger"
	"github.com/marmos91/dittostore/pkg/config"
	"github.com/marmos91/dittostore/pkg/index"
	"github.com/marmos91/dittostore/pkg/keys"
	"github.com/spf13/cobra"
)

var gcDryRun bool

var gcCmd = &cobra.Command{
	Use:   "gc ORG",
	Short: "Delete version snapshots whose object no longer exists",
	Long: `Delete version snapshots whose primary object no longer exists.

Collection only runs when invoked; nothing deletes snapshots automatically.
Use --dry-run to report what would be deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		org, _ := keys.Split(args[0])
		if org == "" {
			return errors.New("an org is required")
		}
		if cmd.Flags().Changed("dry-run") {
			cfg.GC.DryRun = gcDryRun
		}

		return withServices(cmd, func(ctx context.Context, svc *config.Services) error {
			stats, err := svc.Collector.Collect(ctx, org)
			if stats != nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), stats.Summary())
			}
			if err != nil {
				return err
			}
			if stats.FailedCount > 0 {
				return fmt.Errorf("%d snapshot(s) could not be deleted", stats.FailedCount)
			}
			return nil
		})
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain the path-existence index",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild PATH",
	Short: "Add every key of a subtree to the path index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := subtreePath(args[0])

		return withServices(cmd, func(ctx context.Context, svc *config.Services) error {
			if svc.Index == nil {
				return errors.New("no path index configured (index.type is none)")
			}
			n, err := index.Rebuild(ctx, svc.Index, svc.Store, prefix)
			if err != nil {
				return err
			}
			logger.Info("Path index rebuilt for %q", prefix)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "indexed %s keys\n", humanize.Comma(int64(n)))
			return err
		})
	},
}

func init() {
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "Report orphaned snapshots without deleting them")

	indexCmd.AddCommand(indexRebuildCmd)
}
