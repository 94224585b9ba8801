package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/dittostore/pkg/acl"
	"github.com/marmos91/dittostore/pkg/config"
	"github.com/marmos91/dittostore/pkg/mutation"
	"github.com/spf13/cobra"
)

var (
	versionLabel  string
	versionOutput string
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"versions"},
	Short:   "Manage version snapshots of an object",
}

var versionCreateCmd = &cobra.Command{
	Use:   "create PATH",
	Short: "Snapshot the current content of an object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc := mutation.ParseLocation(args[0])

		return withServices(cmd, func(ctx context.Context, svc *config.Services) error {
			if err := authorize(svc.ACL, loc, acl.ActionWrite); err != nil {
				return err
			}
			rec, err := svc.Versions.Create(ctx, loc.Path(), versionLabel)
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), rec)
		})
	},
}

var versionListCmd = &cobra.Command{
	Use:   "list PATH",
	Short: "List the snapshots of an object, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc := mutation.ParseLocation(args[0])

		return withServices(cmd, func(ctx context.Context, svc *config.Services) error {
			if err := authorize(svc.ACL, loc, acl.ActionRead); err != nil {
				return err
			}
			records, err := svc.Versions.List(ctx, loc.Path())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "TIMESTAMP\tLABEL\tSIZE\tCREATED\tURL")
			for _, r := range records {
				label := r.Label
				if label == "" {
					label = "-"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					strconv.FormatInt(r.Timestamp, 10), label,
					humanize.IBytes(uint64(max(r.Size, 0))), humanize.Time(r.CreatedAt), r.URL)
			}
			return tw.Flush()
		})
	},
}

var versionGetCmd = &cobra.Command{
	Use:   "get PATH [REF]",
	Short: "Print a snapshot by label or timestamp (latest when REF is omitted)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc := mutation.ParseLocation(args[0])
		ref := ""
		if len(args) == 2 {
			ref = args[1]
		}

		return withServices(cmd, func(ctx context.Context, svc *config.Services) error {
			if err := authorize(svc.ACL, loc, acl.ActionRead); err != nil {
				return err
			}
			rec, err := svc.Versions.Resolve(ctx, loc.Path(), ref)
			if err != nil {
				return err
			}
			body, err := svc.Versions.Open(ctx, rec)
			if err != nil {
				return err
			}
			defer func() { _ = body.Close() }()

			return copyOut(cmd.OutOrStdout(), versionOutput, body)
		})
	},
}

func init() {
	versionCreateCmd.Flags().StringVarP(&versionLabel, "label", "l", "", "Human-readable name of the snapshot")
	versionGetCmd.Flags().StringVarP(&versionOutput, "output", "o", "", "Write to this file instead of stdout")

	versionCmd.AddCommand(versionCreateCmd, versionListCmd, versionGetCmd)
}
