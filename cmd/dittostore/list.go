package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/dittostore/pkg/config"
	"github.com/marmos91/dittostore/pkg/enumerate"
	"github.com/marmos91/dittostore/pkg/keys"
	"github.com/spf13/cobra"
)

var (
	lsRecursive bool
	lsYAML      bool

	keysToken string
	keysLimit int
)

var lsCmd = &cobra.Command{
	Use:   "ls PATH",
	Short: "List the children of a folder, or a whole subtree with -r",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := subtreePath(args[0])

		return withServices(cmd, func(ctx context.Context, svc *config.Services) error {
			var (
				entries []enumerate.Entry
				err     error
			)
			if lsRecursive {
				entries, err = enumerate.ListEntries(ctx, svc.Store, prefix, userName, svc.ACL)
			} else {
				entries, err = enumerate.ListChildren(ctx, svc.Store, prefix, userName, svc.ACL)
			}
			if err != nil {
				return err
			}

			if lsYAML {
				return printYAML(cmd.OutOrStdout(), entries)
			}
			return printEntries(cmd.OutOrStdout(), entries)
		})
	},
}

var countCmd = &cobra.Command{
	Use:   "count PATH",
	Short: "Count the keys of a subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := subtreePath(args[0])

		return withServices(cmd, func(ctx context.Context, svc *config.Services) error {
			n, err := enumerate.Count(ctx, svc.Store, prefix)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), humanize.Comma(int64(n)))
			return err
		})
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys PATH",
	Short: "Print one page of the keys of a subtree",
	Long: `Print one page of the keys of a subtree in lexicographic order.

When more keys remain, the last line is the token to pass back with
--continuation-token to read the next page.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := subtreePath(args[0])

		return withServices(cmd, func(ctx context.Context, svc *config.Services) error {
			page, err := enumerate.ListPage(ctx, svc.Store, prefix, keysToken, keysLimit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, obj := range page.Objects {
				_, _ = fmt.Fprintln(w, obj.Key)
			}
			if page.NextToken != "" {
				_, _ = fmt.Fprintf(w, "continuation token: %s\n", page.NextToken)
			}
			return nil
		})
	},
}

func init() {
	lsCmd.Flags().BoolVarP(&lsRecursive, "recursive", "r", false, "List every key of the subtree")
	lsCmd.Flags().BoolVar(&lsYAML, "yaml", false, "Print entries as YAML")

	keysCmd.Flags().StringVar(&keysToken, "continuation-token", "", "Token printed by the previous page")
	keysCmd.Flags().IntVar(&keysLimit, "limit", enumerate.DefaultPageSize, "Maximum number of keys per page")
}

// subtreePath turns a PATH argument into the org-qualified key prefix it
// names. Stored keys keep their case, so unlike a destination it is not
// lower-cased.
func subtreePath(arg string) string {
	return strings.Trim(arg, keys.Separator)
}

func printEntries(w io.Writer, entries []enumerate.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		kind, size, modified := "file", humanize.IBytes(uint64(max(e.Size, 0))), ""
		if e.IsFolder {
			kind, size = "dir", "-"
		}
		if !e.LastModified.IsZero() {
			modified = humanize.Time(e.LastModified)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", kind, size, modified, e.Path)
	}
	return tw.Flush()
}
