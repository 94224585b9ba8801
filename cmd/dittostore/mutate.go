package main

import (
	"context"
	"fmt"
	"io"

	"github.com/marmos91/dittostore/internal/logger"
	"github.com/marmos91/dittostore/pkg/config"
	"github.com/marmos91/dittostore/pkg/mutation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var mutationHelp = map[mutation.Op]string{
	mutation.OpMove:   "Move a subtree, appending a suffix when the destination is taken",
	mutation.OpCopy:   "Copy a subtree onto the named destination",
	mutation.OpRename: "Rename a subtree onto the named destination",
}

// newMutationCmd builds the move, copy and rename commands. They share one
// pipeline: validate, authorize, then execute.
func newMutationCmd(op mutation.Op) *cobra.Command {
	var (
		token  string
		once   bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s SOURCE DESTINATION", op),
		Short: mutationHelp[op],
		Example: fmt.Sprintf(`  dittostore %s /acme/docs/drafts /acme/docs/archive
  dittostore %s /acme/site/index.html /acme/site/home.html`, op, op),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := mutation.Values{mutation.FieldDestination: args[1]}
			if token != "" {
				form[mutation.FieldContinuationToken] = token
			}

			return withServices(cmd, func(ctx context.Context, svc *config.Services) error {
				plan, err := svc.Validator.Validate(ctx, op, form, mutation.ParseLocation(args[0]))
				if err != nil {
					return err
				}
				if err := mutation.Authorize(svc.ACL, userName, plan); err != nil {
					return err
				}

				if dryRun {
					return printYAML(cmd.OutOrStdout(), plan)
				}

				run := svc.Executor.ExecuteAll
				if once {
					run = svc.Executor.Execute
				}
				res, err := run(ctx, plan)
				if res != nil {
					printResult(cmd.OutOrStdout(), plan, res)
				}
				if err != nil {
					return err
				}
				if len(res.Failed) > 0 {
					return fmt.Errorf("%d key(s) failed; rerun the same command to retry", len(res.Failed))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&token, "continuation-token", "", "Resume a batched execution from this token")
	cmd.Flags().BoolVar(&once, "once", false, "Execute a single batch and print the token for the next one")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the validated plan without executing it")

	return cmd
}

func printResult(w io.Writer, plan *mutation.Plan, res *mutation.Result) {
	_, _ = fmt.Fprintf(w, "%s %s -> %s: copied=%d deleted=%d failed=%d (operation %s)\n",
		plan.Op, plan.Source, plan.Destination, res.Copied, res.Deleted, len(res.Failed), res.OperationID)

	for _, f := range res.Failed {
		_, _ = fmt.Fprintf(w, "  %s failed at %s: %v\n", f.Key, f.Stage, f.Err)
	}

	if !res.Done() {
		_, _ = fmt.Fprintf(w, "continuation token: %s\n", res.ContinuationToken)
	}
	logger.Debug("Operation %s finished: %+v", res.OperationID, res)
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	return enc.Close()
}
