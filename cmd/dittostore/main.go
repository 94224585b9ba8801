// Command dittostore drives path-addressed operations against the configured
// object store: move, copy and rename of subtrees, listings, version
// snapshots and orphan collection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittostore/internal/logger"
	"github.com/marmos91/dittostore/pkg/config"
	"github.com/marmos91/dittostore/pkg/mutation"
	"github.com/spf13/cobra"
)

var (
	configFile string
	userName   string

	// cfg is loaded by the root command before any subcommand runs
	cfg *config.Config

	// newServices builds the components a command runs against
	newServices = config.NewServices
)

var rootCmd = &cobra.Command{
	Use:   "dittostore",
	Short: "DittoStore - filesystem semantics over an object store",
	Long: `DittoStore gives an S3-compatible object store filesystem-like semantics:
hierarchical keys, move/copy/rename of whole subtrees, recursive listings and
per-object version snapshots.

Paths carry the org as their first segment: /acme/docs/report.html`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: $XDG_CONFIG_HOME/dittostore/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&userName, "user", "u", os.Getenv("USER"), "User name checked against the ACL rules")

	rootCmd.AddCommand(
		newMutationCmd(mutation.OpMove),
		newMutationCmd(mutation.OpCopy),
		newMutationCmd(mutation.OpRename),
		lsCmd,
		countCmd,
		keysCmd,
		putCmd,
		getCmd,
		mkdirCmd,
		versionCmd,
		gcCmd,
		indexCmd,
		configCmd,
	)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if err := logger.Configure(loaded.Logging.Level, loaded.Logging.Format, loaded.Logging.Output); err != nil {
		return err
	}

	cfg = loaded
	return nil
}

// withServices builds every component from cfg, runs fn and releases them.
// The metrics server, when enabled, serves for the lifetime of fn.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *config.Services) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("%v", err)
		}
	}()

	if srv := svc.Metrics.Server; srv != nil {
		metricsCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := srv.Start(metricsCtx); err != nil {
				logger.Error("%v", err)
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	return fn(ctx, svc)
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if cerr := logger.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error onto a process exit status: 1 for request errors
// (4xx) and 2 for everything else.
func exitCode(err error) int {
	if mutation.StatusOf(err) < 500 {
		return 1
	}
	return 2
}
