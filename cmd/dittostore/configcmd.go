package main

import (
	"fmt"
	"os"

	"github.com/marmos91/dittostore/pkg/config"
	"github.com/spf13/cobra"
)

var (
	configForce  bool
	configPath   string
	schemaOutput string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or inspect the configuration file",
	// Subcommands load the configuration themselves; init must work
	// without one.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if err := config.InitConfigToPath(path, configForce); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return err
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (file, environment and defaults)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd, args); err != nil {
			return err
		}
		out, err := config.RenderYAML(cfg)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := config.Schema()
		if err != nil {
			return err
		}
		if schemaOutput != "" {
			if err := os.WriteFile(schemaOutput, out, 0644); err != nil {
				return fmt.Errorf("failed to write schema: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", schemaOutput)
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing file")
	configInitCmd.Flags().StringVar(&configPath, "path", "", "Write to this path instead of the default location")

	configSchemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Write the schema to this file")

	configCmd.AddCommand(configInitCmd, configShowCmd, configSchemaCmd)
}
