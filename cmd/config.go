package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/assetry/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage assetry configuration",
	Long: `Manage assetry configuration files and settings.

Examples:
  assetry config show                 # Show the effective configuration
  assetry config show --format json
  assetry config init                 # Write .assetry.yml with the defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the configuration after the file, environment variables,
flags and defaults have all been applied.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var (
	configFormat string
	configOutput string
	configForce  bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configShowCmd.Flags().StringVarP(&configFormat, "format", "f", "yaml", "Output format (yaml, json)")
	configInitCmd.Flags().StringVarP(&configOutput, "output", "o", ".assetry.yml", "File to write")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch configFormat {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (supported: yaml, json)", configFormat)
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configOutput); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configOutput)
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return err
	}
	header := []byte("# assetry configuration. Every key can be overridden with ASSETRY_<SECTION>_<KEY>.\n")
	if err := os.WriteFile(configOutput, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", configOutput, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configOutput)
	return nil
}
