package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a projecthub configuration file without starting the server.

This command loads .env, parses the YAML, expands environment variables,
and validates all fields. Storage is not contacted. It's useful for CI/CD
pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  projecthub validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if configFile, _ := cmd.Flags().GetString("config"); configFile == "" {
		return errors.New("--config is required")
	}

	local, cloud := 0, 0
	for _, p := range cfg.Projects {
		if p.LocalURL != "" {
			local++
		}
		if p.CloudURL != "" {
			cloud++
		}
	}

	policy := cfg.MergePolicy
	if policy == "" {
		policy = "last_write_wins"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:           %d\n", cfg.Port)
	fmt.Fprintf(out, "  Sweep interval: %s\n", cfg.SweepInterval.Duration())
	fmt.Fprintf(out, "  Probe timeout:  %s\n", cfg.ProbeTimeout.Duration())
	fmt.Fprintf(out, "  Merge policy:   %s\n", policy)
	fmt.Fprintf(out, "  Storage:        %s\n", cfg.Storage.Driver)
	fmt.Fprintf(out, "  Projects:       %d (%d local, %d cloud endpoints)\n",
		len(cfg.Projects), local, cloud)

	return nil
}
