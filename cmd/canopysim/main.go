package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/urbansense/canopysim/pkg/sim"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "canopysim",
		Short:        "Synthetic telemetry generator for heritage-site smart canopies",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func generateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one snapshot and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.hours, "hours", sim.HoursDay, "time horizon in hours (24 or 168)")
	cmd.Flags().StringVar(&opts.site, "site", "", "location id (default: first location in the catalog)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().StringVar(&opts.sitesFile, "sites", "", "site catalog YAML (default: built-in Manila catalog)")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [project-path]",
		Short: "Validate a site catalog without generating anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(cmd.OutOrStdout(), dir)
		},
	}
}

func checkCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Generate snapshots and verify their invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.hours, "hours", sim.HoursDay, "time horizon in hours (24 or 168)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "seed of the first run")
	cmd.Flags().IntVar(&opts.runs, "runs", 10, "number of snapshots to check")
	cmd.Flags().StringVar(&opts.sitesFile, "sites", "", "site catalog YAML (default: built-in Manila catalog)")
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the refresh feed and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default: ./canopysim.yaml if present)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port, overrides listen_addr")
	return cmd
}
