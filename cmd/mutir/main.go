// Package main provides the CLI interface for the mutir mutation testing
// tool, grounded on sivchari/gomu's cmd/gomu/main.go: a cobra root command
// plus run/version/config/ci subcommands, a persistent --config flag, and
// a top-level main that maps any returned error to a non-zero exit code.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sivchari/mutir/internal/config"
	"github.com/sivchari/mutir/internal/toolchain"
	"github.com/sivchari/mutir/pkg/mutir"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "mutir",
	Short: "A mutation testing engine for LLVM-IR modules",
	Long: `mutir is a mutation testing tool that validates the quality of a native
test suite. It introduces controlled changes (mutations) to compiled
LLVM-IR modules and checks whether the test suite catches them.

Features:
- Arithmetic and conditional-boundary mutation operators
- Junk-mutant filtering over the original C/C++ source via tree-sitter
- A per-test run history stamped with a content digest of the inputs
- CI mode with a configurable quality gate`,
	RunE: runMutationTesting,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run mutation testing for the configured bitcode modules",
	Args:  cobra.NoArgs,
	RunE:  runMutationTesting,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println("mutir version 0.1.0")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage mutir configuration",
	Long:  "Commands for managing mutir configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a new mutir configuration file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")

		filename := ".mutir.yaml"

		if _, err := os.Stat(filename); err == nil && !force {
			return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", filename)
		}

		if err := config.Default().Save(filename); err != nil {
			return err
		}

		fmt.Printf("created %s\n", filename)
		fmt.Println("edit bitcode.paths to name the modules this run should load")

		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate a configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path := configFile
		if len(args) > 0 {
			path = args[0]
		}

		if _, err := config.Load(path); err != nil {
			fmt.Printf("configuration is invalid: %v\n", err)

			return err
		}

		fmt.Println("configuration is valid")

		return nil
	},
}

var ciCmd = &cobra.Command{
	Use:   "ci",
	Short: "Run mutation testing in CI mode",
	Long: `Run mutation testing with CI mode forced on, regardless of the
configuration file's ci.enabled setting: the quality gate is evaluated,
a CI-formatted report is written under ci.reports.outputDir, and a
non-zero exit code is returned when the gate fails and
ci.qualityGate.failOnQualityGate is set.`,
	Args: cobra.NoArgs,
	RunE: runCIMutationTesting,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .mutir.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ciCmd)
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().Bool("force", false, "overwrite an existing config file")
}

// collaboratorsFromConfig builds the default native-toolchain
// collaborators: a TextLoader for cfg's bitcode modules and a
// CCGenerator/CCLinker pair that shell out to the system C compiler
// (internal/toolchain), since this core never parses real LLVM bitcode
// or owns a native backend itself (spec.md §1, §9).
func collaboratorsFromConfig(cfg *config.Config) mutir.Collaborators {
	cc := os.Getenv("MUTIR_CC")

	return mutir.Collaborators{
		Loader: toolchain.NewTextLoader(),
		Gen:    &toolchain.CCGenerator{CC: cc},
		Linker: &toolchain.CCLinker{CC: cc},
	}
}

func runMutationTesting(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if verbose {
		cfg.Verbose = true
	}

	engine, err := mutir.New(cfg, collaboratorsFromConfig(cfg), os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	summary, err := engine.Run(context.Background())
	if err != nil {
		return fmt.Errorf("mutation testing failed: %w", err)
	}

	fmt.Printf("mutation score: %.2f%% (%d/%d killed)\n",
		summary.Statistics.Score, summary.KilledMutants, summary.TotalMutants)

	return nil
}

func runCIMutationTesting(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.CI.Enabled = true
	if verbose {
		cfg.Verbose = true
	}

	engine, err := mutir.New(cfg, collaboratorsFromConfig(cfg), os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	summary, err := engine.Run(context.Background())
	if summary != nil {
		fmt.Printf("mutation score: %.2f%% (%d/%d killed)\n",
			summary.Statistics.Score, summary.KilledMutants, summary.TotalMutants)
	}

	if err != nil {
		return fmt.Errorf("CI mutation testing failed: %w", err)
	}

	fmt.Println("CI mutation testing completed successfully")

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
