// Fabrica CLI — command line tool for managing pipelines, runs and
// schedules through the HTTP API, plus local execution.
//
// Usage:
//
//	fabrica [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Commands:
//
//	pipeline  Manage pipelines
//	run       Manage runs
//	schedule  Manage schedules
//	models    Browse the model catalog
//	exec      Execute a pipeline config locally
//	estimate  Estimate the cost of a pipeline config
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rovesti/fabrica/internal/cli"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	_ = godotenv.Load()

	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "fabrica",
		Short:         "Fabrica CLI — AI content pipeline tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewPipelineCmd(clientFn, outputFn),
		cli.NewRunCmd(clientFn, outputFn),
		cli.NewScheduleCmd(clientFn, outputFn),
		cli.NewModelsCmd(clientFn, outputFn),
		cli.NewExecCmd(outputFn),
		cli.NewEstimateCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
