package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rovesti/fabrica/internal/engine"
	"github.com/rovesti/fabrica/internal/executor"
	"github.com/rovesti/fabrica/internal/models"
	"github.com/rovesti/fabrica/internal/runner"
)

// localCoordinator builds a Coordinator backed by the gateway
// executors, configured from the environment.
func localCoordinator() *runner.Coordinator {
	gateway := executor.GatewayConfig{
		BaseURL: os.Getenv("GATEWAY_URL"),
		APIKey:  os.Getenv("GATEWAY_API_KEY"),
	}
	return runner.New(runner.Config{
		Executors: executor.DefaultRegistry(gateway),
		Models:    models.DefaultRegistry(),
	})
}

// NewExecCmd builds the exec command: run a pipeline config locally,
// without the API server or the database.
func NewExecCmd(outputFn func() *Output) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "exec CONFIG_FILE",
		Short: "Execute a pipeline config locally",
		Long: `Execute a pipeline config on this machine.

Steps are dispatched to the generation gateway configured via
GATEWAY_URL and GATEWAY_API_KEY. Nothing is persisted; the run
report is printed when the pipeline finishes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			cfg, err := engine.ParseFile(args[0])
			if err != nil {
				return err
			}

			report, err := localCoordinator().Execute(cmd.Context(), cfg, input)
			if err != nil {
				return err
			}

			headers := []string{"STEP", "TYPE", "MODEL", "SUCCESS", "COST", "DURATION", "ERROR"}
			rows := make([][]string, len(report.Results))
			for i, res := range report.Results {
				rows[i] = []string{
					res.StepName, res.StepType, res.Model,
					strconv.FormatBool(res.Success),
					fmt.Sprintf("%.4f", res.Cost),
					res.Duration.Round(time.Millisecond).String(),
					res.Error,
				}
			}

			out.Print(headers, rows, report)
			// Local runs have no persisted run ID to report.
			out.Success(fmt.Sprintf("Run %s (total cost %.4f, %s)",
				report.Status, report.TotalCost, report.Duration.Round(time.Millisecond)))

			if !report.Success {
				return fmt.Errorf("pipeline finished with failed steps")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Initial input bound to {{input}}")

	return cmd
}

// NewEstimateCmd builds the estimate command: price a pipeline config
// locally against the model catalog.
func NewEstimateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate CONFIG_FILE",
		Short: "Estimate the cost of a pipeline config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			cfg, err := engine.ParseFile(args[0])
			if err != nil {
				return err
			}

			estimate, err := localCoordinator().Estimate(cfg)
			if err != nil {
				return err
			}

			headers := []string{"STEP", "TYPE", "MODEL", "COST"}
			rows := make([][]string, len(estimate.Breakdown))
			for i, item := range estimate.Breakdown {
				rows[i] = []string{
					item.StepName, item.StepType, item.Model,
					fmt.Sprintf("%.4f", item.Cost),
				}
			}

			out.Print(headers, rows, estimate)
			out.Success(fmt.Sprintf("Total: %.4f", estimate.Total))
			for _, warning := range estimate.Warnings {
				out.Error(warning)
			}
			return nil
		},
	}
}

// NewModelsCmd builds the models command group.
func NewModelsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Browse the model catalog",
	}

	var category string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available models",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			catalog, err := client.ListModels(category)
			if err != nil {
				return err
			}

			headers := []string{"ID", "CATEGORY", "PROVIDER", "DEFAULT"}
			rows := make([][]string, len(catalog))
			for i, m := range catalog {
				rows[i] = []string{m.ID, m.Category, m.Provider, strconv.FormatBool(m.Default)}
			}

			out.Print(headers, rows, catalog)
			return nil
		},
	}
	listCmd.Flags().StringVar(&category, "category", "", "Filter by step type category")

	cmd.AddCommand(listCmd)
	return cmd
}
