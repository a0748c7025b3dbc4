package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewRunCmd builds the run command group.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage runs",
	}

	cmd.AddCommand(
		newRunListCmd(clientFn, outputFn),
		newRunStartCmd(clientFn, outputFn),
		newRunShowCmd(clientFn, outputFn),
		newRunCancelCmd(clientFn, outputFn),
		newRunResultsCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var pipelineID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(ListRunsOpts{
				PipelineID: pipelineID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "PIPELINE_ID", "VERSION", "STATUS", "COST", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID, r.PipelineID, strconv.Itoa(r.Version), r.Status,
					fmt.Sprintf("%.4f", r.TotalCost), r.CreatedAt,
				}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&pipelineID, "pipeline-id", "", "Filter by pipeline ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, COMPLETED, FAILED, CANCELLED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRunStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var version int
	var input string
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "start PIPELINE_ID",
		Short: "Submit a new run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateRunRequest{
				Input:          input,
				IdempotencyKey: idempotencyKey,
			}
			if cmd.Flags().Changed("version") {
				req.Version = &version
			}

			run, err := client.CreateRun(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run submitted: %s", run.ID))
			out.Print(
				[]string{"ID", "PIPELINE_ID", "VERSION", "STATUS", "CREATED"},
				[][]string{{run.ID, run.PipelineID, strconv.Itoa(run.Version), run.Status, run.CreatedAt}},
				run,
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "Config version (latest if not specified)")
	cmd.Flags().StringVar(&input, "input", "", "Initial input bound to {{input}}")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key")

	return cmd
}

func newRunShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "PIPELINE_ID", "VERSION", "STATUS", "COST", "ERROR", "CREATED"},
				[][]string{{
					run.ID, run.PipelineID, strconv.Itoa(run.Version), run.Status,
					fmt.Sprintf("%.4f", run.TotalCost), run.Error, run.CreatedAt,
				}},
				run,
			)
			return nil
		},
	}
}

func newRunCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.CancelRun(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run cancelled: %s", run.ID))
			return nil
		},
	}
}

func newRunResultsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "results RUN_ID",
		Short: "List step results of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			results, err := client.ListResults(args[0])
			if err != nil {
				return err
			}

			headers := []string{"STEP", "TYPE", "MODEL", "SUCCESS", "COST", "DURATION", "ERROR"}
			rows := make([][]string, len(results))
			for i, res := range results {
				rows[i] = []string{
					res.StepName, res.StepType, res.Model,
					strconv.FormatBool(res.Success),
					fmt.Sprintf("%.4f", res.Cost),
					fmt.Sprintf("%dms", res.DurationMS),
					res.Error,
				}
			}

			out.Print(headers, rows, results)
			return nil
		},
	}
}
