package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rovesti/fabrica/internal/engine"
)

// NewPipelineCmd builds the pipeline command group.
func NewPipelineCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Manage pipelines",
	}

	cmd.AddCommand(
		newPipelineListCmd(clientFn, outputFn),
		newPipelineCreateCmd(clientFn, outputFn),
		newPipelineShowCmd(clientFn, outputFn),
		newPipelineUpdateCmd(clientFn, outputFn),
		newPipelineDeleteCmd(clientFn, outputFn),
		newPipelineVersionsCmd(clientFn, outputFn),
		newPipelinePublishCmd(clientFn, outputFn),
	)

	return cmd
}

func newPipelineListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all pipelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			pipelines, err := client.ListPipelines()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "ACTIVE", "CREATED"}
			rows := make([][]string, len(pipelines))
			for i, p := range pipelines {
				rows[i] = []string{p.ID, p.Name, strconv.FormatBool(p.IsActive), p.CreatedAt}
			}

			out.Print(headers, rows, pipelines)
			return nil
		},
	}
}

func newPipelineCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			pipeline, err := client.CreatePipeline(CreatePipelineRequest{
				Name:        name,
				Description: description,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Pipeline created: %s", pipeline.ID))
			out.Print(
				[]string{"ID", "NAME", "ACTIVE", "CREATED"},
				[][]string{{pipeline.ID, pipeline.Name, strconv.FormatBool(pipeline.IsActive), pipeline.CreatedAt}},
				pipeline,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Pipeline name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Pipeline description")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newPipelineShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show pipeline details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			pipeline, err := client.GetPipeline(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "NAME", "DESCRIPTION", "ACTIVE", "CREATED"},
				[][]string{{pipeline.ID, pipeline.Name, pipeline.Description, strconv.FormatBool(pipeline.IsActive), pipeline.CreatedAt}},
				pipeline,
			)
			return nil
		},
	}
}

func newPipelineUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var description string
	var active string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdatePipelineRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("active") {
				b, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("invalid value for --active: %s", active)
				}
				req.IsActive = &b
			}

			pipeline, err := client.UpdatePipeline(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Pipeline updated")
			out.Print(
				[]string{"ID", "NAME", "ACTIVE", "CREATED"},
				[][]string{{pipeline.ID, pipeline.Name, strconv.FormatBool(pipeline.IsActive), pipeline.CreatedAt}},
				pipeline,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New pipeline name")
	cmd.Flags().StringVar(&description, "description", "", "New pipeline description")
	cmd.Flags().StringVar(&active, "active", "", "Set active status (true/false)")

	return cmd
}

func newPipelineDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeletePipeline(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Pipeline deleted: %s", args[0]))
			return nil
		},
	}
}

func newPipelineVersionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "versions PIPELINE_ID",
		Short: "List pipeline config versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			versions, err := client.ListVersions(args[0])
			if err != nil {
				return err
			}

			headers := []string{"PIPELINE_ID", "VERSION", "CREATED"}
			rows := make([][]string, len(versions))
			for i, v := range versions {
				rows[i] = []string{v.PipelineID, strconv.Itoa(v.Version), v.CreatedAt}
			}

			out.Print(headers, rows, versions)
			return nil
		},
	}
}

func newPipelinePublishCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "publish PIPELINE_ID",
		Short: "Publish a new config version from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			// Parse locally first so a broken file fails fast with a
			// readable error instead of an API round trip.
			cfg, err := engine.ParseFile(configFile)
			if err != nil {
				return err
			}

			data, err := json.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}

			version, err := client.CreateVersion(args[0], data)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Version %d published for pipeline %s", version.Version, version.PipelineID))
			out.Print(
				[]string{"PIPELINE_ID", "VERSION", "CREATED"},
				[][]string{{version.PipelineID, strconv.Itoa(version.Version), version.CreatedAt}},
				version,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config-file", "", "Path to pipeline config YAML (required)")
	cmd.MarkFlagRequired("config-file")

	return cmd
}
