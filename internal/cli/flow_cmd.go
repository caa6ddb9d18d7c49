package cli

import (
	"github.com/alexanderramin/signoff/internal/cli/formatter"
	"github.com/alexanderramin/signoff/internal/flowfile"
	"github.com/spf13/cobra"
)

func newFlowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Manage approval flow definitions",
	}
	cmd.AddCommand(
		newFlowPublishCmd(app, false),
		newFlowPublishCmd(app, true),
		newFlowShowCmd(app),
		newFlowListCmd(app),
		newFlowVersionsCmd(app),
	)
	return cmd
}

func newFlowPublishCmd(app *App, update bool) *cobra.Command {
	var file string
	use, short := "publish", "Publish a new flow from a YAML or JSON file"
	if update {
		use, short = "update", "Publish the next version of an existing flow"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			draft, err := flowfile.LoadDraft(file)
			if err != nil {
				return err
			}
			publish := app.Flows.PublishFlow
			if update {
				publish = app.Flows.UpdateFlow
			}
			detail, err := publish(ctxOf(cmd), draft, who)
			if err != nil {
				return err
			}
			printf(cmd, "Published %s v%d (%d nodes)\n", detail.Flow.Code, detail.Flow.Version, len(detail.Nodes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Flow definition file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newFlowShowCmd(app *App) *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   "show CODE",
		Short: "Show a flow version and its nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := app.Flows.GetFlowDetail(ctxOf(cmd), args[0], version)
			if err != nil {
				return err
			}
			printf(cmd, "%s", formatter.FormatFlowDetail(detail))
			return nil
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "Version to show (default: active)")
	return cmd
}

func newFlowListCmd(app *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active flows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flows, err := app.Flows.ListFlows(ctxOf(cmd), !all)
			if err != nil {
				return err
			}
			printf(cmd, "%s", formatter.FormatFlowList(flows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include superseded versions")
	return cmd
}

func newFlowVersionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "versions CODE",
		Short: "List every version of a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flows, err := app.Flows.ListVersions(ctxOf(cmd), args[0])
			if err != nil {
				return err
			}
			printf(cmd, "%s", formatter.FormatFlowList(flows))
			return nil
		},
	}
}
