package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depview/pkg/bridge"
)

// editCommand creates the terminal editor command.
func (c *CLI) editCommand() *cobra.Command {
	var (
		opts     sourceOpts
		readOnly bool
		retract  bool
	)

	cmd := &cobra.Command{
		Use:   "edit [backend-url]",
		Short: "Browse and edit dependency edges in the terminal",
		Long: `Edit lists every job with its cluster and level next to the graph's
connections. Press c on a job to pick it as source, then c on the target to
create an edge; press d on a red connection to delete it after a y/n prompt.
Backend failures appear in the status line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("retract-on-failure") {
				retract = c.config().Edit.RetractOnFailure
			}
			return c.runEdit(cmd.Context(), args, &opts, !readOnly, retract)
		},
	}

	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "refetch the description even if cached")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "layout policy: auto, grid, precomputed")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "browse without editing")
	cmd.Flags().BoolVar(&retract, "retract-on-failure", false, "remove a new edge when the backend rejects it")

	return cmd
}

func (c *CLI) runEdit(ctx context.Context, args []string, opts *sourceOpts, edit, retract bool) error {
	url := ""
	if len(args) > 0 {
		url = args[0]
	}
	be, err := c.newBackend(url)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := c.options(opts)
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	spinner := newSpinner(ctx, "Loading "+be.GraphURL())
	spinner.Start()
	d, err := runner.Fetch(ctx, be, popts)
	if err != nil {
		spinner.StopWithError(err.Error())
		return err
	}
	lr, err := runner.Layout(ctx, d, popts)
	spinner.Stop()
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal; the status line reports failures.
	quiet := log.New(io.Discard)

	m, prompter, err := newEditorModel(ctx, editorConfig{
		Title:            be.BaseURL(),
		Description:      d,
		Layout:           lr,
		API:              be,
		Edit:             edit,
		RetractOnFailure: retract,
		Labeler:          popts.Labeler(),
		Logger:           quiet,
		OnMutation: func(ctx context.Context, _ bridge.Mutation) {
			_ = runner.Invalidate(ctx, be)
		},
	})
	if err != nil {
		return err
	}
	return runEditor(m, prompter)
}
