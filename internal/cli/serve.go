package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depview/pkg/observability"
	"github.com/matzehuels/depview/pkg/server"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	listen  string
	edit    bool
	retract bool
	metrics bool
	noCache bool
	legend  bool
	title   string
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve [backend-url]",
		Short: "Serve the interactive graph viewer",
		Long: `Serve runs the viewer: an HTML page drawing the graph, a websocket per
browser tab driving the interaction bridge, rendered artifacts at
/graph.{svg,gv,png,html}, and the layout at /layout.json.

In edit mode, dragging between two jobs creates a dependency edge on the
backend and clicking a red edge deletes it after confirmation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := ""
			if len(args) > 0 {
				url = args[0]
			}
			return c.runServe(cmd, url, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.listen, "listen", "l", "", "listen address (default: server.listen from config)")
	cmd.Flags().BoolVar(&opts.edit, "edit", false, "enable edge editing (default: edit.enabled from config)")
	cmd.Flags().BoolVar(&opts.retract, "retract-on-failure", false, "remove a drawn edge when the backend rejects it")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", true, "serve Prometheus metrics at /metrics")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.legend, "legend", false, "draw the legend in rendered artifacts")
	cmd.Flags().StringVar(&opts.title, "title", "", "viewer page title")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, url string, opts *serveOpts) error {
	ctx := cmd.Context()
	cfg := c.config()

	// Flags win over config only when set explicitly.
	listen := cfg.Server.Listen
	if opts.listen != "" {
		listen = opts.listen
	}
	edit := cfg.Edit.Enabled
	if cmd.Flags().Changed("edit") {
		edit = opts.edit
	}
	retract := cfg.Edit.RetractOnFailure
	if cmd.Flags().Changed("retract-on-failure") {
		retract = opts.retract
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

	popts := c.pipelineOptions()
	popts.Legend = opts.legend
	popts.Title = opts.title

	var metrics *observability.Metrics
	if opts.metrics {
		metrics = observability.NewMetrics()
		metrics.Install()
	}

	srv, err := server.New(server.Config{
		Backend:          be,
		Runner:           runner,
		Options:          popts,
		Edit:             edit,
		RetractOnFailure: retract,
		ConfirmTimeout:   cfg.Server.ConfirmTimeout.Duration,
		Metrics:          metrics,
		Logger:           c.Logger,
	})
	if err != nil {
		return err
	}

	printSuccess("Serving %s", be.BaseURL())
	printKeyValue("viewer", fmt.Sprintf("http://%s/", listen))
	printKeyValue("cache", cfg.Cache.Backend)
	if opts.metrics {
		printKeyValue("metrics", fmt.Sprintf("http://%s/metrics", listen))
	}
	if edit {
		printWarning("Edit mode: gestures in the viewer change the backend")
	}

	if err := srv.ListenAndServe(ctx, listen); err != nil && ctx.Err() == nil {
		return err
	}
	return context.Cause(ctx)
}
