package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depview/pkg/pipeline"
)

// layoutCommand creates the layout command, which prints node positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		opts   sourceOpts
		output string
	)

	cmd := &cobra.Command{
		Use:   "layout [backend-url]",
		Short: "Print node positions and edges as JSON",
		Long: `Layout fetches the graph description and prints the computed layout:
one placement per node (x, y, token, cluster, level), the cluster extents and
the edges with their type. This is the document served at /layout.json.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args, &opts, output)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, args []string, opts *sourceOpts, output string) error {
	src, err := c.resolveSource(args, opts)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := c.options(opts)
	popts.Formats = []string{pipeline.FormatJSON}
	result, err := runner.Execute(ctx, src, popts)
	if err != nil {
		return err
	}
	c.Logger.Debug("computed layout",
		"policy", result.Layout.Policy,
		"nodes", result.Stats.NodeCount,
		"cached", result.CacheInfo.LayoutHit)

	data := result.Artifacts[pipeline.FormatJSON]
	if output == "" {
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	if err := writeFile(output, data); err != nil {
		return err
	}
	printFile(output)
	return nil
}
