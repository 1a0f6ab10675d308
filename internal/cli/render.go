package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depview/pkg/errors"
	"github.com/matzehuels/depview/pkg/layout"
	"github.com/matzehuels/depview/pkg/pipeline"
)

// sourceOpts selects where a graph description comes from.
type sourceOpts struct {
	file    string // local graph.json instead of a backend
	refresh bool   // ignore the cached description
	noCache bool   // disable the cache entirely
	policy  string // layout policy override
}

func (o *sourceOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "read the graph description from a local file")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "refetch the description even if cached")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&o.policy, "policy", "", "layout policy: auto, grid, precomputed")
}

// resolveSource returns the source for args (a backend URL), the --file flag or
// the configured backend.
func (c *CLI) resolveSource(args []string, o *sourceOpts) (pipeline.Source, error) {
	if o.file != "" {
		if len(args) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "pass either a backend URL or --file, not both")
		}
		return pipeline.FileSource{Path: o.file}, nil
	}
	url := ""
	if len(args) > 0 {
		url = args[0]
	}
	return c.newBackend(url)
}

// options builds pipeline options from config plus the source flags.
func (c *CLI) options(o *sourceOpts) pipeline.Options {
	opts := c.pipelineOptions()
	opts.Refresh = o.refresh
	if o.policy != "" {
		opts.Layout.Policy = layout.Policy(o.policy)
	}
	return opts
}

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	sourceOpts
	output  string // output file (single format) or base path
	formats string // comma-separated formats
	legend  bool
	title   string
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [backend-url]",
		Short: "Render the dependency graph to svg, png, gv, html or json",
		Long: `Render fetches the graph description, lays it out and writes one file per format.

With a single format, --output names the file. With several, --output is a
base path and the format is appended as extension (graph.svg, graph.png).`,
		Example: `  depview render https://ci.example.com/view/All/depview -o graph.svg
  depview render --file graph.json --format svg,png,gv --legend`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args, &opts)
		},
	}

	opts.sourceOpts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file or base path (default: graph)")
	cmd.Flags().StringVar(&opts.formats, "format", pipeline.FormatSVG, "output format(s): svg, png, gv, html, json (comma-separated)")
	cmd.Flags().BoolVar(&opts.legend, "legend", false, "draw the dep/copy legend")
	cmd.Flags().StringVar(&opts.title, "title", "", "page title for the html format")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, args []string, opts *renderOpts) error {
	formats := pipeline.ParseFormats(opts.formats)
	if err := pipeline.ValidateFormats(formats); err != nil {
		return err
	}
	src, err := c.resolveSource(args, &opts.sourceOpts)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := c.options(&opts.sourceOpts)
	popts.Formats = formats
	popts.Legend = opts.legend
	popts.Title = opts.title

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, "Rendering "+src.GraphURL())
	spinner.Start()
	result, err := runner.Execute(ctx, src, popts)
	if err != nil {
		spinner.StopWithError(errors.UserMessage(err))
		return err
	}
	spinner.Stop()

	paths := outputPaths(opts.output, formats)
	for _, format := range formats {
		path := paths[format]
		if err := writeFile(path, result.Artifacts[format]); err != nil {
			return err
		}
		c.Logger.Debug("wrote artifact", "format", format, "path", path, "bytes", len(result.Artifacts[format]))
	}

	printSuccess("Rendered %s", src.GraphURL())
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.FetchHit)
	for _, format := range formats {
		printFile(paths[format])
	}
	prog.done(fmt.Sprintf("Rendered %d file(s)", len(formats)))
	return nil
}

// outputPaths maps each format to its file. A single format writes to
// output verbatim; several share output as base path.
func outputPaths(output string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output)
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}

// basePath strips a known format extension from output.
func basePath(output string) string {
	if output == "" {
		return "graph"
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// writeFile writes data to path, creating parent directories.
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
