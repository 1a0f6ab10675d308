package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/depview/pkg/graph"
	"github.com/matzehuels/depview/pkg/layout"
	"github.com/matzehuels/depview/pkg/render/nodelink"
	"github.com/matzehuels/depview/pkg/render/sink"
)

// Render generates output artifacts in the requested formats.
// opts must have been through ValidateAndSetDefaults.
func Render(ctx context.Context, d *graph.Description, r *layout.Result, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))

	var dot string
	dotFor := func() string {
		if dot == "" {
			dot = nodelink.ToDOT(d, r, nodelink.Options{Legend: opts.Legend, Labeler: opts.labeler})
		}
		return dot
	}

	for _, format := range opts.Formats {
		var (
			data []byte
			err  error
		)
		switch format {
		case FormatSVG:
			data = sink.RenderSVG(d, r, svgOptions(opts)...)
		case FormatDOT:
			data = []byte(dotFor())
		case FormatPNG:
			data, err = nodelink.RenderPNG(ctx, dotFor())
		case FormatHTML:
			data, err = sink.RenderHTMLBytes(d, r, sink.WithTitle(opts.Title), sink.WithHTMLLabeler(opts.labeler))
		case FormatJSON:
			data, err = sink.RenderJSON(d, r, sink.WithJSONLabeler(opts.labeler), sink.WithJSONIndent())
		default:
			return nil, ValidateFormat(format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func svgOptions(opts Options) []sink.SVGOption {
	out := []sink.SVGOption{sink.WithLabeler(opts.labeler)}
	if opts.Legend {
		out = append(out, sink.WithLegend())
	}
	return out
}
