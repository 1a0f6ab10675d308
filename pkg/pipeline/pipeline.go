// Package pipeline runs the fetch → layout → render pipeline for depview.
//
// The CLI and the server share this package so a graph rendered with
// `depview render` and one served at /graph.svg go through identical steps
// and identical caches.
//
// # Stages
//
//  1. Fetch: read the graph description from a [Source] (backend or file)
//  2. Layout: compute node positions with [layout.Compute]
//  3. Render: write the requested formats (svg, png, gv, html, json)
//
// Each stage is cached under its own key type; see [cache.Keyer].
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, src, pipeline.Options{
//	    Formats: []string{pipeline.FormatSVG},
//	    Legend:  true,
//	})
//	svg := result.Artifacts[pipeline.FormatSVG]
//
// After an edge mutation the cached description is stale; call
// [Runner.Invalidate] with the same source.
package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depview/pkg/cache"
	"github.com/matzehuels/depview/pkg/errors"
	"github.com/matzehuels/depview/pkg/graph"
	"github.com/matzehuels/depview/pkg/layout"
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatDOT  = "gv"
	FormatHTML = "html"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatDOT:  true,
	FormatHTML: true,
	FormatJSON: true,
}

// ContentTypes maps each format to its MIME type.
var ContentTypes = map[string]string{
	FormatSVG:  "image/svg+xml",
	FormatPNG:  "image/png",
	FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	FormatHTML: "text/html; charset=utf-8",
	FormatJSON: "application/json",
}

// Options configures a pipeline run.
type Options struct {
	// Refresh bypasses the cached description and refetches it.
	Refresh bool `json:"refresh,omitempty"`

	// Layout options; zero fields take the defaults.
	Layout layout.Options `json:"layout"`

	// LabelPattern and LabelGroup shorten display labels; see [graph.NewLabeler].
	LabelPattern string `json:"label_pattern,omitempty"`
	LabelGroup   int    `json:"label_group,omitempty"`

	Formats []string `json:"formats,omitempty"`
	Legend  bool     `json:"legend,omitempty"`
	Title   string   `json:"title,omitempty"`

	Logger *log.Logger `json:"-"`

	labeler *graph.Labeler
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Description *graph.Description
	GraphHash   string
	Layout      *layout.Result
	Artifacts   map[string][]byte
	Stats       Stats
	CacheInfo   CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	FetchTime  time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	FetchHit  bool
	LayoutHit bool
	RenderHit bool // all requested artifacts came from cache
}

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: svg, png, gv, html, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats splits a comma-separated format list, dropping blanks.
func ParseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ValidateAndSetDefaults checks the options and fills in defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.Layout.SetDefaults()
	if err := o.Layout.Validate(); err != nil {
		return err
	}
	if o.labeler == nil {
		l, err := graph.NewLabeler(o.LabelPattern, o.LabelGroup)
		if err != nil {
			return err
		}
		o.labeler = l
	}
	if o.Title == "" {
		o.Title = "depview"
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// Labeler returns the label mapping built from LabelPattern.
// Call ValidateAndSetDefaults first.
func (o *Options) Labeler() *graph.Labeler {
	return o.labeler
}

// LayoutKeyOpts returns the cache key options for the layout stage.
func (o Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	l := o.Layout
	return cache.LayoutKeyOpts{
		Policy:      string(l.Policy),
		TopMargin:   l.TopMargin,
		NodeWidth:   l.NodeWidth,
		NodeHeight:  l.NodeHeight,
		NodeGap:     l.NodeGap,
		LevelHeight: l.LevelHeight,
		ClusterGap:  l.ClusterGap,
		OffsetX:     l.OffsetX,
	}
}

// ArtifactKeyOpts returns the cache key options for one rendered format.
func (o Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:     format,
		Legend:     o.Legend,
		LabelRegex: o.LabelPattern,
		LabelGroup: o.LabelGroup,
		Title:      o.Title,
	}
}

func (o Options) String() string {
	return fmt.Sprintf("formats=%s policy=%s", strings.Join(o.Formats, ","), o.Layout.Policy)
}
