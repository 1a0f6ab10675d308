package cache

import "fmt"

// Keyer derives cache keys. Implementations must be deterministic.
type Keyer interface {
	// GraphKey identifies the graph description served at source.
	GraphKey(source string) string

	// LayoutKey identifies a layout of the description with hash graphHash.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendering of the layout with hash layoutHash.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the layout options that change the result.
type LayoutKeyOpts struct {
	Policy      string
	TopMargin   float64
	NodeWidth   float64
	NodeHeight  float64
	NodeGap     float64
	LevelHeight float64
	ClusterGap  float64
	OffsetX     float64
}

// ArtifactKeyOpts are the render options that change the output.
type ArtifactKeyOpts struct {
	Format     string
	Legend     bool
	LabelRegex string
	LabelGroup int
	Title      string
}

// DefaultKeyer produces "type:…" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// GraphKey keys by source URL or path verbatim so it can be invalidated
// without knowing the content.
func (DefaultKeyer) GraphKey(source string) string {
	return fmt.Sprintf("%s:%s", KeyTypeGraph, source)
}

// LayoutKey hashes the graph hash with the options.
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey(KeyTypeLayout, graphHash, opts)
}

// ArtifactKey hashes the layout hash with the options.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, layoutHash, opts)
}

var _ Keyer = DefaultKeyer{}
