package layout

import (
	"github.com/matzehuels/depview/pkg/errors"
)

// Policy selects how node positions are obtained.
type Policy string

const (
	PolicyAuto        Policy = "auto"
	PolicyGrid        Policy = "grid"
	PolicyPrecomputed Policy = "precomputed"
)

// ValidPolicies lists the accepted policy names.
var ValidPolicies = map[Policy]bool{
	PolicyAuto:        true,
	PolicyGrid:        true,
	PolicyPrecomputed: true,
}

// Default spacing, in pixels.
const (
	DefaultTopMargin   = 120.0
	DefaultNodeWidth   = 80.0
	DefaultNodeHeight  = 40.0
	DefaultNodeGap     = 20.0
	DefaultLevelHeight = 120.0
	DefaultClusterGap  = 40.0
)

// Options configures [Compute]. Zero values are replaced by defaults.
type Options struct {
	Policy Policy `json:"policy" toml:"policy"`

	TopMargin   float64 `json:"top_margin" toml:"top_margin"`
	NodeWidth   float64 `json:"node_width" toml:"node_width"`
	NodeHeight  float64 `json:"node_height" toml:"node_height"`
	NodeGap     float64 `json:"node_gap" toml:"node_gap"`         // between neighbours on the widest level
	LevelHeight float64 `json:"level_height" toml:"level_height"` // vertical distance between levels
	ClusterGap  float64 `json:"cluster_gap" toml:"cluster_gap"`   // between clusters, after the box overhang

	// OffsetX shifts every precomputed x coordinate.
	OffsetX float64 `json:"offset_x" toml:"offset_x"`
}

// DefaultOptions returns the spacing of the classic viewer.
func DefaultOptions() Options {
	var o Options
	o.SetDefaults()
	return o
}

// SetDefaults fills zero fields with defaults.
func (o *Options) SetDefaults() {
	if o.Policy == "" {
		o.Policy = PolicyAuto
	}
	if o.TopMargin == 0 {
		o.TopMargin = DefaultTopMargin
	}
	if o.NodeWidth == 0 {
		o.NodeWidth = DefaultNodeWidth
	}
	if o.NodeHeight == 0 {
		o.NodeHeight = DefaultNodeHeight
	}
	if o.NodeGap == 0 {
		o.NodeGap = DefaultNodeGap
	}
	if o.LevelHeight == 0 {
		o.LevelHeight = DefaultLevelHeight
	}
	if o.ClusterGap == 0 {
		o.ClusterGap = DefaultClusterGap
	}
}

// Validate rejects unknown policies and negative spacing.
func (o Options) Validate() error {
	if !ValidPolicies[o.Policy] {
		return errors.New(errors.ErrCodeInvalidPolicy, "unknown layout policy %q (valid: auto, grid, precomputed)", o.Policy)
	}
	for name, v := range map[string]float64{
		"top margin":   o.TopMargin,
		"node width":   o.NodeWidth,
		"node height":  o.NodeHeight,
		"node gap":     o.NodeGap,
		"level height": o.LevelHeight,
		"cluster gap":  o.ClusterGap,
	} {
		if v < 0 {
			return errors.New(errors.ErrCodeInvalidInput, "%s must not be negative", name)
		}
	}
	return nil
}
