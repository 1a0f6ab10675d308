package graph

import (
	"regexp"

	"github.com/matzehuels/depview/pkg/errors"
)

// Labeler maps node names to display labels.
// Labels are cosmetic; identities are never derived from them.
type Labeler struct {
	re    *regexp.Regexp
	group int
}

// NewLabeler builds a Labeler that shows capture group `group` of pattern
// when the name matches. An empty pattern yields the identity labeler.
func NewLabeler(pattern string, group int) (*Labeler, error) {
	if pattern == "" {
		return &Labeler{}, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "label pattern %q", pattern)
	}
	if group < 0 || group > re.NumSubexp() {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"label group %d out of range (pattern has %d groups)", group, re.NumSubexp())
	}
	return &Labeler{re: re, group: group}, nil
}

// Label returns the display label for name.
// A nil Labeler, a non-matching name or an empty capture all fall back to name.
func (l *Labeler) Label(name string) string {
	if l == nil || l.re == nil {
		return name
	}
	m := l.re.FindStringSubmatch(name)
	if m == nil || m[l.group] == "" {
		return name
	}
	return m[l.group]
}
