package layout

import "strings"

// Token maps a node identity to a DOM-safe id by replacing every character
// outside [A-Za-z0-9] with '_'. It is deterministic and idempotent.
func Token(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, id)
}
