package errors

import (
	"strings"
	"unicode"
)

// maxIdentityLength bounds node identities; job full names nest folders but
// never approach this.
const maxIdentityLength = 512

// ValidateIdentity validates a node identity before it is used as a graph key
// or as a path segment of an edge mutation.
//
// Identities may contain slashes (folder-qualified job names) and spaces;
// they are percent-encoded on the wire. The rules only reject values that
// cannot name a node at all:
//   - No empty identities
//   - No control characters or null bytes
//   - Maximum length of 512 bytes
func ValidateIdentity(id string) error {
	if id == "" {
		return New(ErrCodeInvalidIdentity, "identity cannot be empty")
	}

	if len(id) > maxIdentityLength {
		return New(ErrCodeInvalidIdentity, "identity too long (max %d characters)", maxIdentityLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidIdentity, "identity %q contains control characters", id)
		}
	}

	if strings.TrimSpace(id) == "" {
		return New(ErrCodeInvalidIdentity, "identity cannot be blank")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidatePath validates an output path for safety.
// Only empty paths and control characters are rejected; absolute paths are
// allowed since output locations are chosen by the operator.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}

	return nil
}
