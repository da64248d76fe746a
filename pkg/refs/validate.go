package refs

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidName is returned when a branch (or backup) name is invalid.
	ErrInvalidName = errors.New("refs: invalid ref component name")
	// ErrNameEmpty is returned when a name is empty.
	ErrNameEmpty = errors.New("refs: ref component name cannot be empty")
	// ErrNameReserved is returned when a name is reserved.
	ErrNameReserved = errors.New("refs: ref component name is reserved")
)

// invalidChars mirrors the classic set of characters a ref component may
// not contain.
var invalidChars = []rune{' ', '~', '^', ':', '?', '*', '[', '\\'}

// ValidateRefName validates a branch name under refs/heads/ (or a backup
// name under refs/backups/). Nested names like "feature/add-login" are
// allowed:
//   - must be non-empty
//   - cannot contain spaces, ~, ^, :, ?, *, [, \
//   - cannot start with - or .
//   - cannot end with .lock
//   - cannot contain .. or //
//   - cannot be the reserved name HEAD
func ValidateRefName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if name == "HEAD" {
		return ErrNameReserved
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, ".") {
		return ErrInvalidName
	}
	if strings.HasSuffix(name, ".lock") {
		return ErrInvalidName
	}
	if strings.Contains(name, "..") || strings.Contains(name, "//") {
		return ErrInvalidName
	}
	for _, c := range invalidChars {
		if strings.ContainsRune(name, c) {
			return ErrInvalidName
		}
	}
	return nil
}
