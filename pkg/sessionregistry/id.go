package sessionregistry

import (
	"errors"
	"fmt"
	"regexp"
)

// maxSessionIDLength bounds session identifiers (spec.md §4.6: "non-empty,
// matches [A-Za-z0-9_-] of bounded length").
const maxSessionIDLength = 256

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,256}$`)

// ErrInvalidSessionID is returned when a session id fails validation.
var ErrInvalidSessionID = errors.New("sessionregistry: invalid session id")

// ValidateSessionID checks id against the non-empty, bounded-length
// [A-Za-z0-9_-] rule spec.md §4.6 requires.
func ValidateSessionID(id string) error {
	if len(id) > maxSessionIDLength || !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("sessionregistry: validate %q: %w", id, ErrInvalidSessionID)
	}
	return nil
}
