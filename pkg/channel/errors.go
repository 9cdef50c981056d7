package channel

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrSelectionNotFound is returned when a role resolves to no channel.
	ErrSelectionNotFound = errors.New("selection not found")
	// ErrSelectionAmbiguous is returned when a channel is claimed by two roles
	// or when a selection is malformed.
	ErrSelectionAmbiguous = errors.New("selection ambiguous")
)

// NotFoundError reports the role that could not be resolved and the keys that
// were tried.
type NotFoundError struct {
	Role Role
	Keys []string
}

func (e *NotFoundError) Error() string {
	if len(e.Keys) == 0 {
		return fmt.Sprintf("%s: role %q selects no channel", ErrSelectionNotFound, e.Role)
	}

	return fmt.Sprintf("%s: role %q: no channel matches %s", ErrSelectionNotFound, e.Role, quoteAll(e.Keys))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrSelectionNotFound
}

// AmbiguousError reports a channel claimed by two roles.
type AmbiguousError struct {
	Index int
	Key   string
	Roles [2]Role
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s: channel %d (%q) is selected by roles %q and %q",
		ErrSelectionAmbiguous, e.Index, e.Key, e.Roles[0], e.Roles[1])
}

func (e *AmbiguousError) Is(target error) bool {
	return target == ErrSelectionAmbiguous
}

func quoteAll(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = fmt.Sprintf("%q", k)
	}

	return strings.Join(quoted, ", ")
}
