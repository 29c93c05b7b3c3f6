package taproot

import (
	"fmt"
	"strings"
)

// NotFoundError is returned by Materialize and RequireComplete when no
// attached snapshot defines the requested name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("taproot: declaration %q not found in attached snapshots", e.Name)
}

// RedefinitionError is returned when two attached snapshots define the same
// qualified name with differing fingerprints, the one-definition-rule
// violation taproot detects but does not reconcile.
type RedefinitionError struct {
	Name      string
	Snapshots []string // labels (or UUIDs) of the conflicting snapshots
}

func (e *RedefinitionError) Error() string {
	return fmt.Sprintf("taproot: %q has conflicting definitions in snapshots %s",
		e.Name, strings.Join(e.Snapshots, ", "))
}
