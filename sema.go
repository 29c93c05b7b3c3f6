package taproot

import "context"

// Checker models the points where semantic analysis demands a complete
// type. Mentioning a name by pointer or reference only touches it; sizing,
// member access, or deriving from it requires the full definition, which is
// the moment the loader actually deserializes.
type Checker struct {
	loader *Loader
}

// NewChecker wraps a loader.
func NewChecker(l *Loader) *Checker {
	return &Checker{loader: l}
}

// Touch records a by-name mention without loading anything.
func (c *Checker) Touch(qualifiedName string) {
	c.loader.Touch(qualifiedName)
}

// RequireComplete is the completeness trigger: it materializes the named
// declaration and its layout closure. Unknown names are an error here,
// unlike transitive dependency loads.
func (c *Checker) RequireComplete(ctx context.Context, qualifiedName string) (*Decl, error) {
	return c.loader.Materialize(ctx, qualifiedName)
}

// Complete reports whether the named declaration has already been
// materialized.
func (c *Checker) Complete(qualifiedName string) bool {
	return c.loader.IsLoaded(qualifiedName)
}
