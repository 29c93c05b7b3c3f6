package decl

import (
	"crypto/sha256"
	"fmt"
	"io"
	"sort"
)

// Fingerprint computes a deterministic hash of a declaration subtree's
// semantic identity. Source locations do NOT affect the hash, so the same
// declaration emitted from two different headers fingerprints identically.
// Fields and enum constants are hashed in declaration order (order is part
// of a record's layout); all other children are hashed sorted by (kind,
// name) so reordering methods or nested types does not change identity.
func Fingerprint(d *Decl) string {
	h := sha256.New()
	writeFingerprint(h, d)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func writeFingerprint(w io.Writer, d *Decl) {
	fmt.Fprintf(w, "kind:%s\nname:%s\n", d.Kind, d.Name)

	switch {
	case d.Record != nil:
		fmt.Fprintf(w, "tag:%s\n", d.Record.Tag)
		for _, b := range d.Record.Bases {
			fmt.Fprintf(w, "base:%s\n", b)
		}
	case d.Object != nil:
		fmt.Fprintf(w, "type:%s:%v\n", d.Object.TypeExpr, d.Object.Indirect)
	case d.Function != nil:
		for _, p := range d.Function.Params {
			fmt.Fprintf(w, "param:%s:%s\n", p.Name, p.TypeExpr)
		}
		fmt.Fprintf(w, "result:%s\n", d.Function.ResultExpr)
	case d.Alias != nil:
		fmt.Fprintf(w, "target:%s\n", d.Alias.TargetExpr)
	}

	ordered, unordered := splitChildren(d)
	for _, c := range ordered {
		fmt.Fprintf(w, "child{\n")
		writeFingerprint(w, c)
		fmt.Fprintf(w, "}\n")
	}
	for _, c := range unordered {
		fmt.Fprintf(w, "child{\n")
		writeFingerprint(w, c)
		fmt.Fprintf(w, "}\n")
	}
}

// splitChildren separates layout-ordered children (fields, enum constants)
// from the rest, returning the rest sorted by (kind, name) for determinism.
func splitChildren(d *Decl) (ordered, unordered []*Decl) {
	for _, c := range d.Children {
		if c.Kind == KindField || c.Kind == KindEnumConstant {
			ordered = append(ordered, c)
		} else {
			unordered = append(unordered, c)
		}
	}
	sort.Slice(unordered, func(i, j int) bool {
		if unordered[i].Kind != unordered[j].Kind {
			return unordered[i].Kind < unordered[j].Kind
		}
		return unordered[i].Name < unordered[j].Name
	})
	return ordered, unordered
}
