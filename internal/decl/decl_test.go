package decl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(qname string, fields ...*Decl) *Decl {
	name := qname
	if s := Scope(qname); s != "" {
		name = qname[len(s)+2:]
	}
	return &Decl{
		Kind:          KindRecord,
		Name:          name,
		QualifiedName: qname,
		Record:        &RecordDetail{Tag: "struct"},
		Children:      fields,
	}
}

func field(parent, name, typeExpr string, indirect bool) *Decl {
	return &Decl{
		Kind:          KindField,
		Name:          name,
		QualifiedName: Join(parent, name),
		Object:        &ObjectDetail{TypeExpr: typeExpr, Indirect: indirect},
	}
}

func TestScopeAndJoin(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", Scope("Widget"))
	assert.Equal(t, "ui", Scope("ui::Widget"))
	assert.Equal(t, "a::b", Scope("a::b::C"))
	assert.Equal(t, "Widget", Join("", "Widget"))
	assert.Equal(t, "a::b::C", Join("a::b", "C"))
}

func TestGraft_GlobalScope(t *testing.T) {
	t.Parallel()
	tu := NewTranslationUnit()
	d := record("Widget", field("Widget", "id", "int", false))

	created := tu.Graft(d)
	assert.Empty(t, created)

	got, ok := tu.Lookup("Widget")
	require.True(t, ok)
	assert.Same(t, d, got)

	// Descendants are indexed too.
	f, ok := tu.Lookup("Widget::id")
	require.True(t, ok)
	assert.Equal(t, KindField, f.Kind)
}

func TestGraft_CreatesNamespaceChain(t *testing.T) {
	t.Parallel()
	tu := NewTranslationUnit()

	created := tu.Graft(record("a::b::C"))
	require.Len(t, created, 2)
	assert.Equal(t, "a", created[0].QualifiedName)
	assert.Equal(t, "a::b", created[1].QualifiedName)

	ns, ok := tu.Lookup("a::b")
	require.True(t, ok)
	assert.Equal(t, KindNamespace, ns.Kind)
	require.Len(t, ns.Children, 1)
	assert.Equal(t, "a::b::C", ns.Children[0].QualifiedName)
}

func TestGraft_ReopenedNamespaceMerges(t *testing.T) {
	t.Parallel()
	tu := NewTranslationUnit()

	tu.Graft(record("lib::First"))
	created := tu.Graft(record("lib::Second"))
	assert.Empty(t, created, "second graft should reuse the lib namespace")

	ns, ok := tu.Lookup("lib")
	require.True(t, ok)
	assert.Len(t, ns.Children, 2)

	// Exactly one top-level child under the TU root.
	assert.Len(t, tu.Root().Children, 1)
}

func TestGraft_DuplicateIsNoop(t *testing.T) {
	t.Parallel()
	tu := NewTranslationUnit()
	first := record("Widget")
	tu.Graft(first)

	before := tu.Len()
	tu.Graft(record("Widget"))
	assert.Equal(t, before, tu.Len())

	got, _ := tu.Lookup("Widget")
	assert.Same(t, first, got)
}

func TestMarshalSubtree_RoundTrip(t *testing.T) {
	t.Parallel()
	d := record("ui::Widget",
		field("ui::Widget", "id", "int", false),
		field("ui::Widget", "parent", "Widget", true),
	)
	d.Record.Bases = []string{"Drawable"}

	payload, err := MarshalSubtree(d)
	require.NoError(t, err)

	got, err := UnmarshalSubtree(payload)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestFingerprint_LocationIndependent(t *testing.T) {
	t.Parallel()
	a := record("Widget", field("Widget", "id", "int", false))
	b := record("Widget", field("Widget", "id", "int", false))
	a.StartLine, a.EndLine = 10, 20
	b.StartLine, b.EndLine = 100, 200

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_FieldOrderMatters(t *testing.T) {
	t.Parallel()
	a := record("P",
		field("P", "x", "int", false),
		field("P", "y", "int", false),
	)
	b := record("P",
		field("P", "y", "int", false),
		field("P", "x", "int", false),
	)
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_MethodOrderIgnored(t *testing.T) {
	t.Parallel()
	method := func(parent, name string) *Decl {
		return &Decl{
			Kind:          KindMethod,
			Name:          name,
			QualifiedName: Join(parent, name),
			Function:      &FunctionDetail{ResultExpr: "void"},
		}
	}
	a := record("W", method("W", "draw"), method("W", "hide"))
	b := record("W", method("W", "hide"), method("W", "draw"))
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_DetailChangesHash(t *testing.T) {
	t.Parallel()
	a := record("W", field("W", "p", "Widget", true))
	b := record("W", field("W", "p", "Widget", false))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b), "indirection is part of identity")

	c := record("W")
	c.Record.Bases = []string{"Base"}
	assert.NotEqual(t, Fingerprint(record("W")), Fingerprint(c))
}
