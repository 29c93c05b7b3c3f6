package decl

import "strings"

// TranslationUnit is the consumer-side root that materialized declarations
// are grafted into. It owns a single TranslationUnit decl and an index of
// every grafted node by fully-qualified name. Re-opened namespaces merge:
// grafting a::X and a::Y produces one "a" namespace node with two children.
//
// TranslationUnit is not goroutine-safe; the Loader serializes access.
type TranslationUnit struct {
	root  *Decl
	index map[string]*Decl
}

// NewTranslationUnit returns an empty translation unit.
func NewTranslationUnit() *TranslationUnit {
	return &TranslationUnit{
		root:  &Decl{Kind: KindTranslationUnit},
		index: make(map[string]*Decl),
	}
}

// Root returns the TranslationUnit decl node.
func (tu *TranslationUnit) Root() *Decl {
	return tu.root
}

// Lookup finds a grafted decl by fully-qualified name.
func (tu *TranslationUnit) Lookup(qualifiedName string) (*Decl, bool) {
	d, ok := tu.index[qualifiedName]
	return d, ok
}

// Len reports how many decl nodes have been grafted, namespaces included.
func (tu *TranslationUnit) Len() int {
	return len(tu.index)
}

// Graft attaches the subtree rooted at d under its enclosing namespace
// chain, creating namespace nodes as needed. It returns the namespace
// decls created by this call so the caller can account for them (they are
// materialized too, just implicitly). Grafting a name that is already
// present is a no-op returning nil.
func (tu *TranslationUnit) Graft(d *Decl) (createdNamespaces []*Decl) {
	if _, ok := tu.index[d.QualifiedName]; ok {
		return nil
	}

	parent := tu.root
	scope := Scope(d.QualifiedName)
	if scope != "" {
		parent, createdNamespaces = tu.ensureNamespace(scope)
	}

	parent.Children = append(parent.Children, d)
	Walk(d, func(n *Decl) {
		tu.index[n.QualifiedName] = n
	})
	return createdNamespaces
}

// ensureNamespace walks or creates the namespace chain for a scope like
// "a::b", returning the innermost namespace decl and any nodes created.
func (tu *TranslationUnit) ensureNamespace(scope string) (*Decl, []*Decl) {
	var created []*Decl
	parent := tu.root
	qname := ""
	for _, part := range splitScope(scope) {
		qname = Join(qname, part)
		ns, ok := tu.index[qname]
		if !ok {
			ns = &Decl{
				Kind:          KindNamespace,
				Name:          part,
				QualifiedName: qname,
			}
			parent.Children = append(parent.Children, ns)
			tu.index[qname] = ns
			created = append(created, ns)
		}
		parent = ns
	}
	return parent, created
}

func splitScope(scope string) []string {
	return strings.Split(scope, "::")
}
