// Package parse turns C-family header source into taproot declaration
// subtrees using tree-sitter's C++ grammar. Only declaration structure is
// extracted: namespaces, records with their members and bases, enums,
// typedefs and aliases, free functions, and namespace-scope variables.
// Preprocessor lines and constructs the walker does not recognize are
// skipped, never errors.
package parse

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/jward/taproot/internal/decl"
)

// Dep is one completeness edge extracted alongside a declaration. Need is
// store.NeedLayout or store.NeedName; parse keeps them as plain strings to
// stay independent of the persistence layer.
type Dep struct {
	Target string
	Need   string
}

const (
	needLayout = "layout"
	needName   = "name"
)

// HeaderDecls is the result of parsing one header: the top-level
// (namespace-scope) declarations, in source order, and the completeness
// edges keyed by each top-level decl's qualified name.
type HeaderDecls struct {
	Decls []*decl.Decl
	Deps  map[string][]Dep
}

// Header parses header source and extracts its declaration subtrees.
// Each call uses a fresh parser, so Header is safe for concurrent use.
func Header(ctx context.Context, src []byte) (*HeaderDecls, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	defer tree.Close()

	w := &walker{
		src: src,
		out: &HeaderDecls{Deps: make(map[string][]Dep)},
	}
	w.walkScope(tree.RootNode(), "")
	return w.out, nil
}

// walker carries parse state. cur is the qualified name of the top-level
// decl currently being built; deps extracted anywhere inside its subtree
// (nested types, method signatures) accumulate under that name.
type walker struct {
	src []byte
	out *HeaderDecls
	cur string
}

// walkScope visits the named children of a translation_unit or a namespace
// declaration_list. Every non-namespace declaration it recognizes becomes a
// top-level stored decl.
func (w *walker) walkScope(node *sitter.Node, scope string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "namespace_definition":
			w.walkNamespace(child, scope)
		case "class_specifier", "struct_specifier":
			w.emitTopLevel(w.buildRecord(child, scope))
		case "enum_specifier":
			w.emitTopLevel(w.buildEnum(child, scope))
		case "type_definition":
			w.emitTopLevel(w.buildTypedef(child, scope))
		case "alias_declaration":
			w.emitTopLevel(w.buildAlias(child, scope))
		case "function_definition":
			w.emitTopLevel(w.buildFunction(child, scope))
		case "declaration":
			w.walkDeclaration(child, scope)
		default:
			// Preprocessor lines, templates, comments, using-directives:
			// not part of the cacheable declaration surface.
		}
	}
}

func (w *walker) walkNamespace(node *sitter.Node, scope string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return // anonymous namespace
	}
	// `namespace a::b {` spells the whole chain in one name node.
	inner := scope
	for _, part := range strings.Split(nameNode.Content(w.src), "::") {
		inner = decl.Join(inner, part)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		w.walkScope(body, inner)
	}
}

// walkDeclaration handles a bare `declaration` node at namespace scope:
// a record/enum definition with a trailing semicolon, a function prototype,
// or a variable.
func (w *walker) walkDeclaration(node *sitter.Node, scope string) {
	typeNode := node.ChildByFieldName("type")
	declarator := node.ChildByFieldName("declarator")

	// Type definitions spelled as declarations: `struct S { ... };`
	if declarator == nil && typeNode != nil {
		switch typeNode.Type() {
		case "class_specifier", "struct_specifier":
			w.emitTopLevel(w.buildRecord(typeNode, scope))
		case "enum_specifier":
			w.emitTopLevel(w.buildEnum(typeNode, scope))
		}
		return
	}
	if declarator == nil {
		return
	}

	if fnDecl := findFunctionDeclarator(declarator); fnDecl != nil {
		w.emitTopLevel(w.buildFunctionFrom(node, fnDecl, scope, decl.KindFunction))
		return
	}
	w.emitTopLevel(w.buildVar(node, scope))
}

func (w *walker) emitTopLevel(d *decl.Decl) {
	if d == nil {
		return
	}
	w.out.Decls = append(w.out.Decls, d)
}

// --- Records ---

func (w *walker) buildRecord(node *sitter.Node, scope string) *decl.Decl {
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return nil // anonymous record or forward declaration
	}
	name := nameNode.Content(w.src)
	qname := decl.Join(scope, name)

	tag := "struct"
	if node.Type() == "class_specifier" {
		tag = "class"
	}
	d := &decl.Decl{
		Kind:          decl.KindRecord,
		Name:          name,
		QualifiedName: qname,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		Record:        &decl.RecordDetail{Tag: tag},
	}

	prevCur := w.cur
	if prevCur == "" {
		w.cur = qname
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		if c := node.NamedChild(i); c.Type() == "base_class_clause" {
			w.collectBases(c, d)
		}
	}
	w.walkMembers(body, d)

	w.cur = prevCur
	return d
}

func (w *walker) collectBases(clause *sitter.Node, d *decl.Decl) {
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		switch c.Type() {
		case "type_identifier", "qualified_identifier", "template_type":
			base := typeText(c, w.src)
			d.Record.Bases = append(d.Record.Bases, base)
			w.addDep(base, needLayout)
		}
	}
}

func (w *walker) walkMembers(body *sitter.Node, parent *decl.Decl) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "field_declaration":
			w.walkFieldDeclaration(child, parent)
		case "function_definition":
			if m := w.buildFunctionFrom(child, findFunctionDeclarator(child.ChildByFieldName("declarator")), parent.QualifiedName, decl.KindMethod); m != nil {
				parent.Children = append(parent.Children, m)
			}
		case "class_specifier", "struct_specifier":
			if nested := w.buildRecord(child, parent.QualifiedName); nested != nil {
				parent.Children = append(parent.Children, nested)
			}
		case "enum_specifier":
			if nested := w.buildEnum(child, parent.QualifiedName); nested != nil {
				parent.Children = append(parent.Children, nested)
			}
		case "alias_declaration":
			if nested := w.buildAlias(child, parent.QualifiedName); nested != nil {
				parent.Children = append(parent.Children, nested)
			}
		case "type_definition":
			if nested := w.buildTypedef(child, parent.QualifiedName); nested != nil {
				parent.Children = append(parent.Children, nested)
			}
		default:
			// access_specifier, comment, friend_declaration, templates.
		}
	}
}

// walkFieldDeclaration handles one field_declaration member: a data field,
// a method prototype, or a nested type definition.
func (w *walker) walkFieldDeclaration(node *sitter.Node, parent *decl.Decl) {
	typeNode := node.ChildByFieldName("type")
	declarator := node.ChildByFieldName("declarator")

	if declarator == nil && typeNode != nil {
		switch typeNode.Type() {
		case "class_specifier", "struct_specifier":
			if nested := w.buildRecord(typeNode, parent.QualifiedName); nested != nil {
				parent.Children = append(parent.Children, nested)
			}
		case "enum_specifier":
			if nested := w.buildEnum(typeNode, parent.QualifiedName); nested != nil {
				parent.Children = append(parent.Children, nested)
			}
		}
		return
	}
	if declarator == nil || typeNode == nil {
		return
	}

	if fnDecl := findFunctionDeclarator(declarator); fnDecl != nil {
		if m := w.buildFunctionFrom(node, fnDecl, parent.QualifiedName, decl.KindMethod); m != nil {
			parent.Children = append(parent.Children, m)
		}
		return
	}

	name := declaratorName(declarator, w.src)
	if name == "" {
		return
	}
	indirect := isIndirect(declarator)
	typeExpr := typeText(typeNode, w.src)

	parent.Children = append(parent.Children, &decl.Decl{
		Kind:          decl.KindField,
		Name:          name,
		QualifiedName: decl.Join(parent.QualifiedName, name),
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		Object:        &decl.ObjectDetail{TypeExpr: typeExpr, Indirect: indirect},
	})

	need := needLayout
	if indirect {
		need = needName
	}
	w.addDep(typeExpr, need)
}

// --- Functions ---

func (w *walker) buildFunction(node *sitter.Node, scope string) *decl.Decl {
	return w.buildFunctionFrom(node, findFunctionDeclarator(node.ChildByFieldName("declarator")), scope, decl.KindFunction)
}

// buildFunctionFrom builds a Function or CXXMethod decl from the node
// carrying the return type and the function_declarator carrying name and
// parameters. Parameter and return types are name-need deps: a call site,
// not the declaration, is what forces their completeness.
func (w *walker) buildFunctionFrom(node, fnDecl *sitter.Node, scope string, kind decl.Kind) *decl.Decl {
	if fnDecl == nil {
		return nil
	}
	name := declaratorName(fnDecl.ChildByFieldName("declarator"), w.src)
	if name == "" {
		return nil // operators, destructors, out-of-line definitions
	}
	qname := decl.Join(scope, name)

	detail := &decl.FunctionDetail{}
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		detail.ResultExpr = typeText(typeNode, w.src)
		w.withCur(qname, func() { w.addDep(detail.ResultExpr, needName) })
	}
	if params := fnDecl.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			if p.Type() != "parameter_declaration" && p.Type() != "optional_parameter_declaration" {
				continue
			}
			pt := p.ChildByFieldName("type")
			if pt == nil {
				continue
			}
			param := decl.Param{TypeExpr: typeText(pt, w.src)}
			if pd := p.ChildByFieldName("declarator"); pd != nil {
				param.Name = declaratorName(pd, w.src)
			}
			detail.Params = append(detail.Params, param)
			w.withCur(qname, func() { w.addDep(param.TypeExpr, needName) })
		}
	}

	return &decl.Decl{
		Kind:          kind,
		Name:          name,
		QualifiedName: qname,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		Function:      detail,
	}
}

// --- Enums, typedefs, aliases, variables ---

func (w *walker) buildEnum(node *sitter.Node, scope string) *decl.Decl {
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return nil
	}
	name := nameNode.Content(w.src)
	qname := decl.Join(scope, name)

	d := &decl.Decl{
		Kind:          decl.KindEnum,
		Name:          name,
		QualifiedName: qname,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() != "enumerator" {
			continue
		}
		cn := c.ChildByFieldName("name")
		if cn == nil {
			continue
		}
		constName := cn.Content(w.src)
		d.Children = append(d.Children, &decl.Decl{
			Kind:          decl.KindEnumConstant,
			Name:          constName,
			QualifiedName: decl.Join(qname, constName),
		})
	}
	return d
}

func (w *walker) buildTypedef(node *sitter.Node, scope string) *decl.Decl {
	typeNode := node.ChildByFieldName("type")
	declarator := node.ChildByFieldName("declarator")
	if typeNode == nil || declarator == nil {
		return nil
	}
	name := declaratorName(declarator, w.src)
	if name == "" {
		return nil
	}
	qname := decl.Join(scope, name)
	target := typeText(typeNode, w.src)
	w.withCur(qname, func() { w.addDep(target, needName) })

	return &decl.Decl{
		Kind:          decl.KindTypedef,
		Name:          name,
		QualifiedName: qname,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		Alias:         &decl.AliasDetail{TargetExpr: target},
	}
}

func (w *walker) buildAlias(node *sitter.Node, scope string) *decl.Decl {
	nameNode := node.ChildByFieldName("name")
	typeNode := node.ChildByFieldName("type")
	if nameNode == nil || typeNode == nil {
		return nil
	}
	name := nameNode.Content(w.src)
	qname := decl.Join(scope, name)

	target := typeNode.Content(w.src)
	if inner := typeNode.ChildByFieldName("type"); inner != nil {
		target = typeText(inner, w.src)
	}
	w.withCur(qname, func() { w.addDep(target, needName) })

	return &decl.Decl{
		Kind:          decl.KindAlias,
		Name:          name,
		QualifiedName: qname,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		Alias:         &decl.AliasDetail{TargetExpr: target},
	}
}

func (w *walker) buildVar(node *sitter.Node, scope string) *decl.Decl {
	typeNode := node.ChildByFieldName("type")
	declarator := node.ChildByFieldName("declarator")
	if typeNode == nil || declarator == nil {
		return nil
	}
	name := declaratorName(declarator, w.src)
	if name == "" {
		return nil
	}
	qname := decl.Join(scope, name)
	indirect := isIndirect(declarator)
	typeExpr := typeText(typeNode, w.src)

	need := needLayout
	if indirect {
		need = needName
	}
	w.withCur(qname, func() { w.addDep(typeExpr, need) })

	return &decl.Decl{
		Kind:          decl.KindVar,
		Name:          name,
		QualifiedName: qname,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		Object:        &decl.ObjectDetail{TypeExpr: typeExpr, Indirect: indirect},
	}
}

// withCur runs fn with cur set to qname when no enclosing top-level decl is
// being built, so deps from standalone decls land under their own name.
func (w *walker) withCur(qname string, fn func()) {
	prev := w.cur
	if prev == "" {
		w.cur = qname
	}
	fn()
	w.cur = prev
}

// addDep records a completeness edge for the current top-level decl,
// deduplicating targets. A layout need supersedes an earlier name need for
// the same target; a self-reference or builtin type is never an edge.
func (w *walker) addDep(target, need string) {
	if w.cur == "" || target == "" || target == w.cur || isBuiltin(target) {
		return
	}
	if strippedSelf(target, w.cur) {
		return
	}
	deps := w.out.Deps[w.cur]
	for i := range deps {
		if deps[i].Target == target {
			if need == needLayout {
				deps[i].Need = needLayout
			}
			w.out.Deps[w.cur] = deps
			return
		}
	}
	w.out.Deps[w.cur] = append(deps, Dep{Target: target, Need: need})
}

// strippedSelf reports whether target spells the current decl's own
// unqualified name (self-referential members through pointers).
func strippedSelf(target, cur string) bool {
	i := strings.LastIndex(cur, "::")
	return i >= 0 && target == cur[i+2:]
}
