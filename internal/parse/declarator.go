package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// findFunctionDeclarator descends a declarator chain looking for a
// function_declarator, unwrapping pointer/reference wrappers (a function
// returning a pointer still has one underneath).
func findFunctionDeclarator(node *sitter.Node) *sitter.Node {
	for node != nil {
		switch node.Type() {
		case "function_declarator":
			return node
		case "pointer_declarator", "reference_declarator", "parenthesized_declarator":
			node = innerDeclarator(node)
		default:
			return nil
		}
	}
	return nil
}

// declaratorName descends to the identifier a declarator ultimately names.
// Returns "" for declarators taproot does not model (operators, destructors,
// qualified out-of-line names).
func declaratorName(node *sitter.Node, src []byte) string {
	for node != nil {
		switch node.Type() {
		case "identifier", "field_identifier", "type_identifier":
			return node.Content(src)
		case "pointer_declarator", "reference_declarator", "array_declarator",
			"parenthesized_declarator", "function_declarator", "init_declarator":
			node = innerDeclarator(node)
		default:
			return ""
		}
	}
	return ""
}

// innerDeclarator returns the nested declarator of a wrapper node, trying
// the "declarator" field first and falling back to the first named child
// that is itself declarator-shaped (reference_declarator has no field).
func innerDeclarator(node *sitter.Node) *sitter.Node {
	if d := node.ChildByFieldName("declarator"); d != nil {
		return d
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		c := node.NamedChild(i)
		switch c.Type() {
		case "identifier", "field_identifier", "type_identifier",
			"pointer_declarator", "reference_declarator", "array_declarator",
			"parenthesized_declarator", "function_declarator", "init_declarator":
			return c
		}
	}
	return nil
}

// isIndirect reports whether a declarator goes through a pointer or
// reference, in which case the declared type never needs a complete
// definition at this use.
func isIndirect(node *sitter.Node) bool {
	for node != nil {
		switch node.Type() {
		case "pointer_declarator", "reference_declarator",
			"abstract_pointer_declarator", "abstract_reference_declarator":
			return true
		case "parenthesized_declarator", "init_declarator", "array_declarator":
			node = innerDeclarator(node)
		default:
			return false
		}
	}
	return false
}

// typeText extracts the spelled type name from a type node, normalized:
// elaborated keywords and qualifiers stripped, template arguments dropped
// ("std::vector<int>" -> "std::vector").
func typeText(node *sitter.Node, src []byte) string {
	switch node.Type() {
	case "template_type":
		if n := node.ChildByFieldName("name"); n != nil {
			return n.Content(src)
		}
	case "struct_specifier", "class_specifier", "enum_specifier":
		if n := node.ChildByFieldName("name"); n != nil {
			return n.Content(src)
		}
		return "" // anonymous specifier used as a type
	}
	text := node.Content(src)
	for _, prefix := range []string{"const ", "volatile ", "struct ", "class ", "enum ", "typename "} {
		text = strings.TrimPrefix(text, prefix)
	}
	if i := strings.IndexByte(text, '<'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// builtinTypes never become completeness edges.
var builtinTypes = map[string]bool{
	"void": true, "bool": true, "char": true, "wchar_t": true,
	"char8_t": true, "char16_t": true, "char32_t": true,
	"short": true, "int": true, "long": true, "signed": true, "unsigned": true,
	"float": true, "double": true, "auto": true,
	"size_t": true, "ssize_t": true, "ptrdiff_t": true, "nullptr_t": true,
	"int8_t": true, "int16_t": true, "int32_t": true, "int64_t": true,
	"uint8_t": true, "uint16_t": true, "uint32_t": true, "uint64_t": true,
	"intptr_t": true, "uintptr_t": true,
}

func isBuiltin(typeExpr string) bool {
	if builtinTypes[typeExpr] {
		return true
	}
	// Multi-word builtins: "unsigned int", "long long", "signed char".
	fields := strings.Fields(typeExpr)
	if len(fields) < 2 {
		return false
	}
	for _, f := range fields {
		if !builtinTypes[f] {
			return false
		}
	}
	return true
}
