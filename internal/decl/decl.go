// Package decl defines the in-memory declaration tree that taproot snapshots
// serialize and the lazy loader materializes into. A Decl is one node of the
// tree: a namespace, record, field, function, enum, or alias, identified by
// its fully-qualified name (components joined with "::").
package decl

import "strings"

// Kind identifies what a Decl node declares. The values mirror the
// vocabulary clang uses in its declaration dumps so taproot's own dump
// output reads the same way.
type Kind string

const (
	KindTranslationUnit Kind = "TranslationUnit"
	KindNamespace       Kind = "Namespace"
	KindRecord          Kind = "CXXRecord"
	KindField           Kind = "Field"
	KindMethod          Kind = "CXXMethod"
	KindFunction        Kind = "Function"
	KindEnum            Kind = "Enum"
	KindEnumConstant    Kind = "EnumConstant"
	KindTypedef         Kind = "Typedef"
	KindAlias           Kind = "TypeAlias"
	KindVar             Kind = "Var"
)

// Decl is a single declaration node. Kind-specific details live in the
// optional pointer fields; exactly one of them is set for kinds that carry
// detail, and none for namespaces and enum constants.
type Decl struct {
	Kind          Kind   `json:"kind"`
	Name          string `json:"name"`
	QualifiedName string `json:"qualified_name"`
	StartLine     int    `json:"start_line,omitempty"`
	EndLine       int    `json:"end_line,omitempty"`

	Children []*Decl `json:"children,omitempty"`

	Record   *RecordDetail   `json:"record,omitempty"`
	Object   *ObjectDetail   `json:"object,omitempty"`
	Function *FunctionDetail `json:"function,omitempty"`
	Alias    *AliasDetail    `json:"alias,omitempty"`
}

// RecordDetail describes a class or struct.
type RecordDetail struct {
	Tag   string   `json:"tag"` // "class" or "struct"
	Bases []string `json:"bases,omitempty"`
}

// ObjectDetail describes a field or namespace-scope variable. Indirect is
// true when the declarator goes through a pointer or reference, in which
// case the declared type never needs a complete definition.
type ObjectDetail struct {
	TypeExpr string `json:"type_expr"`
	Indirect bool   `json:"indirect,omitempty"`
}

// FunctionDetail describes a free function or method signature.
type FunctionDetail struct {
	Params     []Param `json:"params,omitempty"`
	ResultExpr string  `json:"result_expr,omitempty"`
}

// Param is one function parameter.
type Param struct {
	Name     string `json:"name,omitempty"`
	TypeExpr string `json:"type_expr"`
}

// AliasDetail describes a typedef or using-alias target.
type AliasDetail struct {
	TargetExpr string `json:"target_expr"`
}

// Scope returns the enclosing qualified name: "a::b" for "a::b::C", "" for
// a top-level name.
func Scope(qualifiedName string) string {
	i := strings.LastIndex(qualifiedName, "::")
	if i < 0 {
		return ""
	}
	return qualifiedName[:i]
}

// Join appends name to a scope, treating an empty scope as global.
func Join(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "::" + name
}

// Walk calls fn for d and every descendant in depth-first declaration order.
func Walk(d *Decl, fn func(*Decl)) {
	fn(d)
	for _, c := range d.Children {
		Walk(c, fn)
	}
}
