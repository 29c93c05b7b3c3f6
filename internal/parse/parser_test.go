package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/decl"
)

func parseHeader(t *testing.T, src string) *HeaderDecls {
	t.Helper()
	out, err := Header(context.Background(), []byte(src))
	require.NoError(t, err)
	return out
}

func declByName(t *testing.T, out *HeaderDecls, qname string) *decl.Decl {
	t.Helper()
	for _, d := range out.Decls {
		if d.QualifiedName == qname {
			return d
		}
	}
	t.Fatalf("no top-level decl %q (have %d decls)", qname, len(out.Decls))
	return nil
}

func depByTarget(deps []Dep, target string) (Dep, bool) {
	for _, d := range deps {
		if d.Target == target {
			return d, true
		}
	}
	return Dep{}, false
}

func TestHeader_StructWithFields(t *testing.T) {
	t.Parallel()
	out := parseHeader(t, `
struct Point {
    int x;
    int y;
};
`)
	d := declByName(t, out, "Point")
	assert.Equal(t, decl.KindRecord, d.Kind)
	assert.Equal(t, "struct", d.Record.Tag)
	require.Len(t, d.Children, 2)
	assert.Equal(t, "x", d.Children[0].Name)
	assert.Equal(t, "Point::y", d.Children[1].QualifiedName)
	assert.Equal(t, "int", d.Children[0].Object.TypeExpr)

	// Builtin field types produce no deps.
	assert.Empty(t, out.Deps["Point"])
}

func TestHeader_ClassMembersAndMethods(t *testing.T) {
	t.Parallel()
	out := parseHeader(t, `
class Animal {
public:
    int getAge() const;
    void setAge(int age);
private:
    int age_;
};
`)
	d := declByName(t, out, "Animal")
	assert.Equal(t, "class", d.Record.Tag)

	byName := map[string]*decl.Decl{}
	for _, c := range d.Children {
		byName[c.Name] = c
	}
	require.Contains(t, byName, "getAge")
	assert.Equal(t, decl.KindMethod, byName["getAge"].Kind)
	assert.Equal(t, "int", byName["getAge"].Function.ResultExpr)

	require.Contains(t, byName, "setAge")
	require.Len(t, byName["setAge"].Function.Params, 1)
	assert.Equal(t, "int", byName["setAge"].Function.Params[0].TypeExpr)

	require.Contains(t, byName, "age_")
	assert.Equal(t, decl.KindField, byName["age_"].Kind)
}

func TestHeader_DependencyNeeds(t *testing.T) {
	t.Parallel()
	out := parseHeader(t, `
struct Engine {
    Piston piston;
    Garage* garage;
    Manual& manual;
};
`)
	deps := out.Deps["Engine"]

	piston, ok := depByTarget(deps, "Piston")
	require.True(t, ok)
	assert.Equal(t, needLayout, piston.Need, "by-value member needs layout")

	garage, ok := depByTarget(deps, "Garage")
	require.True(t, ok)
	assert.Equal(t, needName, garage.Need, "pointer member needs only the name")

	manual, ok := depByTarget(deps, "Manual")
	require.True(t, ok)
	assert.Equal(t, needName, manual.Need, "reference member needs only the name")
}

func TestHeader_BaseClassIsLayoutDep(t *testing.T) {
	t.Parallel()
	out := parseHeader(t, `
class Derived : public Base {
    int extra;
};
`)
	d := declByName(t, out, "Derived")
	assert.Equal(t, []string{"Base"}, d.Record.Bases)

	dep, ok := depByTarget(out.Deps["Derived"], "Base")
	require.True(t, ok)
	assert.Equal(t, needLayout, dep.Need)
}

func TestHeader_SelfReferenceIsNotADep(t *testing.T) {
	t.Parallel()
	out := parseHeader(t, `
struct Node {
    int value;
    Node* next;
};
`)
	_, ok := depByTarget(out.Deps["Node"], "Node")
	assert.False(t, ok)
}

func TestHeader_Namespaces(t *testing.T) {
	t.Parallel()
	out := parseHeader(t, `
namespace ui {
struct Widget {
    int id;
};
void redraw();
}

namespace ui {
struct Panel {
    Widget w;
};
}
`)
	declByName(t, out, "ui::Widget")
	declByName(t, out, "ui::Panel")

	fn := declByName(t, out, "ui::redraw")
	assert.Equal(t, decl.KindFunction, fn.Kind)

	dep, ok := depByTarget(out.Deps["ui::Panel"], "Widget")
	require.True(t, ok)
	assert.Equal(t, needLayout, dep.Need)
}

func TestHeader_NestedNamespaceSpelling(t *testing.T) {
	t.Parallel()
	out := parseHeader(t, `
namespace a::b {
struct C {
    int v;
};
}
`)
	declByName(t, out, "a::b::C")
}

func TestHeader_EnumWithConstants(t *testing.T) {
	t.Parallel()
	out := parseHeader(t, `
enum Color {
    Red,
    Green,
    Blue
};
`)
	d := declByName(t, out, "Color")
	assert.Equal(t, decl.KindEnum, d.Kind)
	require.Len(t, d.Children, 3)
	assert.Equal(t, decl.KindEnumConstant, d.Children[0].Kind)
	assert.Equal(t, "Color::Red", d.Children[0].QualifiedName)
}

func TestHeader_TypedefAndAlias(t *testing.T) {
	t.Parallel()
	out := parseHeader(t, `
typedef unsigned long hash_t;
using WidgetRef = Widget;
`)
	td := declByName(t, out, "hash_t")
	assert.Equal(t, decl.KindTypedef, td.Kind)

	al := declByName(t, out, "WidgetRef")
	assert.Equal(t, decl.KindAlias, al.Kind)
	assert.Equal(t, "Widget", al.Alias.TargetExpr)

	dep, ok := depByTarget(out.Deps["WidgetRef"], "Widget")
	require.True(t, ok)
	assert.Equal(t, needName, dep.Need, "an alias does not force completeness")
}

func TestHeader_FreeFunctionPrototype(t *testing.T) {
	t.Parallel()
	out := parseHeader(t, `
Result transform(const Input& in, int flags);
`)
	fn := declByName(t, out, "transform")
	assert.Equal(t, decl.KindFunction, fn.Kind)
	assert.Equal(t, "Result", fn.Function.ResultExpr)
	require.Len(t, fn.Function.Params, 2)

	// Parameter and return types are name-need only.
	for _, target := range []string{"Result", "Input"} {
		dep, ok := depByTarget(out.Deps["transform"], target)
		require.True(t, ok, "missing dep %s", target)
		assert.Equal(t, needName, dep.Need)
	}
}

func TestHeader_NamespaceScopeVariable(t *testing.T) {
	t.Parallel()
	out := parseHeader(t, `
struct Config { int verbosity; };
Config defaults;
Config* active;
`)
	v := declByName(t, out, "defaults")
	assert.Equal(t, decl.KindVar, v.Kind)
	dep, ok := depByTarget(out.Deps["defaults"], "Config")
	require.True(t, ok)
	assert.Equal(t, needLayout, dep.Need)

	p := declByName(t, out, "active")
	assert.True(t, p.Object.Indirect)
	dep, ok = depByTarget(out.Deps["active"], "Config")
	require.True(t, ok)
	assert.Equal(t, needName, dep.Need)
}

func TestHeader_SkipsPreprocessorAndForwardDecls(t *testing.T) {
	t.Parallel()
	out := parseHeader(t, `
#pragma once
#include <stddef.h>
#define MAX_KEYS 16

class Opaque;

struct Real {
    int v;
};
`)
	require.Len(t, out.Decls, 1)
	assert.Equal(t, "Real", out.Decls[0].QualifiedName)
}

func TestHeader_AnonymousConstructsSkipped(t *testing.T) {
	t.Parallel()
	out := parseHeader(t, `
namespace {
struct Hidden { int v; };
}
struct {
    int loose;
} instance;
`)
	for _, d := range out.Decls {
		assert.NotEqual(t, "Hidden", d.Name, "anonymous namespace contents are not cacheable")
	}
}

func TestHeader_FingerprintStableAcrossLocations(t *testing.T) {
	t.Parallel()
	a := parseHeader(t, "struct P { int x; };\n")
	b := parseHeader(t, "\n\n\n\nstruct P { int x; };\n")

	da := declByName(t, a, "P")
	db := declByName(t, b, "P")
	assert.Equal(t, decl.Fingerprint(da), decl.Fingerprint(db))
}
