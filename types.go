package taproot

import (
	"github.com/jward/taproot/internal/decl"
	"github.com/jward/taproot/internal/store"
)

// Public type aliases for internal types used in the Engine and Loader API.
// These are Go type aliases (=), identical to the internal types at compile
// time. External consumers use these names; no conversion is needed.

type Store = store.Store
type Header = store.Header
type Snapshot = store.Snapshot
type StoredDecl = store.Decl
type DeclDep = store.DeclDep

type Decl = decl.Decl
type Kind = decl.Kind
type TranslationUnit = decl.TranslationUnit

// Declaration kinds, re-exported for consumers matching on loaded decls.
const (
	KindTranslationUnit = decl.KindTranslationUnit
	KindNamespace       = decl.KindNamespace
	KindRecord          = decl.KindRecord
	KindField           = decl.KindField
	KindMethod          = decl.KindMethod
	KindFunction        = decl.KindFunction
	KindEnum            = decl.KindEnum
	KindEnumConstant    = decl.KindEnumConstant
	KindTypedef         = decl.KindTypedef
	KindAlias           = decl.KindAlias
	KindVar             = decl.KindVar
)
