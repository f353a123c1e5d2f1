package tree

// Kind enumerates every construct the Go front-end can produce.
// The set is closed: the matcher dispatches over it with a switch.
type Kind uint8

const (
	KindInvalid Kind = iota

	// KindList is an ordered (or, when Unordered is set, order-independent)
	// sequence of sibling nodes. Its Token names the element category.
	KindList

	KindFile
	KindComment

	// expressions and types
	KindIdent
	KindBasicLit
	KindCompositeLit
	KindFuncLit
	KindParenExpr
	KindSelectorExpr
	KindIndexExpr
	KindIndexListExpr
	KindSliceExpr
	KindTypeAssertExpr
	KindCallExpr
	KindStarExpr
	KindUnaryExpr
	KindBinaryExpr
	KindKeyValueExpr
	KindEllipsis
	KindArrayType
	KindStructType
	KindFuncType
	KindInterfaceType
	KindMapType
	KindChanType

	KindField
	KindFieldList

	// statements
	KindDeclStmt
	KindEmptyStmt
	KindLabeledStmt
	KindExprStmt
	KindSendStmt
	KindIncDecStmt
	KindAssignStmt
	KindGoStmt
	KindDeferStmt
	KindReturnStmt
	KindBranchStmt
	KindBlockStmt
	KindIfStmt
	KindCaseClause
	KindSwitchStmt
	KindTypeSwitchStmt
	KindCommClause
	KindSelectStmt
	KindForStmt
	KindRangeStmt

	// specs and declarations
	KindImportSpec
	KindValueSpec
	KindTypeSpec
	KindGenDecl
	KindFuncDecl

	kindCount
)

var kindNames = [kindCount]string{
	KindInvalid:        "Invalid",
	KindList:           "List",
	KindFile:           "File",
	KindComment:        "Comment",
	KindIdent:          "Ident",
	KindBasicLit:       "BasicLit",
	KindCompositeLit:   "CompositeLit",
	KindFuncLit:        "FuncLit",
	KindParenExpr:      "ParenExpr",
	KindSelectorExpr:   "SelectorExpr",
	KindIndexExpr:      "IndexExpr",
	KindIndexListExpr:  "IndexListExpr",
	KindSliceExpr:      "SliceExpr",
	KindTypeAssertExpr: "TypeAssertExpr",
	KindCallExpr:       "CallExpr",
	KindStarExpr:       "StarExpr",
	KindUnaryExpr:      "UnaryExpr",
	KindBinaryExpr:     "BinaryExpr",
	KindKeyValueExpr:   "KeyValueExpr",
	KindEllipsis:       "Ellipsis",
	KindArrayType:      "ArrayType",
	KindStructType:     "StructType",
	KindFuncType:       "FuncType",
	KindInterfaceType:  "InterfaceType",
	KindMapType:        "MapType",
	KindChanType:       "ChanType",
	KindField:          "Field",
	KindFieldList:      "FieldList",
	KindDeclStmt:       "DeclStmt",
	KindEmptyStmt:      "EmptyStmt",
	KindLabeledStmt:    "LabeledStmt",
	KindExprStmt:       "ExprStmt",
	KindSendStmt:       "SendStmt",
	KindIncDecStmt:     "IncDecStmt",
	KindAssignStmt:     "AssignStmt",
	KindGoStmt:         "GoStmt",
	KindDeferStmt:      "DeferStmt",
	KindReturnStmt:     "ReturnStmt",
	KindBranchStmt:     "BranchStmt",
	KindBlockStmt:      "BlockStmt",
	KindIfStmt:         "IfStmt",
	KindCaseClause:     "CaseClause",
	KindSwitchStmt:     "SwitchStmt",
	KindTypeSwitchStmt: "TypeSwitchStmt",
	KindCommClause:     "CommClause",
	KindSelectStmt:     "SelectStmt",
	KindForStmt:        "ForStmt",
	KindRangeStmt:      "RangeStmt",
	KindImportSpec:     "ImportSpec",
	KindValueSpec:      "ValueSpec",
	KindTypeSpec:       "TypeSpec",
	KindGenDecl:        "GenDecl",
	KindFuncDecl:       "FuncDecl",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Unknown"
}

// Class groups kinds by the syntactic category a placeholder can stand for.
type Class uint8

const (
	ClassNone Class = iota
	ClassExpr
	ClassStmt
	ClassSpec
	ClassDecl
	ClassField
	ClassList
	ClassComment
	ClassFile
)

func (c Class) String() string {
	switch c {
	case ClassExpr:
		return "expression"
	case ClassStmt:
		return "statement"
	case ClassSpec:
		return "spec"
	case ClassDecl:
		return "declaration"
	case ClassField:
		return "field"
	case ClassList:
		return "list"
	case ClassComment:
		return "comment"
	case ClassFile:
		return "file"
	default:
		return "none"
	}
}

// Class reports the syntactic category of k.
func (k Kind) Class() Class {
	switch {
	case k == KindList:
		return ClassList
	case k == KindFile:
		return ClassFile
	case k == KindComment:
		return ClassComment
	case k >= KindIdent && k <= KindChanType:
		return ClassExpr
	case k == KindField || k == KindFieldList:
		return ClassField
	case k >= KindDeclStmt && k <= KindRangeStmt:
		return ClassStmt
	case k >= KindImportSpec && k <= KindTypeSpec:
		return ClassSpec
	case k == KindGenDecl || k == KindFuncDecl:
		return ClassDecl
	default:
		return ClassNone
	}
}

// Element categories carried in the Token of a KindList node.
const (
	ListStmts  = "stmts"
	ListExprs  = "exprs"
	ListIdents = "idents"
	ListFields = "fields"
	ListSpecs  = "specs"
	ListDecls  = "decls"
)
