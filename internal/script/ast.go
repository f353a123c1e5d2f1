package script

import "strings"

// Expr is a node of a compiled script.
type Expr interface {
	isExpr()
	String() string
}

// LiteralExpr is a constant.
type LiteralExpr struct {
	Val Value
}

func (LiteralExpr) isExpr() {}
func (e LiteralExpr) String() string {
	if s, ok := e.Val.(StringValue); ok {
		return `"` + s.Val + `"`
	}
	return e.Val.String()
}

// VarExpr references a pattern variable.
type VarExpr struct {
	Name string
}

func (VarExpr) isExpr() {}
func (e VarExpr) String() string {
	return e.Name
}

// BinaryOp represents binary operators.
type BinaryOp int

const (
	_ BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "?"
	}
}

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (BinaryExpr) isExpr() {}
func (e BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

// UnaryOp represents unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpNeg:
		return "-"
	default:
		return "?"
	}
}

// UnaryExpr represents a unary expression.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
}

func (UnaryExpr) isExpr() {}
func (e UnaryExpr) String() string {
	return "(" + e.Op.String() + e.Operand.String() + ")"
}

// CallExpr calls a builtin.
type CallExpr struct {
	Func string
	Args []Expr
}

func (CallExpr) isExpr() {}
func (e CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Func + "(" + strings.Join(args, ", ") + ")"
}
