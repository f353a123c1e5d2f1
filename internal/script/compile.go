package script

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
)

// Program is a compiled script.
type Program struct {
	Source string
	Root   Expr

	// Refs lists the variables the script reads.
	Refs []string
}

// Compile parses src and resolves every identifier against the given
// variable names and the builtins.
func Compile(src string, names []string) (*Program, error) {
	x, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	l := &lowerer{
		known: make(map[string]bool, len(names)),
		refs:  make(map[string]bool),
	}
	for _, n := range names {
		l.known[n] = true
	}
	root, err := l.expr(x)
	if err != nil {
		return nil, err
	}
	p := &Program{Source: src, Root: root}
	for _, n := range names {
		if l.refs[n] {
			p.Refs = append(p.Refs, n)
		}
	}
	return p, nil
}

type lowerer struct {
	known map[string]bool
	refs  map[string]bool
}

var binaryOps = map[token.Token]BinaryOp{
	token.ADD:  OpAdd,
	token.SUB:  OpSub,
	token.MUL:  OpMul,
	token.QUO:  OpDiv,
	token.REM:  OpMod,
	token.EQL:  OpEq,
	token.NEQ:  OpNeq,
	token.LSS:  OpLt,
	token.LEQ:  OpLte,
	token.GTR:  OpGt,
	token.GEQ:  OpGte,
	token.LAND: OpAnd,
	token.LOR:  OpOr,
}

func (l *lowerer) expr(x ast.Expr) (Expr, error) {
	switch x := x.(type) {
	case *ast.ParenExpr:
		return l.expr(x.X)

	case *ast.BasicLit:
		switch x.Kind {
		case token.INT:
			n, err := strconv.ParseInt(x.Value, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("bad integer %s", x.Value)
			}
			return LiteralExpr{Val: IntValue{Val: n}}, nil
		case token.STRING:
			s, err := strconv.Unquote(x.Value)
			if err != nil {
				return nil, fmt.Errorf("bad string %s", x.Value)
			}
			return LiteralExpr{Val: StringValue{Val: s}}, nil
		default:
			return nil, fmt.Errorf("unsupported literal %s", x.Value)
		}

	case *ast.Ident:
		switch x.Name {
		case "true":
			return LiteralExpr{Val: BoolValue{Val: true}}, nil
		case "false":
			return LiteralExpr{Val: BoolValue{Val: false}}, nil
		case "nil":
			return LiteralExpr{Val: NilValue{}}, nil
		}
		if !l.known[x.Name] {
			return nil, fmt.Errorf("undefined: %s", x.Name)
		}
		l.refs[x.Name] = true
		return VarExpr{Name: x.Name}, nil

	case *ast.UnaryExpr:
		operand, err := l.expr(x.X)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case token.NOT:
			return UnaryExpr{Op: OpNot, Operand: operand}, nil
		case token.SUB:
			return UnaryExpr{Op: OpNeg, Operand: operand}, nil
		case token.ADD:
			return operand, nil
		}
		return nil, fmt.Errorf("unsupported operator %s", x.Op)

	case *ast.BinaryExpr:
		op, ok := binaryOps[x.Op]
		if !ok {
			return nil, fmt.Errorf("unsupported operator %s", x.Op)
		}
		left, err := l.expr(x.X)
		if err != nil {
			return nil, err
		}
		right, err := l.expr(x.Y)
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: op, Left: left, Right: right}, nil

	case *ast.CallExpr:
		fn, ok := x.Fun.(*ast.Ident)
		if !ok {
			return nil, fmt.Errorf("only builtin calls are supported")
		}
		b, ok := builtins[fn.Name]
		if !ok {
			return nil, fmt.Errorf("undefined function: %s", fn.Name)
		}
		if len(x.Args) != b.arity {
			return nil, fmt.Errorf("%s expects %d argument(s), got %d", fn.Name, b.arity, len(x.Args))
		}
		args := make([]Expr, 0, len(x.Args))
		for _, a := range x.Args {
			arg, err := l.expr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return CallExpr{Func: fn.Name, Args: args}, nil
	}
	return nil, fmt.Errorf("unsupported expression %T", x)
}
