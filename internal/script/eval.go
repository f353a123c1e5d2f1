package script

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/gnoswap-labs/ssr/internal/tree"
)

// Fault is a runtime error raised while evaluating a script.
type Fault struct {
	Script string
	Msg    string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("script %q: %s", f.Script, f.Msg)
}

// Eval runs the program against env.
func (p *Program) Eval(env *Env) (v Value, err error) {
	ev := &evaluator{env: env}
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Fault)
			if !ok {
				panic(r)
			}
			f.Script = p.Source
			v, err = nil, f
		}
	}()
	return ev.eval(p.Root), nil
}

// Test runs the program and reads its result as a predicate.
func (p *Program) Test(env *Env) (bool, error) {
	v, err := p.Eval(env)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

type evaluator struct {
	env *Env
}

func fault(format string, args ...any) {
	panic(&Fault{Msg: fmt.Sprintf(format, args...)})
}

func (ev *evaluator) eval(expr Expr) Value {
	switch e := expr.(type) {
	case LiteralExpr:
		return e.Val

	case VarExpr:
		return ev.env.Get(e.Name)

	case UnaryExpr:
		operand := ev.eval(e.Operand)
		switch e.Op {
		case OpNot:
			return BoolValue{Val: !Truthy(operand)}
		case OpNeg:
			if i, ok := operand.(IntValue); ok {
				return IntValue{Val: -i.Val}
			}
			fault("cannot negate %s", typeName(operand))
		}

	case BinaryExpr:
		// && and || short-circuit and accept any operand.
		switch e.Op {
		case OpAnd:
			if !Truthy(ev.eval(e.Left)) {
				return BoolValue{Val: false}
			}
			return BoolValue{Val: Truthy(ev.eval(e.Right))}
		case OpOr:
			if Truthy(ev.eval(e.Left)) {
				return BoolValue{Val: true}
			}
			return BoolValue{Val: Truthy(ev.eval(e.Right))}
		}
		return ev.binary(e.Op, ev.eval(e.Left), ev.eval(e.Right))

	case CallExpr:
		args := make([]Value, len(e.Args))
		for i, a := range e.Args {
			args[i] = ev.eval(a)
		}
		return builtins[e.Func].fn(ev, args)
	}
	fault("cannot evaluate %s", expr)
	return nil
}

func (ev *evaluator) binary(op BinaryOp, left, right Value) Value {
	switch op {
	case OpEq:
		return BoolValue{Val: left.Equal(right)}
	case OpNeq:
		return BoolValue{Val: !left.Equal(right)}
	}

	if l, ok := left.(IntValue); ok {
		r, ok := right.(IntValue)
		if !ok {
			fault("mismatched operands %s %s %s", typeName(left), op, typeName(right))
		}
		switch op {
		case OpAdd:
			return IntValue{Val: l.Val + r.Val}
		case OpSub:
			return IntValue{Val: l.Val - r.Val}
		case OpMul:
			return IntValue{Val: l.Val * r.Val}
		case OpDiv:
			if r.Val == 0 {
				fault("division by zero")
			}
			return IntValue{Val: l.Val / r.Val}
		case OpMod:
			if r.Val == 0 {
				fault("division by zero")
			}
			return IntValue{Val: l.Val % r.Val}
		case OpLt:
			return BoolValue{Val: l.Val < r.Val}
		case OpLte:
			return BoolValue{Val: l.Val <= r.Val}
		case OpGt:
			return BoolValue{Val: l.Val > r.Val}
		case OpGte:
			return BoolValue{Val: l.Val >= r.Val}
		}
	}

	// Strings, nodes and lists are compared and concatenated as text.
	if isText(left) && isText(right) {
		l, r := left.String(), right.String()
		switch op {
		case OpAdd:
			return StringValue{Val: l + r}
		case OpLt:
			return BoolValue{Val: l < r}
		case OpLte:
			return BoolValue{Val: l <= r}
		case OpGt:
			return BoolValue{Val: l > r}
		case OpGte:
			return BoolValue{Val: l >= r}
		}
	}

	fault("invalid operation %s %s %s", typeName(left), op, typeName(right))
	return nil
}

func isText(v Value) bool {
	switch v.(type) {
	case StringValue, NodeValue, ListValue:
		return true
	}
	return false
}

type builtin struct {
	arity int
	fn    func(ev *evaluator, args []Value) Value
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"text":      {1, builtinText},
		"len":       {1, builtinLen},
		"kind":      {1, builtinKind},
		"typeOf":    {1, builtinTypeOf},
		"lower":     {1, builtinLower},
		"upper":     {1, builtinUpper},
		"contains":  {2, textPredicate("contains", strings.Contains)},
		"hasPrefix": {2, textPredicate("hasPrefix", strings.HasPrefix)},
		"hasSuffix": {2, textPredicate("hasSuffix", strings.HasSuffix)},
		"matches":   {2, builtinMatches},
		"isNil":     {1, builtinIsNil},
		"first":     {1, func(_ *evaluator, a []Value) Value { return pick(a[0], true) }},
		"last":      {1, func(_ *evaluator, a []Value) Value { return pick(a[0], false) }},
	}
}

func builtinText(_ *evaluator, a []Value) Value {
	if _, ok := a[0].(NilValue); ok {
		return StringValue{}
	}
	return StringValue{Val: a[0].String()}
}

func builtinLower(_ *evaluator, a []Value) Value {
	return StringValue{Val: strings.ToLower(textArg("lower", a[0]))}
}

func builtinUpper(_ *evaluator, a []Value) Value {
	return StringValue{Val: strings.ToUpper(textArg("upper", a[0]))}
}

func builtinIsNil(_ *evaluator, a []Value) Value {
	_, ok := a[0].(NilValue)
	return BoolValue{Val: ok}
}

func textPredicate(name string, pred func(s, sub string) bool) func(*evaluator, []Value) Value {
	return func(_ *evaluator, a []Value) Value {
		return BoolValue{Val: pred(textArg(name, a[0]), textArg(name, a[1]))}
	}
}

func textArg(fn string, v Value) string {
	if !isText(v) {
		fault("%s: expected text, got %s", fn, typeName(v))
	}
	return v.String()
}

func builtinLen(_ *evaluator, a []Value) Value {
	switch v := a[0].(type) {
	case ListValue:
		return IntValue{Val: int64(len(v.Nodes))}
	case NilValue:
		return IntValue{Val: 0}
	case NodeValue:
		return IntValue{Val: 1}
	case StringValue:
		return IntValue{Val: int64(len(v.Val))}
	}
	fault("len: unsupported %s", typeName(a[0]))
	return nil
}

func builtinKind(_ *evaluator, a []Value) Value {
	switch v := a[0].(type) {
	case NodeValue:
		return StringValue{Val: v.Node.Kind.String()}
	case ListValue:
		if len(v.Nodes) == 1 {
			return StringValue{Val: v.Nodes[0].Kind.String()}
		}
		return StringValue{Val: tree.KindList.String()}
	case NilValue:
		return StringValue{}
	}
	fault("kind: expected a node, got %s", typeName(a[0]))
	return nil
}

func builtinTypeOf(ev *evaluator, a []Value) Value {
	var n *tree.Node
	switch v := a[0].(type) {
	case NodeValue:
		n = v.Node
	case ListValue:
		if len(v.Nodes) == 1 {
			n = v.Nodes[0]
		}
	}
	if n == nil || ev.env.TypeOf == nil {
		return NilValue{}
	}
	if t, ok := ev.env.TypeOf(n); ok {
		return StringValue{Val: t}
	}
	return NilValue{}
}

var regexCache regexpCache

func builtinMatches(_ *evaluator, a []Value) Value {
	pattern := textArg("matches", a[1])
	re, err := regexCache.get(pattern)
	if err != nil {
		fault("matches: %v", err)
	}
	return BoolValue{Val: re.MatchString(textArg("matches", a[0]))}
}

func pick(v Value, first bool) Value {
	switch v := v.(type) {
	case ListValue:
		if len(v.Nodes) == 0 {
			return NilValue{}
		}
		if first {
			return NodeValue{Node: v.Nodes[0]}
		}
		return NodeValue{Node: v.Nodes[len(v.Nodes)-1]}
	case NodeValue, NilValue:
		return v
	}
	fault("first/last: expected a list, got %s", typeName(v))
	return nil
}

// regexpCache keeps compiled regular expressions across evaluations.
type regexpCache struct {
	mu sync.Mutex
	m  map[string]*regexp.Regexp
}

func (c *regexpCache) get(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.m[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if c.m == nil {
		c.m = make(map[string]*regexp.Regexp)
	}
	c.m[pattern] = re
	return re, nil
}
