// Package preprocess implements the staged compile-time metalanguage
// evaluator spec.md §4.4 and §9 describe: "a faithful re-implementation
// should embed a small interpreter (expression and statement subset
// sufficient to run the metaprograms observed in the corpus) rather than
// an FFI to the host." There is no ecosystem library for this exact
// embedded DSL — it is specific to this compiler — so Env/Interp are
// hand-written, the way the teacher hand-writes its own macro substituter
// (internal/transpiler/macro/expander.go) rather than importing a
// general-purpose scripting engine.
//
// Env exposes the current Context, the current Scope, Declare/Lookup for
// metalanguage variables, and AfterAnalyze to queue a hook. It does not
// expose the AST path, the type registry, emit helpers, or declaration of
// scope symbols. Splicing fresh AST nodes back into the tree is the
// analyzer's job once it has a Value back from Eval — see
// spliceEvaluated in internal/compiler/analysis/visitors.go.
package preprocess

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vexlang/vxc/internal/compiler/context"
	"github.com/vexlang/vxc/internal/compiler/scope"
)

// Value is the small metalanguage's dynamic value: an integer, a float,
// a bool, or a string. There is no separate "comptime" type distinct from
// these: a spliced Value is rendered back to source text (RenderValue)
// and re-parsed as an ordinary literal, and no comptime marker is kept.
type Value any

// Env is the environment a Preprocess/PreprocessExpr/PreprocessName node
// executes against. One Env is threaded per analyzed compilation unit,
// so a `local n` declared in one preprocessor block is visible to a later
// block in the same file — matching the teacher's macro expander sharing
// one substitution environment across a file.
type Env struct {
	vars  map[string]Value
	ctx   *context.Context
	scope *scope.Scope
}

func NewEnv(ctx *context.Context, sc *scope.Scope) *Env {
	return &Env{vars: make(map[string]Value), ctx: ctx, scope: sc}
}

func (e *Env) Declare(name string, v Value) { e.vars[name] = v }

func (e *Env) Lookup(name string) (Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

func (e *Env) Context() *context.Context { return e.ctx }
func (e *Env) Scope() *scope.Scope       { return e.scope }

// AfterAnalyze queues fn to run once the main analysis traversal
// terminates, re-entering this same Env so the hook body sees every
// variable declared up to that point (spec.md §4.4).
func (e *Env) AfterAnalyze(fn func(*Env) error) {
	e.ctx.AfterAnalyze(func(*context.Context) error { return fn(e) })
}

// ExecBlock runs a `##[[ ... ]]` or `## ...` statement sequence against e.
func (e *Env) ExecBlock(src string) error {
	p := newParser(src)
	stmts, err := p.parseStmts()
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if err := e.execStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// EvalExpr evaluates a `#[ ... ]#` expression and returns its value.
func (e *Env) EvalExpr(src string) (Value, error) {
	p := newParser(src)
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("trailing input after expression: %q", p.rest())
	}
	return e.evalExpr(expr)
}

// EvalName evaluates a `#|...|#` name-splice, returning the text to
// substitute as a bare identifier (e.g. to build a name dynamically).
func (e *Env) EvalName(src string) (string, error) {
	v, err := e.EvalExpr(src)
	if err != nil {
		return "", err
	}
	return valueToSourceText(v), nil
}

// RenderValue exposes valueToSourceText to callers outside the package
// (the analyzer, splicing an EvalExpr result back into source text).
func RenderValue(v Value) string { return valueToSourceText(v) }

// valueToSourceText renders v the way it must appear once spliced back
// into source for re-parsing — e.g. an integer becomes its decimal digits,
// never the Go %v representation of an int64.
func valueToSourceText(v Value) string {
	switch t := v.(type) {
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

func (e *Env) execStmt(s stmt) error {
	switch st := s.(type) {
	case *localStmt:
		for i, name := range st.names {
			v, err := e.evalExpr(st.values[i])
			if err != nil {
				return err
			}
			e.Declare(name, v)
		}
		return nil
	case *assignStmt:
		if _, ok := e.Lookup(st.name); !ok {
			return fmt.Errorf("assignment to undeclared preprocessor variable %q", st.name)
		}
		v, err := e.evalExpr(st.value)
		if err != nil {
			return err
		}
		e.Declare(st.name, v)
		return nil
	case *afterAnalyzeStmt:
		body := st.body
		e.AfterAnalyze(func(e *Env) error {
			for _, inner := range body {
				if err := e.execStmt(inner); err != nil {
					return err
				}
			}
			return nil
		})
		return nil
	case *exprStmt:
		_, err := e.evalExpr(st.expr)
		return err
	default:
		return fmt.Errorf("unsupported preprocessor statement")
	}
}

func (e *Env) evalExpr(ex expr) (Value, error) {
	switch n := ex.(type) {
	case *numberLit:
		return n.value, nil
	case *stringLit:
		return n.value, nil
	case *boolLit:
		return n.value, nil
	case *identExpr:
		v, ok := e.Lookup(n.name)
		if !ok {
			return nil, fmt.Errorf("undefined preprocessor variable %q", n.name)
		}
		return v, nil
	case *unaryExpr:
		v, err := e.evalExpr(n.operand)
		if err != nil {
			return nil, err
		}
		return applyUnary(n.op, v)
	case *binaryExpr:
		lv, err := e.evalExpr(n.left)
		if err != nil {
			return nil, err
		}
		rv, err := e.evalExpr(n.right)
		if err != nil {
			return nil, err
		}
		return applyBinary(n.op, lv, rv)
	default:
		return nil, fmt.Errorf("unsupported preprocessor expression")
	}
}

func applyUnary(op string, v Value) (Value, error) {
	switch op {
	case "-":
		switch t := v.(type) {
		case int64:
			return -t, nil
		case float64:
			return -t, nil
		}
		return nil, fmt.Errorf("unary - requires a number")
	case "not":
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("not requires a bool")
		}
		return !b, nil
	}
	return nil, fmt.Errorf("unknown unary operator %q", op)
}

func applyBinary(op string, l, r Value) (Value, error) {
	if op == "and" || op == "or" {
		lb, lok := l.(bool)
		rb, rok := r.(bool)
		if !lok || !rok {
			return nil, fmt.Errorf("%s requires bool operands", op)
		}
		if op == "and" {
			return lb && rb, nil
		}
		return lb || rb, nil
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if lok && rok {
		li, liok := l.(int64)
		ri, riok := r.(int64)
		bothInt := liok && riok
		switch op {
		case "+":
			if bothInt {
				return li + ri, nil
			}
			return lf + rf, nil
		case "-":
			if bothInt {
				return li - ri, nil
			}
			return lf - rf, nil
		case "*":
			if bothInt {
				return li * ri, nil
			}
			return lf * rf, nil
		case "/":
			return lf / rf, nil
		case "//":
			if bothInt {
				if ri == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				return li / ri, nil
			}
			return float64(int64(lf / rf)), nil
		case "%":
			if bothInt {
				if ri == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				return li % ri, nil
			}
		case "==":
			return lf == rf, nil
		case "~=":
			return lf != rf, nil
		case "<":
			return lf < rf, nil
		case ">":
			return lf > rf, nil
		case "<=":
			return lf <= rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}
	if op == ".." {
		return fmt.Sprint(l) + fmt.Sprint(r), nil
	}
	return nil, fmt.Errorf("cannot apply %q to %v and %v", op, l, r)
}

func asFloat(v Value) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

// StripTextForSplice trims a decoded Preprocess/PreprocessExpr/
// PreprocessName node's surrounding delimiters; the parser
// (internal/compiler/parser) already does this when it builds the AST
// node's Text field, so this helper exists only for callers working from
// raw source.
func StripTextForSplice(s string) string {
	return strings.TrimSpace(s)
}
