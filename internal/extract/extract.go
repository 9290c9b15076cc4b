// Package extract turns an expression string into the validated
// intermediate representation in package ir.
//
// Syntax parsing is delegated to the Starlark parser, which accepts
// exactly the supported surface: `;`-separated statements, `name =
// expr` assignment, function calls with Python-style keyword
// arguments, arithmetic and comparison operators, and
// numeric/boolean/string literals. The extractor interprets the
// resulting tree and rejects every node kind outside the supported
// subset with a coded error.
package extract

import (
	"fmt"

	"go.starlark.net/syntax"

	"github.com/openalpha/exprlint/internal/ir"
)

// Extract parses the expression text and walks it statement by
// statement, producing the operator list, datafield list, and call
// sites. It fails with a CodeSyntax error when the parser rejects the
// text and with CodeUnsupported when a construct outside the grammar
// subset appears. On error the partial extraction is discarded.
func Extract(text string) (*ir.Extraction, error) {
	opts := &syntax.FileOptions{}
	file, err := opts.Parse("<expr>", text, 0)
	if err != nil {
		return nil, syntaxError(err)
	}

	w := &walker{
		bound:        make(map[string]bool),
		operatorPos:  make(map[string]ir.Pos),
		datafieldPos: make(map[string]ir.Pos),
	}

	for _, stmt := range file.Stmts {
		if err := w.stmt(stmt); err != nil {
			return nil, err
		}
	}

	return &ir.Extraction{
		Operators:    w.operators,
		Datafields:   w.datafields,
		CallSites:    w.calls,
		Uses:         w.uses,
		OperatorPos:  w.operatorPos,
		DatafieldPos: w.datafieldPos,
	}, nil
}

// syntaxError converts a host-parser error, preserving its position.
func syntaxError(err error) *Error {
	if se, ok := err.(syntax.Error); ok {
		return &Error{
			Code:    CodeSyntax,
			Message: se.Msg,
			Pos:     ir.Pos{Line: se.Pos.Line, Col: se.Pos.Col},
		}
	}
	return &Error{Code: CodeSyntax, Message: err.Error()}
}

// walker holds per-extraction state. One walker serves exactly one
// Extract call; nothing here is shared.
type walker struct {
	bound map[string]bool // names assigned by earlier statements

	operators    []string
	operatorPos  map[string]ir.Pos
	datafields   []string
	datafieldPos map[string]ir.Pos
	calls        []*ir.CallSite
	uses         []ir.NameUse

	callStack []int // indices into calls, innermost last
}

// recordOperator collapses duplicates, keeping first-appearance order.
func (w *walker) recordOperator(token string, pos ir.Pos) {
	if _, seen := w.operatorPos[token]; seen {
		return
	}
	w.operatorPos[token] = pos
	w.operators = append(w.operators, token)
}

func (w *walker) recordDatafield(name string, pos ir.Pos) {
	if _, seen := w.datafieldPos[name]; seen {
		return
	}
	w.datafieldPos[name] = pos
	w.datafields = append(w.datafields, name)
}

func (w *walker) enclosingCall() int {
	if len(w.callStack) == 0 {
		return -1
	}
	return w.callStack[len(w.callStack)-1]
}

func (w *walker) stmt(stmt syntax.Stmt) error {
	switch s := stmt.(type) {
	case *syntax.ExprStmt:
		_, err := w.expr(s.X)
		return err

	case *syntax.AssignStmt:
		target, ok := s.LHS.(*syntax.Ident)
		if !ok {
			return unsupported(posOf(s.LHS), "assignment target must be a simple name, got %s", nodeKind(s.LHS))
		}
		if sym, aug := augAssignOps[s.Op]; aug {
			// Augmented assignment reads the target before writing it:
			// the symbol is an operator and the target name is
			// classified against the bindings in effect so far.
			w.recordOperator(sym, ir.Pos{Line: s.OpPos.Line, Col: s.OpPos.Col})
			if _, err := w.expr(s.LHS); err != nil {
				return err
			}
		} else if s.Op != syntax.EQ {
			return unsupported(ir.Pos{Line: s.OpPos.Line, Col: s.OpPos.Col}, "unsupported assignment operator %s", s.Op)
		}
		// RHS first: a self-reference to a not-yet-bound name is a
		// datafield, not an error.
		if _, err := w.expr(s.RHS); err != nil {
			return err
		}
		w.bound[target.Name] = true
		return nil

	default:
		return unsupported(posOf(stmt), "unsupported statement: %s", nodeKind(stmt))
	}
}

func (w *walker) expr(e syntax.Expr) (ir.Expr, error) {
	switch n := e.(type) {
	case *syntax.ParenExpr:
		return w.expr(n.X)

	case *syntax.Ident:
		return w.ident(n)

	case *syntax.Literal:
		return w.literal(n)

	case *syntax.UnaryExpr:
		return w.unary(n)

	case *syntax.BinaryExpr:
		return w.binary(n)

	case *syntax.CallExpr:
		return w.call(n)

	default:
		return nil, unsupported(posOf(e), "unsupported construct: %s", nodeKind(e))
	}
}

// ident classifies a bare name in value position. True/False arrive
// from the parser as identifiers and are folded into bool literals;
// any other name is a datafield iff no earlier statement bound it.
func (w *walker) ident(n *syntax.Ident) (ir.Expr, error) {
	pos := ir.Pos{Line: n.NamePos.Line, Col: n.NamePos.Col}

	switch n.Name {
	case "True":
		return ir.Literal{Value: ir.LitBool(true), Pos: pos}, nil
	case "False":
		return ir.Literal{Value: ir.LitBool(false), Pos: pos}, nil
	case "None":
		return nil, unsupported(pos, "None is not part of the grammar")
	}

	if !w.bound[n.Name] {
		w.recordDatafield(n.Name, pos)
		w.uses = append(w.uses, ir.NameUse{
			Name:      n.Name,
			Pos:       pos,
			CallIndex: w.enclosingCall(),
		})
	}
	return ir.Name{Ident: n.Name, Pos: pos}, nil
}

func (w *walker) literal(n *syntax.Literal) (ir.Expr, error) {
	pos := ir.Pos{Line: n.TokenPos.Line, Col: n.TokenPos.Col}

	switch n.Token {
	case syntax.INT:
		v, ok := n.Value.(int64)
		if !ok {
			// *big.Int for out-of-range integers.
			return nil, unsupported(pos, "integer literal %s out of range", n.Raw)
		}
		return ir.Literal{Value: ir.LitInt(v), Pos: pos}, nil
	case syntax.FLOAT:
		return ir.Literal{Value: ir.LitFloat(n.Value.(float64)), Pos: pos}, nil
	case syntax.STRING:
		return ir.Literal{Value: ir.LitString(n.Value.(string)), Pos: pos}, nil
	default:
		return nil, unsupported(pos, "unsupported literal %s", n.Raw)
	}
}

func (w *walker) unary(n *syntax.UnaryExpr) (ir.Expr, error) {
	pos := ir.Pos{Line: n.OpPos.Line, Col: n.OpPos.Col}

	// Fold a sign applied directly to a numeric literal into the
	// literal, so -0.5 stays checkable as a keyword-argument value.
	if n.Op == syntax.MINUS || n.Op == syntax.PLUS {
		if lit, ok := numericOperand(n.X); ok {
			folded, err := w.literal(lit)
			if err != nil {
				return nil, err
			}
			if n.Op == syntax.MINUS {
				l := folded.(ir.Literal)
				switch v := l.Value.(type) {
				case ir.LitInt:
					l.Value = ir.LitInt(-v)
				case ir.LitFloat:
					l.Value = ir.LitFloat(-v)
				}
				l.Pos = pos
				return l, nil
			}
			return folded, nil
		}
	}

	sym, ok := unaryOps[n.Op]
	if !ok {
		return nil, unsupported(pos, "unsupported unary operator %s", n.Op)
	}
	w.recordOperator(sym, pos)
	x, err := w.expr(n.X)
	if err != nil {
		return nil, err
	}
	return ir.Unary{Op: sym, X: x, Pos: pos}, nil
}

// numericOperand unwraps parentheses and reports whether the operand
// is an int or float literal.
func numericOperand(e syntax.Expr) (*syntax.Literal, bool) {
	for {
		p, ok := e.(*syntax.ParenExpr)
		if !ok {
			break
		}
		e = p.X
	}
	lit, ok := e.(*syntax.Literal)
	if !ok {
		return nil, false
	}
	return lit, lit.Token == syntax.INT || lit.Token == syntax.FLOAT
}

func (w *walker) binary(n *syntax.BinaryExpr) (ir.Expr, error) {
	pos := ir.Pos{Line: n.OpPos.Line, Col: n.OpPos.Col}

	// Keyword arguments parse as `name = value` binary nodes but are
	// only legal directly inside a call's argument list, where the
	// call walker consumes them before recursing here.
	if n.Op == syntax.EQ {
		return nil, unsupported(pos, "assignment is not an expression")
	}

	sym, ok := binaryOps[n.Op]
	if !ok {
		return nil, unsupported(pos, "unsupported binary operator %s", n.Op)
	}

	// Infix: the left operand precedes the operator token in the
	// source, so walk X before recording to keep first-appearance
	// order. Prefix operators (unary, calls) record before their
	// operands.
	x, err := w.expr(n.X)
	if err != nil {
		return nil, err
	}
	w.recordOperator(sym, pos)
	y, err := w.expr(n.Y)
	if err != nil {
		return nil, err
	}
	return ir.Binary{Op: sym, X: x, Y: y, Pos: pos}, nil
}

func (w *walker) call(n *syntax.CallExpr) (ir.Expr, error) {
	callee, ok := n.Fn.(*syntax.Ident)
	if !ok {
		return nil, unsupported(posOf(n.Fn), "only simple function names may be called, got %s", nodeKind(n.Fn))
	}

	pos := ir.Pos{Line: callee.NamePos.Line, Col: callee.NamePos.Col}
	w.recordOperator(callee.Name, pos)

	site := &ir.CallSite{
		Operator: callee.Name,
		Index:    len(w.calls),
		Pos:      pos,
	}
	w.calls = append(w.calls, site)
	w.callStack = append(w.callStack, site.Index)
	defer func() { w.callStack = w.callStack[:len(w.callStack)-1] }()

	for _, arg := range n.Args {
		// Keyword argument: `name = value` at the top level of the
		// argument list. The keyword name itself is never a datafield.
		if kw, ok := arg.(*syntax.BinaryExpr); ok && kw.Op == syntax.EQ {
			name, ok := kw.X.(*syntax.Ident)
			if !ok {
				return nil, unsupported(posOf(kw.X), "keyword argument name must be an identifier")
			}
			value, err := w.expr(kw.Y)
			if err != nil {
				return nil, err
			}
			site.Kwargs = append(site.Kwargs, ir.Kwarg{
				Name:  name.Name,
				Value: value,
				Pos:   ir.Pos{Line: name.NamePos.Line, Col: name.NamePos.Col},
			})
			continue
		}

		// *args / **kwargs forwarding is outside the grammar.
		if u, ok := arg.(*syntax.UnaryExpr); ok && (u.Op == syntax.STAR || u.Op == syntax.STARSTAR) {
			return nil, unsupported(posOf(arg), "argument forwarding (%s) is not supported", u.Op)
		}

		value, err := w.expr(arg)
		if err != nil {
			return nil, err
		}
		site.Args = append(site.Args, value)
	}

	return ir.Call{Site: site}, nil
}

func posOf(n syntax.Node) ir.Pos {
	start, _ := n.Span()
	return ir.Pos{Line: start.Line, Col: start.Col}
}

// nodeKind names a host-parser node for error messages.
func nodeKind(n syntax.Node) string {
	switch n.(type) {
	case *syntax.DotExpr:
		return "attribute access"
	case *syntax.IndexExpr:
		return "subscript"
	case *syntax.SliceExpr:
		return "slice"
	case *syntax.ListExpr:
		return "list literal"
	case *syntax.DictExpr:
		return "dict literal"
	case *syntax.TupleExpr:
		return "tuple"
	case *syntax.CondExpr:
		return "conditional expression"
	case *syntax.Comprehension:
		return "comprehension"
	case *syntax.LambdaExpr:
		return "lambda"
	case *syntax.IfStmt:
		return "if statement"
	case *syntax.ForStmt:
		return "for loop"
	case *syntax.WhileStmt:
		return "while loop"
	case *syntax.DefStmt:
		return "function definition"
	case *syntax.LoadStmt:
		return "load statement"
	case *syntax.ReturnStmt:
		return "return statement"
	case *syntax.BranchStmt:
		return "branch statement"
	default:
		return fmt.Sprintf("%T", n)
	}
}
