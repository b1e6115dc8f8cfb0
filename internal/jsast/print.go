package jsast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"
)

// DefaultIndent is the indentation used by Pretty.
const DefaultIndent = "    "

// Serialize renders n on a single line.
func Serialize(n ast.Node) (string, error) {
	p := &printer{}
	p.node(n)
	return p.result()
}

// Pretty renders n with one array item or object property per line.
func Pretty(n ast.Node) (string, error) {
	p := &printer{indent: DefaultIndent}
	p.node(n)
	return p.result()
}

// Serialize renders the program, copying original text verbatim except where
// Replace substituted a node.
func (s *Source) Serialize() (string, error) {
	p := &printer{src: s, indent: DefaultIndent}
	p.copySpan(0, len(s.Text))
	return p.result()
}

type printer struct {
	src    *Source
	indent string
	depth  int
	buf    strings.Builder
	err    error
}

func (p *printer) result() (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.buf.String(), nil
}

func (p *printer) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *printer) write(s string) {
	p.buf.WriteString(s)
}

// copySpan writes src.Text[start:end], splicing in any replaced nodes that
// fall inside the range.
func (p *printer) copySpan(start, end int) {
	cursor := start
	for _, r := range p.src.replaced {
		if r.start < cursor || r.end > end {
			continue
		}
		p.write(p.src.Text[cursor:r.start])
		p.node(r.node)
		cursor = r.end
	}
	p.write(p.src.Text[cursor:end])
}

func (p *printer) newline() {
	if p.indent == "" {
		return
	}
	p.write("\n")
	p.write(strings.Repeat(p.indent, p.depth))
}

func (p *printer) separator() {
	if p.indent == "" {
		p.write(", ")
		return
	}
	p.write(",")
}

func (p *printer) node(n ast.Node) {
	if n == nil {
		p.fail(fmt.Errorf("cannot serialize a nil node"))
		return
	}
	if p.src != nil && p.src.Original(n) {
		start, end := p.src.span(n)
		p.copySpan(start, end)
		return
	}

	switch n := n.(type) {
	case *ast.StringLiteral:
		if n.Literal != "" && (n.Literal[0] == '"' || n.Literal[0] == '\'') {
			p.write(n.Literal)
		} else {
			p.write(QuoteString(n.Value.String()))
		}
	case *ast.NumberLiteral:
		p.number(n)
	case *ast.BooleanLiteral:
		p.write(strconv.FormatBool(n.Value))
	case *ast.NullLiteral:
		p.write("null")
	case *ast.RegExpLiteral:
		if n.Literal != "" {
			p.write(n.Literal)
		} else {
			p.write("/" + n.Pattern + "/" + n.Flags)
		}
	case *ast.Identifier:
		p.write(n.Name.String())
	case *ast.ThisExpression:
		p.write("this")
	case *ast.ArrayLiteral:
		p.array(n)
	case *ast.ObjectLiteral:
		p.object(n)
	case *ast.DotExpression:
		p.operand(n.Left, precCall, false)
		p.write(".")
		p.write(n.Identifier.Name.String())
	case *ast.BracketExpression:
		p.operand(n.Left, precCall, false)
		p.write("[")
		p.operand(n.Member, precLowest, false)
		p.write("]")
	case *ast.CallExpression:
		p.operand(n.Callee, precCall, false)
		p.arguments(n.ArgumentList)
	case *ast.NewExpression:
		p.write("new ")
		p.operand(n.Callee, precMember, false)
		p.arguments(n.ArgumentList)
	case *ast.UnaryExpression:
		p.unary(n)
	case *ast.BinaryExpression:
		prec := binaryPrecedence(n.Operator)
		p.operand(n.Left, prec, false)
		p.write(" " + n.Operator.String() + " ")
		p.operand(n.Right, prec, true)
	case *ast.AssignExpression:
		p.operand(n.Left, precCall, false)
		if n.Operator == token.ASSIGN {
			p.write(" = ")
		} else {
			p.write(" " + n.Operator.String() + "= ")
		}
		p.operand(n.Right, precAssign, false)
	case *ast.ConditionalExpression:
		p.operand(n.Test, precConditional, true)
		p.write(" ? ")
		p.operand(n.Consequent, precAssign, false)
		p.write(" : ")
		p.operand(n.Alternate, precAssign, false)
	case *ast.SequenceExpression:
		for i, e := range n.Sequence {
			if i > 0 {
				p.write(", ")
			}
			p.operand(e, precAssign, false)
		}
	case *ast.SpreadElement:
		p.write("...")
		p.operand(n.Expression, precAssign, false)
	case *ast.FunctionLiteral:
		if n.Source == "" {
			p.fail(fmt.Errorf("cannot serialize a function literal without source"))
			return
		}
		p.write(n.Source)
	case *ast.ExpressionStatement:
		p.node(n.Expression)
		p.write(";")
	case *ast.ReturnStatement:
		p.write("return")
		if n.Argument != nil {
			p.write(" ")
			p.node(n.Argument)
		}
		p.write(";")
	default:
		p.fail(fmt.Errorf("cannot serialize node of type %T", n))
	}
}

func (p *printer) number(n *ast.NumberLiteral) {
	if n.Literal != "" {
		p.write(n.Literal)
		return
	}
	switch v := n.Value.(type) {
	case int64:
		p.write(strconv.FormatInt(v, 10))
	case float64:
		p.write(strconv.FormatFloat(v, 'g', -1, 64))
	default:
		p.write(fmt.Sprint(v))
	}
}

func (p *printer) unary(n *ast.UnaryExpression) {
	op := n.Operator.String()
	if n.Postfix {
		p.operand(n.Operand, precPostfix, false)
		p.write(op)
		return
	}
	p.write(op)
	switch n.Operator {
	case token.TYPEOF, token.VOID, token.DELETE:
		p.write(" ")
	case token.PLUS, token.MINUS:
		// keep "- -x" from turning into a decrement
		if inner, ok := n.Operand.(*ast.UnaryExpression); ok && !inner.Postfix {
			p.write(" ")
		}
	}
	p.operand(n.Operand, precPrefix, false)
}

func (p *printer) arguments(args []ast.Expression) {
	p.write("(")
	for i, a := range args {
		if i > 0 {
			p.write(", ")
		}
		p.operand(a, precAssign, false)
	}
	p.write(")")
}

func (p *printer) array(n *ast.ArrayLiteral) {
	if len(n.Value) == 0 {
		p.write("[]")
		return
	}
	p.write("[")
	p.depth++
	for i, e := range n.Value {
		if i > 0 {
			p.separator()
		}
		p.newline()
		if e != nil {
			p.operand(e, precAssign, false)
		}
	}
	p.depth--
	p.newline()
	p.write("]")
}

func (p *printer) object(n *ast.ObjectLiteral) {
	if len(n.Value) == 0 {
		p.write("{}")
		return
	}
	p.write("{")
	p.depth++
	for i, prop := range n.Value {
		if i > 0 {
			p.separator()
		}
		p.newline()
		p.property(prop)
	}
	p.depth--
	p.newline()
	p.write("}")
}

func (p *printer) property(prop ast.Property) {
	switch prop := prop.(type) {
	case *ast.PropertyKeyed:
		if prop.Kind != ast.PropertyKindValue && prop.Kind != "" {
			p.fail(fmt.Errorf("cannot serialize %s property", prop.Kind))
			return
		}
		if prop.Computed {
			p.write("[")
			p.operand(prop.Key, precAssign, false)
			p.write("]")
		} else {
			p.node(prop.Key)
		}
		p.write(": ")
		p.operand(prop.Value, precAssign, false)
	case *ast.PropertyShort:
		if prop.Initializer != nil {
			p.fail(fmt.Errorf("cannot serialize shorthand property with initializer"))
			return
		}
		p.write(prop.Name.Name.String())
	case *ast.SpreadElement:
		p.node(prop)
	default:
		p.fail(fmt.Errorf("cannot serialize property of type %T", prop))
	}
}

// operand writes e, wrapping it in parentheses when its precedence is below
// the context. Right operands of left-associative operators also need
// parentheses at equal precedence.
func (p *printer) operand(e ast.Expression, context int, right bool) {
	prec := precedence(e)
	if prec < context || (right && prec == context) {
		p.write("(")
		p.node(e)
		p.write(")")
		return
	}
	p.node(e)
}
