package toolchain

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/unistring"

	"github.com/calmjs/calmjs-webpack/internal/jsast"
	"github.com/calmjs/calmjs-webpack/internal/spec"
)

// RequireCall locates a require call in its source.
type RequireCall struct {
	Line   int
	Column int
}

// RewriteDynamicRequires replaces every require(E) whose argument is not a
// string literal or an array of string literals with
// require('__calmjs__').require(E), so the name resolves at runtime through
// the module table. It returns the rewritten text and the calls it found.
func RewriteDynamicRequires(name, text string) (string, []RequireCall, error) {
	src, err := jsast.Parse(name, text)
	if err != nil {
		return "", nil, err
	}

	nodemap := map[ast.Node]ast.Node{}
	var calls []RequireCall
	for n := range jsast.Generate(src.Program, isDynamicRequire) {
		call := n.(*ast.CallExpression)
		line, col := src.Position(call.Idx0())
		calls = append(calls, RequireCall{Line: line, Column: col})
		nodemap[call] = calmjsRequire(call)
	}
	if len(nodemap) == 0 {
		return text, nil, nil
	}

	src.Replace(nodemap)
	out, err := src.Serialize()
	if err != nil {
		return "", nil, err
	}
	return out, calls, nil
}

func calmjsRequire(call *ast.CallExpression) *ast.CallExpression {
	return &ast.CallExpression{
		Callee: &ast.DotExpression{
			Left: &ast.CallExpression{
				Callee: &ast.Identifier{Name: "require"},
				ArgumentList: []ast.Expression{
					&ast.StringLiteral{
						Literal: "'" + spec.DefaultExport + "'",
						Value:   unistring.NewFromString(spec.DefaultExport),
					},
				},
			},
			Identifier: ast.Identifier{Name: "require"},
		},
		ArgumentList: call.ArgumentList,
	}
}

func isRequire(n ast.Node) (*ast.CallExpression, bool) {
	call, ok := n.(*ast.CallExpression)
	if !ok || len(call.ArgumentList) == 0 {
		return nil, false
	}
	ident, ok := call.Callee.(*ast.Identifier)
	if !ok || ident.Name.String() != "require" {
		return nil, false
	}
	return call, true
}

func isDynamicRequire(n ast.Node) bool {
	call, ok := isRequire(n)
	return ok && staticNames(call.ArgumentList[0]) == nil
}

// staticNames returns the module names of a string or string array
// require argument, or nil for anything else.
func staticNames(arg ast.Expression) []string {
	switch arg := arg.(type) {
	case *ast.StringLiteral:
		return []string{arg.Value.String()}
	case *ast.ArrayLiteral:
		names := []string{}
		for _, e := range arg.Value {
			lit, ok := e.(*ast.StringLiteral)
			if !ok {
				return nil
			}
			names = append(names, lit.Value.String())
		}
		return names
	}
	return nil
}
