package jsast

import (
	"testing"

	"github.com/dop251/goja/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isRequireCall(n ast.Node) bool {
	call, ok := n.(*ast.CallExpression)
	if !ok {
		return false
	}
	ident, ok := call.Callee.(*ast.Identifier)
	return ok && ident.Name.String() == "require"
}

func TestSerializeIdentity(t *testing.T) {
	text := "var a = require('a'); // keep me\nfunction f(x) {\n  return x  +  1;\n}\n"
	src, err := Parse("test.js", text)
	require.NoError(t, err)

	src.Replace(map[ast.Node]ast.Node{})
	out, err := src.Serialize()
	require.NoError(t, err)
	assert.Equal(t, text, out)
}

func TestGenerateOrder(t *testing.T) {
	src, err := Parse("test.js", "require('a'); if (x) { require('b'); } require('c');")
	require.NoError(t, err)

	var names []string
	for n := range Generate(src.Program, isRequireCall) {
		lit := n.(*ast.CallExpression).ArgumentList[0].(*ast.StringLiteral)
		names = append(names, lit.Value.String())
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestGenerateStopsEarly(t *testing.T) {
	src, err := Parse("test.js", "require('a'); require('b'); require('c');")
	require.NoError(t, err)

	count := 0
	for range Generate(src.Program, isRequireCall) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestExtract(t *testing.T) {
	src, err := Parse("test.js", "require('a'); require('b');")
	require.NoError(t, err)

	n, err := Extract(src.Program, isRequireCall, 1)
	require.NoError(t, err)
	lit := n.(*ast.CallExpression).ArgumentList[0].(*ast.StringLiteral)
	assert.Equal(t, "b", lit.Value.String())

	_, err = Extract(src.Program, isRequireCall, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceSplicesNodes(t *testing.T) {
	text := "var x = {};\nmodule.exports = x;\n"
	src, err := Parse("test.js", text)
	require.NoError(t, err)

	placeholder, err := Extract(src.Program, OfType[*ast.ObjectLiteral](), 0)
	require.NoError(t, err)

	image, err := ParseExpression(`{"a": [1, 2], "b": {}}`)
	require.NoError(t, err)

	src.Replace(map[ast.Node]ast.Node{placeholder: image})
	out, err := src.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "var x = {\n    \"a\": [\n        1,\n        2\n    ],\n    \"b\": {}\n};\nmodule.exports = x;\n", out)

	// the replacement is visible to later walks
	found, err := Extract(src.Program, OfType[*ast.ArrayLiteral](), 0)
	require.NoError(t, err)
	assert.Len(t, found.(*ast.ArrayLiteral).Value, 2)
}

func TestReplaceNested(t *testing.T) {
	src, err := Parse("test.js", "f(g(x));")
	require.NoError(t, err)

	nodemap := map[ast.Node]ast.Node{}
	for n := range Generate(src.Program, OfType[*ast.CallExpression]()) {
		call := n.(*ast.CallExpression)
		nodemap[call] = &ast.CallExpression{
			Callee: &ast.DotExpression{
				Left:       call.Callee,
				Identifier: ast.Identifier{Name: "call"},
			},
			ArgumentList: call.ArgumentList,
		}
	}
	src.Replace(nodemap)

	out, err := src.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "f.call(g.call(x));", out)
}

func TestSerializeStructural(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		pretty bool
		want   string
	}{
		{name: "new expression", input: "new webpack.optimize.UglifyJsPlugin({})", want: "new webpack.optimize.UglifyJsPlugin({})"},
		{name: "binary precedence", input: "(a + b) * c", want: "(a + b) * c"},
		{name: "right associativity", input: "a - (b - c)", want: "a - (b - c)"},
		{name: "unary", input: "typeof x === 'undefined'", want: "typeof x === 'undefined'"},
		{name: "conditional", input: "a ? b : c", want: "a ? b : c"},
		{name: "regexp", input: `{"test": /\.css$/}`, want: `{"test": /\.css$/}`},
		{name: "compound assign", input: "a += 1", want: "a += 1"},
		{name: "member of call", input: "require('__calmjs__').require(x)", want: "require('__calmjs__').require(x)"},
		{name: "index of call", input: "a()[0].b", want: "a()[0].b"},
		{name: "member of new", input: "(new Foo()).bar", want: "(new Foo()).bar"},
		{name: "member of function", input: "(function() { return 1; }).call(this)", want: "(function() { return 1; }).call(this)"},
		{name: "member chain", input: "a.b.c(d)", want: "a.b.c(d)"},
		{name: "function argument", input: "f(function(x) { return x; })", want: "f(function(x) { return x; })"},
		{name: "array one line", input: "[1, [2, 3]]", want: "[1, [2, 3]]"},
		{name: "array pretty", input: "[1, [2]]", pretty: true, want: "[\n    1,\n    [\n        2\n    ]\n]"},
		{name: "empty containers", input: "[[], {}]", pretty: true, want: "[\n    [],\n    {}\n]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseExpression(tt.input)
			require.NoError(t, err)

			var out string
			if tt.pretty {
				out, err = Pretty(expr)
			} else {
				out, err = Serialize(expr)
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSerializeSynthesizedString(t *testing.T) {
	lit := &ast.StringLiteral{Value: "say \"hi\"\n"}
	out, err := Serialize(lit)
	require.NoError(t, err)
	assert.Equal(t, `"say \"hi\"\n"`, out)
}

func TestPosition(t *testing.T) {
	src, err := Parse("test.js", "var a;\nvar b = require(c);\n")
	require.NoError(t, err)

	n, err := Extract(src.Program, isRequireCall, 0)
	require.NoError(t, err)
	line, col := src.Position(n.Idx0())
	assert.Equal(t, 2, line)
	assert.Equal(t, 9, col)
}
