// Package jsast wraps the goja ECMAScript parser with the tree utilities
// the webpack toolchain needs: conditional walking, identity-keyed node
// replacement and serialization back to source text.
package jsast

import (
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/parser"
)

// fileBase is the index goja assigns to the first byte of a source parsed
// without a file set.
const fileBase = 1

// Source is a parsed program together with the text it was parsed from.
//
// Nodes that came out of the parse are serialized by copying their original
// text, so formatting and comments survive a round trip. Changes made through
// Replace are tracked and spliced in at serialization time; other in-place
// edits of original nodes are not reflected in the output.
type Source struct {
	Name    string
	Text    string
	Program *ast.Program

	origin   map[ast.Node]struct{}
	replaced []replacement
}

type replacement struct {
	start, end int
	node       ast.Node
}

// Parse parses text as a complete program.
func Parse(name, text string) (*Source, error) {
	prg, err := parser.ParseFile(nil, name, text, 0, parser.WithDisableSourceMaps)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	src := &Source{
		Name:    name,
		Text:    text,
		Program: prg,
		origin:  make(map[ast.Node]struct{}),
	}
	Walk(prg, func(n ast.Node) bool {
		src.origin[n] = struct{}{}
		return true
	})
	return src, nil
}

// ParseExpression parses text as a single expression. The returned nodes
// carry no source text and are serialized structurally.
func ParseExpression(text string) (ast.Expression, error) {
	prg, err := parser.ParseFile(nil, "", "("+text+"\n)", 0, parser.WithDisableSourceMaps)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expression %q: %w", text, err)
	}
	if len(prg.Body) != 1 {
		return nil, fmt.Errorf("expected a single expression, got %d statements", len(prg.Body))
	}
	stmt, ok := prg.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return nil, fmt.Errorf("expected an expression, got %T", prg.Body[0])
	}
	return stmt.Expression, nil
}

// Position converts a node index into a 1-based line and column within the
// source text.
func (s *Source) Position(idx file.Idx) (line, column int) {
	offset := int(idx) - fileBase
	if offset < 0 {
		return 0, 0
	}
	if offset > len(s.Text) {
		offset = len(s.Text)
	}
	before := s.Text[:offset]
	line = strings.Count(before, "\n") + 1
	column = offset - strings.LastIndex(before, "\n")
	return line, column
}

// Original reports whether n was produced by parsing this source.
func (s *Source) Original(n ast.Node) bool {
	_, ok := s.origin[n]
	return ok
}

func (s *Source) span(n ast.Node) (int, int) {
	return int(n.Idx0()) - fileBase, int(n.Idx1()) - fileBase
}
