package webpackcfg

import (
	"fmt"
	"iter"

	"github.com/dop251/goja/ast"

	"github.com/calmjs/calmjs-webpack/internal/jsast"
)

// CodeSequence is an ordered list of JavaScript expressions, used for
// configuration values that cannot be expressed as JSON such as plugin
// instances.
type CodeSequence struct {
	items []ast.Expression
}

// NewCodeSequence returns a sequence holding items.
func NewCodeSequence(items ...ast.Expression) *CodeSequence {
	return &CodeSequence{items: append([]ast.Expression(nil), items...)}
}

// ParseCodeSequence parses every code string as one expression.
func ParseCodeSequence(codes ...string) (*CodeSequence, error) {
	s := &CodeSequence{}
	for _, code := range codes {
		if err := s.AppendCode(code); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *CodeSequence) Len() int {
	return len(s.items)
}

// index resolves negative positions from the end.
func (s *CodeSequence) index(i int) int {
	if i < 0 {
		i += len(s.items)
	}
	if i < 0 || i >= len(s.items) {
		panic(fmt.Sprintf("webpackcfg: code sequence index %d out of range [0:%d]", i, len(s.items)))
	}
	return i
}

func (s *CodeSequence) At(i int) ast.Expression {
	return s.items[s.index(i)]
}

func (s *CodeSequence) Set(i int, e ast.Expression) {
	s.items[s.index(i)] = e
}

// SetCode replaces the item at i with the parsed code.
func (s *CodeSequence) SetCode(i int, code string) error {
	e, err := jsast.ParseExpression(code)
	if err != nil {
		return err
	}
	s.Set(i, e)
	return nil
}

// Insert places e before position i. Inserting at Len appends.
func (s *CodeSequence) Insert(i int, e ast.Expression) {
	if i != len(s.items) {
		i = s.index(i)
	}
	s.items = append(s.items, nil)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = e
}

func (s *CodeSequence) InsertCode(i int, code string) error {
	e, err := jsast.ParseExpression(code)
	if err != nil {
		return err
	}
	s.Insert(i, e)
	return nil
}

func (s *CodeSequence) Append(items ...ast.Expression) {
	s.items = append(s.items, items...)
}

func (s *CodeSequence) AppendCode(code string) error {
	e, err := jsast.ParseExpression(code)
	if err != nil {
		return err
	}
	s.Append(e)
	return nil
}

func (s *CodeSequence) Delete(i int) {
	i = s.index(i)
	s.items = append(s.items[:i], s.items[i+1:]...)
}

func (s *CodeSequence) All() iter.Seq2[int, ast.Expression] {
	return func(yield func(int, ast.Expression) bool) {
		for i, e := range s.items {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Clone returns a sequence sharing the item nodes but not the list.
func (s *CodeSequence) Clone() *CodeSequence {
	return NewCodeSequence(s.items...)
}

// Export returns the sequence as an array literal.
func (s *CodeSequence) Export() ast.Expression {
	return &ast.ArrayLiteral{Value: append([]ast.Expression(nil), s.items...)}
}

// String renders the sequence as a one-line array literal.
func (s *CodeSequence) String() string {
	out, err := jsast.Serialize(s.Export())
	if err != nil {
		return fmt.Sprintf("<invalid code sequence: %v>", err)
	}
	return out
}

// toCodeSequence converts the accepted plugin value forms into a fresh
// sequence. Code strings that parse as an array literal contribute their
// items.
func toCodeSequence(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return NewCodeSequence(), nil
	case *CodeSequence:
		return v.Clone(), nil
	case []ast.Expression:
		return NewCodeSequence(v...), nil
	case *ast.ArrayLiteral:
		return NewCodeSequence(v.Value...), nil
	case ast.Expression:
		return NewCodeSequence(v), nil
	case string:
		e, err := jsast.ParseExpression(v)
		if err != nil {
			return nil, err
		}
		if arr, ok := e.(*ast.ArrayLiteral); ok {
			return NewCodeSequence(arr.Value...), nil
		}
		return NewCodeSequence(e), nil
	case []string:
		return ParseCodeSequence(v...)
	default:
		return nil, fmt.Errorf("cannot convert %T into a code sequence", value)
	}
}
