package jsast

import (
	"errors"
	"iter"
	"reflect"

	"github.com/dop251/goja/ast"
)

// ErrNotFound is returned by Extract when fewer nodes than requested match.
var ErrNotFound = errors.New("no matching node")

var astPkgPath = reflect.TypeOf(ast.Identifier{}).PkgPath()

// Walk traverses the tree rooted at root in depth-first pre-order, calling fn
// for every node. Children of a node are skipped when fn returns false. A
// node reachable through more than one parent is visited once.
func Walk(root ast.Node, fn func(ast.Node) bool) {
	if root == nil {
		return
	}
	w := &walker{fn: fn, seen: make(map[ast.Node]struct{})}
	w.value(reflect.ValueOf(root))
}

type walker struct {
	fn   func(ast.Node) bool
	seen map[ast.Node]struct{}
}

func (w *walker) value(v reflect.Value) {
	switch v.Kind() {
	case reflect.Interface:
		if !v.IsNil() {
			w.value(v.Elem())
		}
	case reflect.Ptr:
		if v.IsNil() || !isASTStruct(v.Type().Elem()) {
			return
		}
		if n, ok := v.Interface().(ast.Node); ok {
			if _, dup := w.seen[n]; dup {
				return
			}
			w.seen[n] = struct{}{}
			if !w.fn(n) {
				return
			}
		}
		w.fields(v.Elem())
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			w.value(v.Index(i))
		}
	case reflect.Struct:
		if !isASTStruct(v.Type()) {
			return
		}
		if v.CanAddr() {
			w.value(v.Addr())
			return
		}
		w.fields(v)
	}
}

func (w *walker) fields(v reflect.Value) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).IsExported() {
			w.value(v.Field(i))
		}
	}
}

func isASTStruct(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.PkgPath() == astPkgPath
}

// Generate yields, in pre-order, every node under root accepted by pred.
func Generate(root ast.Node, pred func(ast.Node) bool) iter.Seq[ast.Node] {
	return func(yield func(ast.Node) bool) {
		stopped := false
		Walk(root, func(n ast.Node) bool {
			if stopped {
				return false
			}
			if pred(n) && !yield(n) {
				stopped = true
				return false
			}
			return true
		})
	}
}

// Extract returns the match at position skip (zero-based) of Generate.
func Extract(root ast.Node, pred func(ast.Node) bool, skip int) (ast.Node, error) {
	i := 0
	for n := range Generate(root, pred) {
		if i == skip {
			return n, nil
		}
		i++
	}
	return nil, ErrNotFound
}

// OfType returns a predicate matching nodes of the dynamic type T.
func OfType[T ast.Node]() func(ast.Node) bool {
	return func(n ast.Node) bool {
		_, ok := n.(T)
		return ok
	}
}
