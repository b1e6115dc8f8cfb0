package jsast

import (
	"reflect"
	"sort"

	"github.com/dop251/goja/ast"
)

// Replace swaps, in place, every child reference under root that is
// identical to a key of nodemap for the mapped node, then continues into the
// replacement. When root itself is a key its image is returned, otherwise
// root is. An empty nodemap leaves the tree untouched.
func Replace(root ast.Node, nodemap map[ast.Node]ast.Node) ast.Node {
	newRoot, _ := replace(root, nodemap)
	return newRoot
}

func replace(root ast.Node, nodemap map[ast.Node]ast.Node) (ast.Node, map[ast.Node]ast.Node) {
	r := &replacer{
		nodemap: nodemap,
		seen:    make(map[ast.Node]struct{}),
		applied: make(map[ast.Node]ast.Node),
	}
	if img, ok := nodemap[root]; ok && img != nil {
		r.applied[root] = img
		root = img
	}
	if len(nodemap) > 0 {
		r.value(reflect.ValueOf(root))
	}
	return root, r.applied
}

// Replace applies nodemap to the program and remembers the substitutions
// so Serialize emits the new nodes in place of the original text.
func (s *Source) Replace(nodemap map[ast.Node]ast.Node) {
	_, applied := replace(s.Program, nodemap)
	for old, img := range applied {
		if !s.Original(old) {
			continue
		}
		start, end := s.span(old)
		s.replaced = append(s.replaced, replacement{start: start, end: end, node: img})
	}
	sort.SliceStable(s.replaced, func(i, j int) bool {
		if s.replaced[i].start != s.replaced[j].start {
			return s.replaced[i].start < s.replaced[j].start
		}
		return s.replaced[i].end > s.replaced[j].end
	})
}

type replacer struct {
	nodemap map[ast.Node]ast.Node
	seen    map[ast.Node]struct{}
	applied map[ast.Node]ast.Node
}

func (r *replacer) value(v reflect.Value) {
	switch v.Kind() {
	case reflect.Interface:
		if !v.IsNil() {
			r.value(v.Elem())
		}
	case reflect.Ptr:
		if v.IsNil() || !isASTStruct(v.Type().Elem()) {
			return
		}
		if n, ok := v.Interface().(ast.Node); ok {
			if _, dup := r.seen[n]; dup {
				return
			}
			r.seen[n] = struct{}{}
		}
		r.fields(v.Elem())
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			r.value(v.Index(i))
		}
	case reflect.Struct:
		if !isASTStruct(v.Type()) {
			return
		}
		if v.CanAddr() {
			r.value(v.Addr())
			return
		}
		r.fields(v)
	}
}

func (r *replacer) fields(v reflect.Value) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		f := v.Field(i)
		switch f.Kind() {
		case reflect.Interface, reflect.Ptr:
			r.swap(f)
		case reflect.Slice:
			for j := 0; j < f.Len(); j++ {
				r.swap(f.Index(j))
			}
		}
		r.value(f)
	}
}

func (r *replacer) swap(f reflect.Value) {
	if (f.Kind() != reflect.Interface && f.Kind() != reflect.Ptr) || !f.CanSet() || f.IsNil() {
		return
	}
	n, ok := f.Interface().(ast.Node)
	if !ok {
		return
	}
	img, ok := r.nodemap[n]
	if !ok || img == nil {
		return
	}
	iv := reflect.ValueOf(img)
	if !iv.Type().AssignableTo(f.Type()) {
		return
	}
	f.Set(iv)
	r.applied[n] = img
}
