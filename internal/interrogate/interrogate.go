// Package interrogate extracts the exported module names from webpack
// artifacts produced with the calmjs bootstrap.
package interrogate

import (
	"errors"
	"fmt"
	"os"

	"github.com/dop251/goja/ast"
	"github.com/rs/zerolog/log"

	"github.com/calmjs/calmjs-webpack/internal/jsast"
	"github.com/calmjs/calmjs-webpack/internal/spec"
)

// ErrExtractionFailed is wrapped by every InterrogationError.
var ErrExtractionFailed = errors.New("extraction failed")

// InterrogationError reports an artifact whose structure is not the one
// produced by a calmjs webpack build.
type InterrogationError struct {
	Path   string
	Reason string
}

func (e *InterrogationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", ErrExtractionFailed, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrExtractionFailed, e.Path, e.Reason)
}

func (e *InterrogationError) Unwrap() error {
	return ErrExtractionFailed
}

// ProbeFile reads and interrogates the artifact at path.
func ProbeFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	src, err := jsast.Parse(path, string(data))
	if err != nil {
		return nil, &InterrogationError{Path: path, Reason: err.Error()}
	}
	names, err := ProbeModuleNames(src)
	var ierr *InterrogationError
	if errors.As(err, &ierr) && ierr.Path == "" {
		ierr.Path = path
	}
	return names, err
}

// ProbeModuleNames returns the names in the module table an artifact
// publishes under the global __calmjs__, in source order.
func ProbeModuleNames(src *jsast.Source) ([]string, error) {
	root := src.Program

	first, err := jsast.Extract(root, jsast.OfType[*ast.FunctionLiteral](), 0)
	if err != nil {
		return nil, fail("no function in artifact")
	}
	wrapper := first.(*ast.FunctionLiteral)
	factory := parameterName(wrapper, 1)
	if factory == "" {
		return nil, fail("module definition wrapper takes no factory")
	}
	log.Debug().Str("artifact", src.Name).Bool("minified", factory != "factory").Msg("interrogating webpack artifact")

	if _, err := jsast.Extract(root, exportsCalmjs(factory), 0); err != nil {
		return nil, fail("artifact does not export " + spec.DefaultExport)
	}

	found, err := jsast.Extract(root, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpression)
		return ok && call.Callee == ast.Expression(wrapper)
	}, 0)
	if err != nil {
		return nil, fail("module definition wrapper is never called")
	}
	umd := found.(*ast.CallExpression)
	if len(umd.ArgumentList) < 2 {
		return nil, fail("module definition wrapper called without factory")
	}
	factoryFn, ok := umd.ArgumentList[1].(*ast.FunctionLiteral)
	if !ok {
		return nil, fail("factory is not a function literal")
	}

	var entry ast.Expression
	for n := range jsast.Generate(factoryFn, jsast.OfType[*ast.ReturnStatement]()) {
		if ref, ok := entryReference(n.(*ast.ReturnStatement).Argument); ok {
			entry = ref
			break
		}
	}
	if entry == nil {
		return nil, fail("entry module reference not found")
	}

	found, err = jsast.Extract(factoryFn, isModuleBootstrap, 0)
	if err != nil {
		return nil, fail("module list not found")
	}
	modules := found.(*ast.CallExpression).ArgumentList[0]

	entryFn, err := lookupModule(modules, entry)
	if err != nil {
		return nil, err
	}
	found, err = jsast.Extract(entryFn, isMemberAssignment("modules"), 0)
	if err != nil {
		return nil, fail("entry module does not assign modules")
	}

	var table *ast.ObjectLiteral
	switch value := found.(*ast.AssignExpression).Right.(type) {
	case *ast.ObjectLiteral:
		table = value
	case *ast.CallExpression:
		ref, ok := requireReference(value)
		if !ok {
			return nil, fail("modules assigned from an unrecognized call")
		}
		loaderFn, err := lookupModule(modules, ref)
		if err != nil {
			return nil, err
		}
		found, err := jsast.Extract(loaderFn, isMemberAssignment("exports"), 0)
		if err != nil {
			return nil, fail("module table not found")
		}
		table, ok = found.(*ast.AssignExpression).Right.(*ast.ObjectLiteral)
		if !ok {
			return nil, fail("module table is not an object literal")
		}
	default:
		return nil, fail(fmt.Sprintf("modules assigned from %T", value))
	}

	return propertyNames(table)
}

func fail(reason string) error {
	return &InterrogationError{Reason: reason}
}

func parameterName(fn *ast.FunctionLiteral, i int) string {
	if fn.ParameterList == nil || len(fn.ParameterList.List) <= i {
		return ""
	}
	ident, ok := fn.ParameterList.List[i].Target.(*ast.Identifier)
	if !ok {
		return ""
	}
	return ident.Name.String()
}

func isIdentifier(e ast.Expression, name string) bool {
	ident, ok := e.(*ast.Identifier)
	return ok && ident.Name.String() == name
}

// exportsCalmjs matches `x["__calmjs__"] = factory(...)` and the dotted
// form, with or without the call.
func exportsCalmjs(factory string) func(ast.Node) bool {
	return func(n ast.Node) bool {
		assign, ok := n.(*ast.AssignExpression)
		if !ok || !isMember(assign.Left, spec.DefaultExport) {
			return false
		}
		if isIdentifier(assign.Right, factory) {
			return true
		}
		call, ok := assign.Right.(*ast.CallExpression)
		return ok && isIdentifier(call.Callee, factory)
	}
}

func isMember(e ast.Expression, name string) bool {
	switch e := e.(type) {
	case *ast.DotExpression:
		return e.Identifier.Name.String() == name
	case *ast.BracketExpression:
		lit, ok := e.Member.(*ast.StringLiteral)
		return ok && lit.Value.String() == name
	}
	return false
}

func isMemberAssignment(name string) func(ast.Node) bool {
	return func(n ast.Node) bool {
		assign, ok := n.(*ast.AssignExpression)
		return ok && isMember(assign.Left, name)
	}
}

// isModuleBootstrap matches the webpack runtime applied to its module list.
func isModuleBootstrap(n ast.Node) bool {
	call, ok := n.(*ast.CallExpression)
	if !ok || len(call.ArgumentList) == 0 {
		return false
	}
	if _, ok := call.Callee.(*ast.FunctionLiteral); !ok {
		return false
	}
	switch call.ArgumentList[0].(type) {
	case *ast.ArrayLiteral, *ast.ObjectLiteral:
		return true
	}
	return false
}

// entryReference accepts `require(id)`, `require(require.s = id)` and, in
// minified output, either as the last operand of a comma expression.
func entryReference(e ast.Expression) (ast.Expression, bool) {
	if seq, ok := e.(*ast.SequenceExpression); ok && len(seq.Sequence) > 0 {
		e = seq.Sequence[len(seq.Sequence)-1]
	}
	call, ok := e.(*ast.CallExpression)
	if !ok || len(call.ArgumentList) != 1 {
		return nil, false
	}
	if _, ok := call.Callee.(*ast.Identifier); !ok {
		return nil, false
	}
	arg := call.ArgumentList[0]
	if assign, ok := arg.(*ast.AssignExpression); ok {
		arg = assign.Right
	}
	return moduleID(arg)
}

func requireReference(call *ast.CallExpression) (ast.Expression, bool) {
	if _, ok := call.Callee.(*ast.Identifier); !ok || len(call.ArgumentList) != 1 {
		return nil, false
	}
	return moduleID(call.ArgumentList[0])
}

func moduleID(e ast.Expression) (ast.Expression, bool) {
	switch e.(type) {
	case *ast.NumberLiteral, *ast.StringLiteral:
		return e, true
	}
	return nil, false
}

// lookupModule finds the module function for ref in an array of modules
// or an object keyed by module id.
func lookupModule(modules ast.Expression, ref ast.Expression) (*ast.FunctionLiteral, error) {
	var module ast.Expression
	switch container := modules.(type) {
	case *ast.ArrayLiteral:
		num, ok := ref.(*ast.NumberLiteral)
		if !ok {
			return nil, fail("module list is an array but the module id is not a number")
		}
		idx, ok := arrayIndex(num)
		if !ok || idx >= len(container.Value) {
			return nil, fail(fmt.Sprintf("module %s out of range", num.Literal))
		}
		module = container.Value[idx]
	case *ast.ObjectLiteral:
		want, err := keyName(ref)
		if err != nil {
			return nil, err
		}
		for _, p := range container.Value {
			prop, ok := p.(*ast.PropertyKeyed)
			if !ok {
				continue
			}
			if name, err := keyName(prop.Key); err == nil && name == want {
				module = prop.Value
				break
			}
		}
		if module == nil {
			return nil, fail(fmt.Sprintf("module %q not found", want))
		}
	}

	fn, ok := module.(*ast.FunctionLiteral)
	if !ok {
		return nil, fail(fmt.Sprintf("module is %T, not a function", module))
	}
	return fn, nil
}

func arrayIndex(num *ast.NumberLiteral) (int, bool) {
	switch v := num.Value.(type) {
	case int64:
		return int(v), v >= 0
	case float64:
		return int(v), v >= 0 && v == float64(int(v))
	}
	return 0, false
}

func keyName(key ast.Expression) (string, error) {
	switch k := key.(type) {
	case *ast.StringLiteral:
		if k.Literal != "" && (k.Literal[0] == '"' || k.Literal[0] == '\'') {
			name, err := jsast.UnquoteString(k.Literal)
			if err != nil {
				return "", fail(err.Error())
			}
			return name, nil
		}
		return k.Value.String(), nil
	case *ast.NumberLiteral:
		return k.Literal, nil
	case *ast.Identifier:
		return k.Name.String(), nil
	}
	return "", fail(fmt.Sprintf("unsupported key %T", key))
}

func propertyNames(obj *ast.ObjectLiteral) ([]string, error) {
	names := make([]string, 0, len(obj.Value))
	for _, p := range obj.Value {
		prop, ok := p.(*ast.PropertyKeyed)
		if !ok || prop.Computed {
			return nil, fail(fmt.Sprintf("unsupported module table entry %T", p))
		}
		name, err := keyName(prop.Key)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
