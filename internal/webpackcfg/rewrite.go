package webpackcfg

import (
	"fmt"

	"github.com/dop251/goja/ast"
	"github.com/rs/zerolog/log"

	"github.com/calmjs/calmjs-webpack/internal/jsast"
)

// deferred runs against the whole object once every property was visited.
type deferred func(obj *ast.ObjectLiteral)

// rule returns the property to keep, or nil to drop it.
type rule func(prop *ast.PropertyKeyed, target Version) (ast.Property, deferred)

var rules = map[string]rule{
	"mode":         rewriteMode,
	"module":       rewriteModule,
	"optimization": rewriteOptimization,
}

// Rewrite adjusts top-level properties of obj for the target webpack
// version and returns obj.
func Rewrite(obj *ast.ObjectLiteral, target Version) *ast.ObjectLiteral {
	kept := obj.Value[:0:0]
	var pending []deferred
	for _, p := range obj.Value {
		prop, ok := p.(*ast.PropertyKeyed)
		if !ok || prop.Computed {
			kept = append(kept, p)
			continue
		}
		fn, ok := rules[PropertyName(prop)]
		if !ok {
			kept = append(kept, p)
			continue
		}
		np, post := fn(prop, target)
		if np != nil {
			kept = append(kept, np)
		}
		if post != nil {
			pending = append(pending, post)
		}
	}
	obj.Value = kept
	for _, post := range pending {
		post(obj)
	}
	return obj
}

// PropertyName returns the decoded key of a non-computed property.
func PropertyName(prop *ast.PropertyKeyed) string {
	switch k := prop.Key.(type) {
	case *ast.StringLiteral:
		return k.Value.String()
	case *ast.Identifier:
		return k.Name.String()
	case *ast.NumberLiteral:
		return k.Literal
	}
	return ""
}

func isString(e ast.Expression, value string) bool {
	lit, ok := e.(*ast.StringLiteral)
	return ok && lit.Value.String() == value
}

func rewriteMode(prop *ast.PropertyKeyed, target Version) (ast.Property, deferred) {
	if !target.Before(v4) {
		return prop, nil
	}
	if isString(prop.Value, "none") {
		log.Info().Str("property", "mode").Msgf("'mode' default value removed for webpack %s", target)
	} else {
		log.Warn().Str("property", "mode").Msgf("'mode' non-default value removed as it is unsupported by webpack %s", target)
	}
	return nil, nil
}

// jsonRules keeps webpack 4 from applying its builtin JSON handling to
// modules that a loader already turned into JavaScript.
const jsonRules = `[{"test": /\.(json|html)/, "type": "javascript/auto", "use": []}]`

func rewriteModule(prop *ast.PropertyKeyed, target Version) (ast.Property, deferred) {
	if target.Before(v4) {
		return prop, nil
	}
	obj, ok := prop.Value.(*ast.ObjectLiteral)
	if !ok {
		log.Warn().Str("property", "module").Msg("'module' is not an object; rules left unchanged")
		return prop, nil
	}
	if err := injectCode(obj, "rules", jsonRules); err != nil {
		log.Warn().Err(err).Str("property", "module").Msg("failed to add webpack 4 json rule")
	}
	return prop, nil
}

const uglifyPlugin = `new webpack.optimize.UglifyJsPlugin({})`

func rewriteOptimization(prop *ast.PropertyKeyed, target Version) (ast.Property, deferred) {
	if !target.Before(v4) {
		return prop, nil
	}
	if !minimizeOnly(prop.Value) {
		log.Info().Str("property", "optimization").Msgf("'optimization' removed as it is unsupported by webpack %s", target)
		return nil, nil
	}
	log.Info().Str("property", "optimization").Msgf("'optimization.minimize' replaced with UglifyJsPlugin for webpack %s", target)
	return nil, func(obj *ast.ObjectLiteral) {
		if err := injectCode(obj, "plugins", "["+uglifyPlugin+"]"); err != nil {
			log.Warn().Err(err).Str("property", "plugins").Msg("failed to add UglifyJsPlugin")
		}
	}
}

// minimizeOnly reports whether e is exactly {"minimize": true}.
func minimizeOnly(e ast.Expression) bool {
	obj, ok := e.(*ast.ObjectLiteral)
	if !ok || len(obj.Value) != 1 {
		return false
	}
	prop, ok := obj.Value[0].(*ast.PropertyKeyed)
	if !ok || PropertyName(prop) != "minimize" {
		return false
	}
	b, ok := prop.Value.(*ast.BooleanLiteral)
	return ok && b.Value
}

func injectCode(obj *ast.ObjectLiteral, key, code string) error {
	e, err := jsast.ParseExpression(code)
	if err != nil {
		return err
	}
	arr, ok := e.(*ast.ArrayLiteral)
	if !ok {
		return fmt.Errorf("expected array literal, got %T", e)
	}
	return InjectArrayItems(obj, key, arr)
}

// InjectArrayItems appends the items of arr to the array held by the key
// property of obj, creating the property when it is missing.
func InjectArrayItems(obj *ast.ObjectLiteral, key string, arr *ast.ArrayLiteral) error {
	for _, p := range obj.Value {
		prop, ok := p.(*ast.PropertyKeyed)
		if !ok || prop.Computed || PropertyName(prop) != key {
			continue
		}
		existing, ok := prop.Value.(*ast.ArrayLiteral)
		if !ok {
			return fmt.Errorf("property %q is %T, not an array", key, prop.Value)
		}
		existing.Value = append(existing.Value, arr.Value...)
		return nil
	}
	obj.Value = append(obj.Value, keyed(key, &ast.ArrayLiteral{Value: append([]ast.Expression(nil), arr.Value...)}))
	return nil
}
