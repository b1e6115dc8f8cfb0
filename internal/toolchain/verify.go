package toolchain

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/calmjs/calmjs-webpack/internal/jsast"
	"github.com/calmjs/calmjs-webpack/internal/spec"
)

// VerifySyntax reports an error when code is not valid ECMAScript 5.
func VerifySyntax(name, code string) error {
	result := api.Transform(code, api.TransformOptions{
		Loader:     api.LoaderJS,
		Target:     api.ES5,
		Sourcefile: name,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		if e.Location != nil {
			msgs = append(msgs, fmt.Sprintf("%d:%d: %s", e.Location.Line, e.Location.Column, e.Text))
		} else {
			msgs = append(msgs, e.Text)
		}
	}
	return fmt.Errorf("generated %s is not valid ES5: %s", filepath.Base(name), strings.Join(msgs, "; "))
}

// amdSpecials are names resolved by the module system itself.
var amdSpecials = map[string]bool{"require": true, "exports": true, "module": true}

// verifyImports warns about static imports in staged modules that webpack
// will be unable to resolve.
func (t *Toolchain) verifyImports(sp *spec.Spec, alias map[string]string) {
	nodePaths := t.NodeModulesPaths(sp)
	for _, modname := range sortedKeys(sp.TranspiledTargets) {
		if strings.HasPrefix(modname, "./") {
			continue
		}
		if _, resource := sp.ModnameLoaderMap[stripLoaders(modname)]; resource || strings.Contains(modname, "!") {
			continue
		}
		path := filepath.Join(sp.BuildDir, filepath.FromSlash(sp.TranspiledTargets[modname]))
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		src, err := jsast.Parse(path, string(data))
		if err != nil {
			log.Warn().Err(err).Str("modname", modname).Msg("unable to verify imports")
			continue
		}
		for _, name := range missingImports(src, sp, alias, nodePaths) {
			log.Warn().Str("modname", modname).Str("import", name).Msg("import not provided by this build, its externals or node_modules")
		}
	}
}

func missingImports(src *jsast.Source, sp *spec.Spec, alias map[string]string, nodePaths []string) []string {
	seen := map[string]bool{}
	var missing []string
	for n := range jsast.Generate(src.Program, func(n ast.Node) bool {
		_, ok := isRequire(n)
		return ok
	}) {
		call := n.(*ast.CallExpression)
		for _, name := range staticNames(call.ArgumentList[0]) {
			if seen[name] {
				continue
			}
			seen[name] = true
			if !resolvable(name, sp, alias, nodePaths) {
				missing = append(missing, name)
			}
		}
	}
	sort.Strings(missing)
	return missing
}

func resolvable(name string, sp *spec.Spec, alias map[string]string, nodePaths []string) bool {
	if amdSpecials[name] || strings.HasPrefix(name, ".") || filepath.IsAbs(name) {
		return true
	}
	if _, ok := alias[name]; ok {
		return true
	}
	if _, ok := sp.WebpackExternals[name]; ok {
		return true
	}
	if strings.Contains(name, "!") {
		return true
	}
	for _, dir := range nodePaths {
		for _, candidate := range []string{name, name + ".js"} {
			if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(candidate))); err == nil {
				return true
			}
		}
	}
	return false
}
