// Package testrunner turns a build spec into a karma test build: test
// modules are compiled alongside the sources, prebuilt artifacts become
// externals, and the karma configuration is rewritten to serve them
// through karma-webpack.
package testrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/calmjs/calmjs-webpack/internal/interrogate"
	"github.com/calmjs/calmjs-webpack/internal/spec"
	"github.com/calmjs/calmjs-webpack/internal/toolchain"
)

// Preprocessor is the karma preprocessor applied to test files.
const Preprocessor = "webpack"

// Builder runs the stages of a build up to and including assemble.
type Builder interface {
	Build(ctx context.Context, sp *spec.Spec) error
}

// Karma is a karma configuration object.
type Karma map[string]interface{}

// ApplyTestBuild registers the test build advice on sp and runs the
// build. On success karma holds the webpack configuration, the files to
// serve and their preprocessors.
func ApplyTestBuild(ctx context.Context, b Builder, sp *spec.Spec, karma Karma) error {
	Advise(sp, karma)
	return b.Build(ctx, sp)
}

// Advise registers the advice that turns the build of sp into a test
// build writing into karma.
func Advise(sp *spec.Spec, karma Karma) {
	sp.Advise(spec.BeforeCompile, mergeTestModules)
	sp.Advise(spec.AfterCompile, unexportTestModules)
	sp.Advise(spec.BeforeAssemble, chainArtifacts)
	if sp.SingleTestBundle {
		sp.Advise(spec.BeforeAssemble, writeTestsModule)
	}
	sp.Advise(spec.AfterAssemble, func(sp *spec.Spec) error {
		return updateKarma(sp, karma)
	})
}

func mergeTestModules(sp *spec.Spec) error {
	for modname, path := range sp.TestModulePaths {
		sp.TranspileSourcepath[modname] = path
	}
	return nil
}

// unexportTestModules keeps test modules out of the module table.
func unexportTestModules(sp *spec.Spec) error {
	names := sp.ExportModuleNames[:0]
	for _, name := range sp.ExportModuleNames {
		if _, test := sp.TestModulePaths[name]; !test {
			names = append(names, name)
		}
	}
	sp.ExportModuleNames = names
	return nil
}

// chainArtifacts makes the modules provided by every artifact external.
// Artifacts that cannot be interrogated are still served but contribute no
// externals.
func chainArtifacts(sp *spec.Spec) error {
	if len(sp.ArtifactPaths) == 0 {
		return nil
	}
	if _, ok := sp.WebpackExternals[spec.DefaultExport]; !ok {
		sp.WebpackExternals[spec.DefaultExport] = spec.BootstrapExternal()
	}
	for _, artifact := range sp.ArtifactPaths {
		names, err := interrogate.ProbeFile(artifact)
		if err != nil {
			var ierr *interrogate.InterrogationError
			if !errors.As(err, &ierr) {
				return err
			}
			log.Warn().Err(err).Str("artifact", artifact).Msg("unable to extract module names from artifact; its modules are not externals")
			continue
		}
		for _, name := range names {
			if _, built := sp.TranspileSourcepath[name]; built {
				continue
			}
			if _, ok := sp.WebpackExternals[name]; !ok {
				sp.WebpackExternals[name] = spec.ModuleExternal(name)
			}
		}
		log.Debug().Str("artifact", artifact).Int("modules", len(names)).Msg("chained artifact")
	}
	return nil
}

func testModnames(sp *spec.Spec) []string {
	names := make([]string, 0, len(sp.TestModulePaths))
	for name := range sp.TestModulePaths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TestsModulePath is the single test bundle module written into the build
// directory.
func TestsModulePath(sp *spec.Spec) string {
	return filepath.Join(sp.BuildDir, toolchain.TestsModule+".js")
}

func writeTestsModule(sp *spec.Spec) error {
	text := toolchain.TestsModuleSource(testModnames(sp))
	path := TestsModulePath(sp)
	if err := toolchain.VerifySyntax(path, text); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return fmt.Errorf("failed to write test bundle: %w", err)
	}
	return nil
}

func updateKarma(sp *spec.Spec, karma Karma) error {
	if sp.WebpackConfig == nil {
		return errors.New("webpack config was not assembled")
	}
	karma["webpack"] = sp.WebpackConfig.Plain()

	var tests []string
	if sp.SingleTestBundle {
		tests = []string{TestsModulePath(sp)}
	} else {
		for _, name := range testModnames(sp) {
			target, ok := sp.TranspiledTargets[name]
			if !ok {
				log.Warn().Str("modname", name).Msg("test module was not compiled")
				continue
			}
			tests = append(tests, filepath.Join(sp.BuildDir, filepath.FromSlash(target)))
		}
	}

	files := make([]interface{}, 0, len(sp.ArtifactPaths)+len(tests))
	for _, artifact := range sp.ArtifactPaths {
		files = append(files, artifact)
	}
	files = append(files, existing(karma["files"])...)
	for _, path := range tests {
		files = append(files, path)
	}
	karma["files"] = files

	preprocessors, _ := karma["preprocessors"].(map[string]interface{})
	if preprocessors == nil {
		preprocessors = map[string]interface{}{}
	}
	for _, path := range tests {
		preprocessors[path] = []string{Preprocessor}
	}
	karma["preprocessors"] = preprocessors
	return nil
}

func existing(v interface{}) []interface{} {
	switch v := v.(type) {
	case []interface{}:
		return v
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	}
	return nil
}
