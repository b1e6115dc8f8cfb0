// Package buildspec creates a build spec for a set of packages from their
// distribution metadata.
package buildspec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/calmjs/calmjs-webpack/internal/dist"
	"github.com/calmjs/calmjs-webpack/internal/loaderplugin"
	"github.com/calmjs/calmjs-webpack/internal/spec"
	"github.com/calmjs/calmjs-webpack/internal/webpackcfg"
)

const (
	// LoaderRegistrySuffix marks module registries whose keys carry a
	// loader chain.
	LoaderRegistrySuffix = ".webpackloader"

	// NodeModulesExtras is the extras key listing files bundled from
	// node_modules.
	NodeModulesExtras = "node_modules"
)

type options struct {
	exportTarget     string
	workingDir       string
	buildDir         string
	registryMethod   spec.Method
	sourcepathMethod spec.Method
	bundlepathMethod spec.Method
	registries       []string
	calmjsCompat     bool
	entryPoint       *string
	outputLibrary    *string
	optimizeMinimize bool
	verifyImports    bool
	sourceMap        bool
	singleTestBundle bool
	webpackTarget    webpackcfg.Version
	webpackBin       string
}

// Option customizes Create.
type Option func(*options)

func WithExportTarget(path string) Option {
	return func(o *options) { o.exportTarget = path }
}

func WithWorkingDir(dir string) Option {
	return func(o *options) { o.workingDir = dir }
}

func WithBuildDir(dir string) Option {
	return func(o *options) { o.buildDir = dir }
}

func WithSourceRegistryMethod(m spec.Method) Option {
	return func(o *options) { o.registryMethod = m }
}

func WithSourcepathMethod(m spec.Method) Option {
	return func(o *options) { o.sourcepathMethod = m }
}

func WithBundlepathMethod(m spec.Method) Option {
	return func(o *options) { o.bundlepathMethod = m }
}

// WithSourceRegistries uses the named module registries instead of the
// ones declared by the packages.
func WithSourceRegistries(names ...string) Option {
	return func(o *options) { o.registries = names }
}

func WithCalmjsCompat(enabled bool) Option {
	return func(o *options) { o.calmjsCompat = enabled }
}

// WithEntryPoint sets the entry module. Ignored in calmjs compatibility
// mode.
func WithEntryPoint(modname string) Option {
	return func(o *options) { o.entryPoint = &modname }
}

// WithOutputLibrary sets the UMD library name; an empty name disables it.
// Ignored in calmjs compatibility mode.
func WithOutputLibrary(name string) Option {
	return func(o *options) { o.outputLibrary = &name }
}

func WithOptimizeMinimize(enabled bool) Option {
	return func(o *options) { o.optimizeMinimize = enabled }
}

func WithVerifyImports(enabled bool) Option {
	return func(o *options) { o.verifyImports = enabled }
}

func WithSourceMap(enabled bool) Option {
	return func(o *options) { o.sourceMap = enabled }
}

func WithSingleTestBundle(enabled bool) Option {
	return func(o *options) { o.singleTestBundle = enabled }
}

func WithWebpackTarget(v webpackcfg.Version) Option {
	return func(o *options) { o.webpackTarget = v }
}

func WithWebpackBin(path string) Option {
	return func(o *options) { o.webpackBin = path }
}

// Create returns a spec for building packages, with sources, bundled files
// and externals collected from meta.
func Create(meta dist.Metadata, packages []string, opts ...Option) (*spec.Spec, error) {
	o := &options{
		registryMethod:   spec.MethodAll,
		sourcepathMethod: spec.MethodAll,
		bundlepathMethod: spec.MethodAll,
		calmjsCompat:     true,
		verifyImports:    true,
		sourceMap:        true,
		singleTestBundle: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	for name, m := range map[string]spec.Method{
		"source_registry_method": o.registryMethod,
		"sourcepath_method":      o.sourcepathMethod,
		"bundlepath_method":      o.bundlepathMethod,
	} {
		if _, err := spec.ParseMethod(string(m)); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	if meta == nil {
		meta = dist.Empty()
	}

	workingDir := o.workingDir
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		workingDir = wd
	}
	workingDir, err := filepath.Abs(workingDir)
	if err != nil {
		return nil, err
	}

	if len(packages) == 0 {
		log.Info().Msg("no packages specified")
	}
	exportTarget, err := exportTarget(o.exportTarget, workingDir, packages)
	if err != nil {
		return nil, err
	}

	sp := spec.New()
	sp.SourcePackageNames = append([]string{}, packages...)
	sp.WorkingDir = workingDir
	sp.BuildDir = o.buildDir
	sp.ExportTarget = exportTarget
	sp.CalmjsCompat = o.calmjsCompat
	sp.VerifyImports = o.verifyImports
	sp.GenerateSourceMap = o.sourceMap
	sp.OptimizeMinimize = o.optimizeMinimize
	sp.SingleTestBundle = o.singleTestBundle
	sp.WebpackTarget = o.webpackTarget
	sp.WebpackBin = o.webpackBin

	sp.CalmjsModuleRegistryNames = registryNames(meta, packages, o)
	sp.TranspileSourcepath = sourcepath(sp, meta, packages, o.sourcepathMethod)
	sp.BundleSourcepath = bundlepath(meta, packages, workingDir, o.bundlepathMethod)

	sp.WebpackEntryPoint = spec.DefaultExport
	if o.entryPoint != nil {
		sp.WebpackEntryPoint = *o.entryPoint
	}
	sp.WebpackOutputLibrary = strings.TrimSuffix(filepath.Base(exportTarget), ".js")
	if o.outputLibrary != nil {
		sp.WebpackOutputLibrary = *o.outputLibrary
	}

	if sp.CalmjsCompat {
		applyCompat(sp, meta, packages, o)
	}

	log.Debug().
		Strs("packages", packages).
		Strs("registries", sp.CalmjsModuleRegistryNames).
		Int("transpile", len(sp.TranspileSourcepath)).
		Int("bundle", len(sp.BundleSourcepath)).
		Int("externals", len(sp.WebpackExternals)).
		Msg("created webpack spec")
	return sp, nil
}

func exportTarget(target, workingDir string, packages []string) (string, error) {
	if target == "" {
		name := spec.DefaultExportTarget
		if len(packages) > 0 {
			name = packages[len(packages)-1] + ".js"
		}
		return filepath.Join(workingDir, name), nil
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(workingDir, target)
	}
	return filepath.Clean(target), nil
}

func registryNames(meta dist.Metadata, packages []string, o *options) []string {
	if o.registries != nil {
		return append([]string{}, o.registries...)
	}
	switch o.registryMethod {
	case spec.MethodExplicit:
		return meta.GetModuleRegistryNames(packages)
	case spec.MethodNone:
		return []string{}
	default:
		return meta.FlattenModuleRegistryNames(packages)
	}
}

func isLoaderRegistry(name string) bool {
	return strings.HasSuffix(name, LoaderRegistrySuffix)
}

type dependencyFunc func(packages []string, registry string) map[string]string

func dependencies(meta dist.Metadata, m spec.Method) dependencyFunc {
	switch m {
	case spec.MethodExplicit:
		return meta.GetModuleRegistryDependencies
	case spec.MethodNone:
		return nil
	default:
		return meta.FlattenModuleRegistryDependencies
	}
}

// sourcepath merges the modules of every registry. Loader registry keys are
// normalized, recording their chains on sp.
func sourcepath(sp *spec.Spec, meta dist.Metadata, packages []string, m spec.Method) map[string]string {
	result := map[string]string{}
	deps := dependencies(meta, m)
	if deps == nil {
		return result
	}
	for _, registry := range sp.CalmjsModuleRegistryNames {
		modules := deps(packages, registry)
		if !isLoaderRegistry(registry) {
			for modname, path := range modules {
				result[modname] = path
			}
			continue
		}
		keyed := make(map[loaderplugin.LoaderKey]string, len(modules))
		for modname, path := range modules {
			keyed[loaderplugin.ParseLoaderKey(modname)] = path
		}
		for modname, path := range loaderplugin.Normalize(sp, keyed) {
			result[modname] = path
		}
	}
	return result
}

type extrasFunc func(packages []string, key string) map[string]string

func extras(meta dist.Metadata, m spec.Method) extrasFunc {
	switch m {
	case spec.MethodExplicit:
		return meta.GetExtrasCalmjs
	case spec.MethodNone:
		return nil
	default:
		return meta.FlattenExtrasCalmjs
	}
}

func bundlepath(meta dist.Metadata, packages []string, workingDir string, m spec.Method) map[string]string {
	result := map[string]string{}
	fn := extras(meta, m)
	if fn == nil {
		return result
	}
	base := filepath.Join(workingDir, NodeModulesExtras)
	for modname, path := range fn(packages, NodeModulesExtras) {
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, filepath.FromSlash(path))
		}
		result[modname] = path
	}
	return result
}

// applyCompat forces the bootstrap entry point and library, and declares
// externals for the modules provided by other artifacts.
func applyCompat(sp *spec.Spec, meta dist.Metadata, packages []string, o *options) {
	if o.entryPoint != nil && *o.entryPoint != spec.DefaultExport {
		log.Warn().Str("webpack_entry_point", *o.entryPoint).
			Msg("webpack_entry_point is ignored unless calmjs_compat is disabled")
	}
	if o.outputLibrary != nil && *o.outputLibrary != spec.DefaultExport {
		log.Warn().Str("webpack_output_library", *o.outputLibrary).
			Msg("webpack_output_library is ignored unless calmjs_compat is disabled")
	}
	sp.WebpackEntryPoint = spec.DefaultExport
	sp.WebpackOutputLibrary = spec.DefaultExport
	sp.WebpackExternals[spec.DefaultExport] = spec.BootstrapExternal()

	for _, modname := range externalModules(sp, meta, packages, o) {
		if _, ok := sp.WebpackExternals[modname]; !ok {
			sp.WebpackExternals[modname] = spec.ModuleExternal(modname)
		}
	}
}

// externalModules lists the modnames excluded from this build by the
// sourcepath and bundlepath methods.
func externalModules(sp *spec.Spec, meta dist.Metadata, packages []string, o *options) []string {
	var names []string
	var deps dependencyFunc
	switch o.sourcepathMethod {
	case spec.MethodExplicit:
		deps = meta.FlattenParentsModuleRegistryDependencies
	case spec.MethodNone:
		deps = meta.FlattenModuleRegistryDependencies
	}
	if deps != nil {
		for _, registry := range sp.CalmjsModuleRegistryNames {
			for modname := range deps(packages, registry) {
				if isLoaderRegistry(registry) {
					modname = loaderplugin.ParseLoaderKey(modname).Modname
				}
				names = append(names, modname)
			}
		}
	}

	var ext extrasFunc
	switch o.bundlepathMethod {
	case spec.MethodExplicit:
		ext = meta.FlattenParentsExtrasCalmjs
	case spec.MethodNone:
		ext = meta.FlattenExtrasCalmjs
	}
	if ext != nil {
		for modname := range ext(packages, NodeModulesExtras) {
			names = append(names, modname)
		}
	}
	return names
}
