package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/calmjs/calmjs-webpack/internal/buildspec"
	"github.com/calmjs/calmjs-webpack/internal/config"
	"github.com/calmjs/calmjs-webpack/internal/spec"
)

// specFlags are the build settings every spec-creating command accepts.
type specFlags struct {
	manifest         string
	workingDir       string
	buildDir         string
	exportTarget     string
	nodePath         string
	webpackBin       string
	loaderRegistry   string
	registryMethod   string
	sourcepathMethod string
	bundlepathMethod string
	registries       []string
	calmjsCompat     bool
	verifyImports    bool
	sourceMap        bool
	optimizeMinimize bool
	singleTestBundle bool
	webpackTarget    string
	keepBuildDir     bool
}

func (f *specFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.manifest, "manifest", "", "package manifest (default calmjs.yaml in the working directory)")
	fl.StringVar(&f.workingDir, "working-dir", "", "working directory holding node_modules (default current directory)")
	fl.StringVar(&f.buildDir, "build-dir", "", "build directory (default a new temporary directory)")
	fl.StringVar(&f.exportTarget, "export-target", "", "artifact path (default <working-dir>/<last package>.js)")
	fl.StringVar(&f.nodePath, "node-path", "", "extra node_modules directories (default $NODE_PATH)")
	fl.StringVar(&f.webpackBin, "webpack-bin", "", "webpack binary (default looked up on PATH and in node_modules/.bin)")
	fl.StringVar(&f.loaderRegistry, "loader-registry", "", "loader plugin registry name")
	fl.StringVar(&f.registryMethod, "source-registry-method", "", "module registries to use: all, explicit or none")
	fl.StringVar(&f.sourcepathMethod, "sourcepath-method", "", "modules to build: all, explicit or none")
	fl.StringVar(&f.bundlepathMethod, "bundlepath-method", "", "node_modules files to bundle: all, explicit or none")
	fl.StringSliceVar(&f.registries, "source-registry", nil, "module registry to use instead of the declared ones (repeatable)")
	fl.BoolVar(&f.calmjsCompat, "calmjs-compat", true, "generate the __calmjs__ bootstrap and rewrite dynamic requires")
	fl.BoolVar(&f.verifyImports, "verify-imports", true, "warn about imports the build cannot provide")
	fl.BoolVar(&f.sourceMap, "source-map", true, "generate a source map")
	fl.BoolVar(&f.optimizeMinimize, "optimize-minimize", false, "minimize the artifact")
	fl.BoolVar(&f.singleTestBundle, "single-test-bundle", true, "bundle all test modules into one file")
	fl.StringVar(&f.webpackTarget, "webpack-target", "", "webpack version the config targets (default detected)")
	fl.BoolVar(&f.keepBuildDir, "keep-build-dir", false, "keep a temporary build directory")
}

// apply overrides settings with the flags set on cmd.
func (f *specFlags) apply(cmd *cobra.Command, s *config.Settings) error {
	fl := cmd.Flags()
	strs := map[string]*string{
		"manifest":               &s.Manifest,
		"working-dir":            &s.WorkingDir,
		"build-dir":              &s.BuildDir,
		"export-target":          &s.ExportTarget,
		"node-path":              &s.NodePath,
		"webpack-bin":            &s.WebpackBin,
		"loader-registry":        &s.LoaderRegistry,
		"source-registry-method": &s.SourceRegistryMethod,
		"sourcepath-method":      &s.SourcepathMethod,
		"bundlepath-method":      &s.BundlepathMethod,
		"webpack-target":         &s.WebpackTarget,
	}
	for name, dst := range strs {
		if fl.Changed(name) {
			v, err := fl.GetString(name)
			if err != nil {
				return err
			}
			*dst = v
		}
	}
	bools := map[string]*bool{
		"calmjs-compat":      &s.CalmjsCompat,
		"verify-imports":     &s.VerifyImports,
		"source-map":         &s.GenerateSourceMap,
		"optimize-minimize":  &s.OptimizeMinimize,
		"single-test-bundle": &s.SingleTestBundle,
	}
	for name, dst := range bools {
		if fl.Changed(name) {
			v, err := fl.GetBool(name)
			if err != nil {
				return err
			}
			*dst = v
		}
	}
	if fl.Changed("source-registry") {
		s.SourceRegistries = f.registries
	}
	return s.Validate()
}

// prepareBuildDir creates a temporary build directory when none is
// configured. The returned cleanup removes it unless it must be kept.
func (f *specFlags) prepareBuildDir(s *config.Settings, keep bool) (func(), error) {
	if s.BuildDir != "" {
		return func() {}, nil
	}
	dir := filepath.Join(os.TempDir(), "calmjs-webpack-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}
	s.BuildDir = dir
	if keep || f.keepBuildDir {
		log.Info().Str("build_dir", dir).Msg("build directory kept")
		return func() {}, nil
	}
	return func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("build_dir", dir).Msg("failed to remove build directory")
		}
	}, nil
}

// newSpec creates the spec for packages from the loaded settings and the
// command's flags. The returned cleanup removes a temporary build
// directory.
func (f *specFlags) newSpec(cmd *cobra.Command, packages []string, keepBuildDir bool) (*spec.Spec, func(), error) {
	if err := f.apply(cmd, settings); err != nil {
		return nil, nil, err
	}
	meta, err := settings.LoadMetadata()
	if err != nil {
		return nil, nil, err
	}
	cleanup, err := f.prepareBuildDir(settings, keepBuildDir)
	if err != nil {
		return nil, nil, err
	}
	sp, err := buildspec.Create(meta, packages, settings.SpecOptions()...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return sp, cleanup, nil
}
