// Package toolchain drives a webpack build from a spec: it validates the
// spec, stages sources into a build directory, generates the bootstrap and
// configuration modules, and invokes the webpack binary.
package toolchain

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/calmjs/calmjs-webpack/internal/loaderplugin"
	"github.com/calmjs/calmjs-webpack/internal/spec"
)

const (
	BootstrapModule = "__calmjs_bootstrap__"
	LoaderModule    = "__calmjs_loader__"
	TestsModule     = "__calmjs_tests__"

	// ConfigFile is the name of the generated configuration inside the
	// build directory.
	ConfigFile = "config.js"

	nodeModules = "node_modules"
)

// Toolchain runs webpack builds. The zero value is not usable; use New.
type Toolchain struct {
	BinaryName string
	// NodePath lists extra node_modules directories, os.PathListSeparator
	// separated.
	NodePath string
	Loaders  *loaderplugin.Registry
	Stdout   io.Writer
	Stderr   io.Writer

	// FallbackPaths are checked for the binary after PATH and the working
	// directory's node_modules/.bin.
	FallbackPaths []string
}

type Option func(*Toolchain)

func WithNodePath(path string) Option {
	return func(t *Toolchain) { t.NodePath = path }
}

func WithLoaderRegistry(r *loaderplugin.Registry) Option {
	return func(t *Toolchain) { t.Loaders = r }
}

func WithOutput(stdout, stderr io.Writer) Option {
	return func(t *Toolchain) {
		t.Stdout = stdout
		t.Stderr = stderr
	}
}

func WithBinaryName(name string) Option {
	return func(t *Toolchain) { t.BinaryName = name }
}

func New(opts ...Option) *Toolchain {
	name := "webpack"
	if runtime.GOOS == "windows" {
		name = "webpack.cmd"
	}
	t := &Toolchain{
		BinaryName: name,
		NodePath:   os.Getenv("NODE_PATH"),
		Loaders:    loaderplugin.Lookup(loaderplugin.DefaultRegistryName),
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		FallbackPaths: []string{
			"/usr/local/bin",
			"/usr/bin",
			"/opt/homebrew/bin",
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NodeModulesPaths returns the existing node_modules directories from
// NodePath followed by the one in the spec's working directory.
func (t *Toolchain) NodeModulesPaths(sp *spec.Spec) []string {
	candidates := filepath.SplitList(t.NodePath)
	if sp != nil && sp.WorkingDir != "" {
		candidates = append(candidates, filepath.Join(sp.WorkingDir, nodeModules))
	}

	var paths []string
	seen := make(map[string]bool)
	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil || seen[abs] {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			seen[abs] = true
			paths = append(paths, abs)
		}
	}
	return paths
}

// Run executes every stage, webpack included. Cleanup advice runs even
// when a stage fails.
func (t *Toolchain) Run(ctx context.Context, sp *spec.Spec) error {
	return t.run(ctx, sp, true)
}

// Build runs prepare, compile and assemble without locating or invoking
// webpack, leaving a build directory another runner can consume.
func (t *Toolchain) Build(ctx context.Context, sp *spec.Spec) error {
	return t.run(ctx, sp, false)
}

func (t *Toolchain) run(ctx context.Context, sp *spec.Spec, link bool) (err error) {
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Logger()
	logger.Info().
		Strs("packages", sp.SourcePackageNames).
		Str("export_target", sp.ExportTarget).
		Bool("link", link).
		Msg("starting webpack toolchain")

	defer func() {
		if cerr := sp.HandleAdvice(spec.Cleanup); cerr != nil {
			logger.Error().Err(cerr).Msg("cleanup failed")
			if err == nil {
				err = cerr
			}
		}
	}()

	steps := []struct {
		before, after spec.Stage
		fn            func() error
	}{
		{spec.BeforePrepare, spec.AfterPrepare, func() error { return t.prepare(sp, link) }},
		{spec.BeforeCompile, spec.AfterCompile, func() error { return t.Compile(sp) }},
		{spec.BeforeAssemble, spec.AfterAssemble, func() error { return t.Assemble(sp) }},
	}
	if link {
		steps = append(steps, struct {
			before, after spec.Stage
			fn            func() error
		}{spec.BeforeLink, spec.AfterLink, func() error { return t.Link(ctx, sp) }})
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sp.HandleAdvice(step.before); err != nil {
			return err
		}
		if err := step.fn(); err != nil {
			return err
		}
		if err := sp.HandleAdvice(step.after); err != nil {
			return err
		}
	}

	logger.Info().Str("export_target", sp.ExportTarget).Msg("webpack toolchain finished")
	return nil
}
