package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmjs/calmjs-webpack/internal/buildspec"
	"github.com/calmjs/calmjs-webpack/internal/dist"
	"github.com/calmjs/calmjs-webpack/internal/loaderplugin"
	"github.com/calmjs/calmjs-webpack/internal/webpackcfg"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NODE_PATH", "/opt/node_modules")

	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/opt/node_modules", s.NodePath)
	assert.Equal(t, dist.DefaultManifest, s.Manifest)
	assert.Equal(t, loaderplugin.DefaultRegistryName, s.LoaderRegistry)
	assert.Equal(t, "all", s.SourcepathMethod)
	assert.True(t, s.CalmjsCompat)
	assert.True(t, s.VerifyImports)
	assert.True(t, s.GenerateSourceMap)
	assert.True(t, s.SingleTestBundle)
	assert.False(t, s.OptimizeMinimize)
	assert.Empty(t, s.WebpackBin)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigName+".yaml"), []byte(`
webpack_bin: /usr/lib/node_modules/.bin/webpack
sourcepath_method: explicit
calmjs_compat: false
webpack_target: 3.12.0
source_registries: [calmjs.module]
`), 0o644))
	t.Setenv("CALMJS_WEBPACK_OPTIMIZE_MINIMIZE", "true")
	t.Setenv("CALMJS_WEBPACK_WEBPACK_BIN", "/bin/webpack")

	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/bin/webpack", s.WebpackBin)
	assert.Equal(t, "explicit", s.SourcepathMethod)
	assert.False(t, s.CalmjsCompat)
	assert.True(t, s.OptimizeMinimize)
	assert.Equal(t, "3.12.0", s.WebpackTarget)
	assert.Equal(t, []string{"calmjs.module"}, s.SourceRegistries)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CALMJS_WEBPACK_BUILD_DIR", "")
	require.NoError(t, os.Unsetenv("CALMJS_WEBPACK_BUILD_DIR"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CALMJS_WEBPACK_BUILD_DIR=/tmp/calmjs-build\n"), 0o644))

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/calmjs-build", s.BuildDir)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load("missing.yaml")
	assert.ErrorContains(t, err, "error reading config file")
}

func TestSettingsValidate(t *testing.T) {
	valid := func() Settings {
		return Settings{
			Manifest:             dist.DefaultManifest,
			SourceRegistryMethod: "all",
			SourcepathMethod:     "all",
			BundlepathMethod:     "all",
		}
	}

	tests := []struct {
		name   string
		modify func(s *Settings)
		errMsg string
	}{
		{name: "valid", modify: func(s *Settings) {}},
		{name: "empty methods mean all", modify: func(s *Settings) { s.SourcepathMethod = "" }},
		{name: "bad method", modify: func(s *Settings) { s.BundlepathMethod = "some" }, errMsg: "bundlepath_method"},
		{name: "bad version", modify: func(s *Settings) { s.WebpackTarget = "four" }, errMsg: "webpack_target"},
		{name: "empty manifest", modify: func(s *Settings) { s.Manifest = "" }, errMsg: "manifest cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.modify(&s)
			err := s.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestSpecOptions(t *testing.T) {
	work := t.TempDir()
	s := Settings{
		Manifest:          dist.DefaultManifest,
		WorkingDir:        work,
		BuildDir:          filepath.Join(work, "build"),
		ExportTarget:      "out.js",
		SourcepathMethod:  "explicit",
		CalmjsCompat:      false,
		GenerateSourceMap: false,
		OptimizeMinimize:  true,
		WebpackTarget:     "2.6.1",
		WebpackBin:        "/bin/webpack",
	}

	sp, err := buildspec.Create(nil, []string{"example.package"}, s.SpecOptions()...)
	require.NoError(t, err)

	assert.Equal(t, work, sp.WorkingDir)
	assert.Equal(t, filepath.Join(work, "build"), sp.BuildDir)
	assert.Equal(t, filepath.Join(work, "out.js"), sp.ExportTarget)
	assert.Equal(t, "out", sp.WebpackOutputLibrary)
	assert.False(t, sp.CalmjsCompat)
	assert.False(t, sp.GenerateSourceMap)
	assert.True(t, sp.OptimizeMinimize)
	assert.Equal(t, webpackcfg.NewVersion(2, 6, 1), sp.WebpackTarget)
	assert.Equal(t, "/bin/webpack", sp.WebpackBin)
}

func TestLoadMetadata(t *testing.T) {
	work := t.TempDir()

	s := Settings{Manifest: dist.DefaultManifest, WorkingDir: work}
	meta, err := s.LoadMetadata()
	require.NoError(t, err)
	assert.Empty(t, meta.FlattenModuleRegistryNames([]string{"example.package"}))

	s.Manifest = "custom.yaml"
	_, err = s.LoadMetadata()
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(work, "custom.yaml"), []byte("packages:\n  - name: example.package\n    module_registries:\n      calmjs.module: {}\n"), 0o644))
	meta, err = s.LoadMetadata()
	require.NoError(t, err)
	assert.Equal(t, []string{"calmjs.module"}, meta.FlattenModuleRegistryNames([]string{"example.package"}))
}
