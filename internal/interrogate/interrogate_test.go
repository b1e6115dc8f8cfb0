package interrogate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmjs/calmjs-webpack/internal/jsast"
)

var exampleNames = []string{
	"example/package/bad",
	"example/package/main",
	"example/package/math",
}

func TestProbeFile(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "unminified", path: "testdata/example_package.js"},
		{name: "minified", path: "testdata/example_package.min.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names, err := ProbeFile(tt.path)
			require.NoError(t, err)
			assert.Equal(t, exampleNames, names)
		})
	}
}

func TestProbeRejectsOtherExports(t *testing.T) {
	for _, path := range []string{"testdata/example_package.js", "testdata/example_package.min.js"} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			data, err := os.ReadFile(path)
			require.NoError(t, err)

			renamed := strings.ReplaceAll(string(data), "__calmjs__", "__not_calmjs__")
			src, err := jsast.Parse(path, renamed)
			require.NoError(t, err)

			_, err = ProbeModuleNames(src)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrExtractionFailed)

			var ierr *InterrogationError
			assert.ErrorAs(t, err, &ierr)
		})
	}
}

func TestProbeInlineTable(t *testing.T) {
	artifact := `(function(root, factory) {
	root["__calmjs__"] = factory();
})(this, function() {
return (function(modules) {
	function require(id) { return modules[id]; }
	return require(require.s = "./entry.js");
})({
"./entry.js": (function(module, exports) {
	exports.modules = {'escaped': 1, "tab\tname": 2, plain: 3};
})
});
});`
	src, err := jsast.Parse("inline.js", artifact)
	require.NoError(t, err)

	names, err := ProbeModuleNames(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"escaped", "tab\tname", "plain"}, names)
}

func TestProbeFailures(t *testing.T) {
	tests := []struct {
		name     string
		artifact string
	}{
		{name: "no function", artifact: "var x = 1;"},
		{name: "no factory", artifact: "(function(root) { root.__calmjs__ = 1; })(this);"},
		{name: "no entry", artifact: `(function(root, factory) { root.__calmjs__ = factory(); })(this, function() { return 1; });`},
		{name: "entry out of range", artifact: `(function(root, factory) { root.__calmjs__ = factory(); })(this, function() {
return (function(modules) { return r(r.s = 4); })([function(module, exports) { exports.modules = {}; }]); });`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := jsast.Parse("bad.js", tt.artifact)
			require.NoError(t, err)
			_, err = ProbeModuleNames(src)
			assert.ErrorIs(t, err, ErrExtractionFailed)
		})
	}
}

func TestProbeFileErrors(t *testing.T) {
	_, err := ProbeFile(filepath.Join(t.TempDir(), "missing.js"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExtractionFailed)

	path := filepath.Join(t.TempDir(), "broken.js")
	require.NoError(t, os.WriteFile(path, []byte("function ("), 0o644))
	_, err = ProbeFile(path)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}
