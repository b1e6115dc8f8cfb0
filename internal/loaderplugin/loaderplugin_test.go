package loaderplugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmjs/calmjs-webpack/internal/spec"
)

type fakeToolchain struct {
	paths []string
}

func (f fakeToolchain) NodeModulesPaths(*spec.Spec) []string {
	return f.paths
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newSpec(t *testing.T) *spec.Spec {
	sp := spec.New()
	sp.BuildDir = t.TempDir()
	return sp
}

func TestRegistryGet(t *testing.T) {
	strict := NewRegistry("strict")
	strict.Register(NewHandler(strict, "text"))

	assert.NotNil(t, strict.Get("text"))
	assert.Nil(t, strict.Get("css"))
	assert.Nil(t, strict.GetRecord("plain/module"))
	assert.Equal(t, "text", strict.GetRecord("text!file.txt").Name())

	auto := NewAutogenRegistry("auto")
	h := auto.Get("css")
	require.NotNil(t, h)
	assert.IsType(t, &AutogenHandler{}, h)
	assert.Same(t, h, auto.Get("css"))
	assert.Same(t, auto, h.Registry())
}

func TestLookupAndInstall(t *testing.T) {
	r := Lookup("test.lookup")
	assert.Same(t, r, Lookup("test.lookup"))

	replacement := NewRegistry("test.lookup")
	Install(replacement)
	assert.Same(t, replacement, Lookup("test.lookup"))

	assert.Equal(t, DefaultRegistryName, Lookup("").Name())
}

func TestBaseHandlerRun(t *testing.T) {
	src := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, src, "hello")

	r := NewRegistry("test")
	h := NewHandler(r, "text")
	r.Register(h)

	sp := newSpec(t)
	res, err := h.Run(nil, sp, "text!file.txt", src, "file.txt", "text!file.txt")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"text!file.txt": "text!file.txt"}, res.Modpaths)
	assert.Equal(t, map[string]string{"file.txt": "file.txt", "./file.txt": "file.txt"}, res.Targets)
	assert.Equal(t, []string{"text!file.txt"}, res.ExportModuleNames)

	data, err := os.ReadFile(filepath.Join(sp.BuildDir, "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestBaseHandlerRunSkipsExportForMappedLoaders(t *testing.T) {
	src := filepath.Join(t.TempDir(), "style.css")
	writeFile(t, src, "body {}")

	r := NewRegistry("test")
	h := NewHandler(r, "css")
	sp := newSpec(t)
	sp.ModnameLoaderMap["style.css"] = []string{"css"}

	res, err := h.Run(nil, sp, "css!style.css", src, "style.css", "css!style.css")
	require.NoError(t, err)
	assert.Empty(t, res.ExportModuleNames)
}

func TestChainedHandlers(t *testing.T) {
	src := filepath.Join(t.TempDir(), "some.css")
	writeFile(t, src, "a {}")

	r := NewRegistry("test")
	text := NewHandler(r, "text")
	r.Register(text)
	r.Register(NewHandler(r, "css"))

	sp := newSpec(t)
	res, err := text.Run(nil, sp, "text!css!some.css", src, "some.css", "text!css!some.css")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"text!css!some.css": "text!css!some.css"}, res.Modpaths)
	assert.Equal(t, map[string]string{"some.css": "some.css", "./some.css": "some.css"}, res.Targets)
	assert.Equal(t, []string{"text!css!some.css"}, res.ExportModuleNames)
}

func TestNPMHandlerPackageName(t *testing.T) {
	nodeModules := filepath.Join(t.TempDir(), "node_modules")
	require.NoError(t, os.MkdirAll(filepath.Join(nodeModules, "text-loader"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(nodeModules, "file"), 0o755))
	tc := fakeToolchain{paths: []string{nodeModules}}

	r := NewRegistry("test")
	sp := newSpec(t)

	tests := []struct {
		loader string
		want   string
	}{
		{loader: "text", want: "text-loader"},
		{loader: "style-loader", want: "style-loader"},
		{loader: "file", want: "file"},
		{loader: "css", want: "css-loader"},
	}
	for _, tt := range tests {
		t.Run(tt.loader, func(t *testing.T) {
			assert.Equal(t, tt.want, NewNPMHandler(r, tt.loader).PackageName(tc, sp))
		})
	}
}

func TestNPMHandlerRecordsAlias(t *testing.T) {
	nodeModules := filepath.Join(t.TempDir(), "node_modules")
	require.NoError(t, os.MkdirAll(filepath.Join(nodeModules, "text-loader"), 0o755))
	src := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, src, "hello")

	r := NewAutogenRegistry("test")
	sp := newSpec(t)
	h := r.Get("text")
	_, err := h.Run(fakeToolchain{paths: []string{nodeModules}}, sp, "text!file.txt", src, "file.txt", "text!file.txt")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(nodeModules, "text-loader"), sp.WebpackResolveLoaderAlias["text"])
}

func TestNormalize(t *testing.T) {
	sp := spec.New()
	out := Normalize(sp, map[LoaderKey]string{
		ParseLoaderKey("example/main"):        "/src/example/main.js",
		ParseLoaderKey("style!css!main.css"):  "/src/main.css",
		ParseLoaderKey("text!tmpl/page.html"): "text!/src/tmpl/page.html",
	})

	assert.Equal(t, map[string]string{
		"example/main":   "/src/example/main.js",
		"main.css":       "/src/main.css",
		"tmpl/page.html": "/src/tmpl/page.html",
	}, out)
	assert.Equal(t, []string{"style", "css"}, sp.ModnameLoaderMap["main.css"])
	assert.Equal(t, []string{"text"}, sp.ModnameLoaderMap["tmpl/page.html"])
}

func TestUpdateRules(t *testing.T) {
	sp := spec.New()
	sp.ModnameLoaderMap["main.css"] = []string{"style", "css"}
	sp.ModnameLoaderMap["missing.html"] = []string{"text"}

	UpdateRules(sp, map[string]string{"main.css": "/build/main.css"})
	UpdateRules(sp, map[string]string{"main.css": "/build/main.css"})

	assert.Equal(t, []spec.ModuleRule{{Test: "/build/main.css", Loaders: []string{"style", "css"}}}, sp.WebpackModuleRules)
}

func TestLoaderKey(t *testing.T) {
	k := ParseLoaderKey("style!css!main.css")
	assert.Equal(t, "style!css", k.Chain)
	assert.Equal(t, "main.css", k.Modname)
	assert.Equal(t, "style!css!main.css", k.String())

	plain := ParseLoaderKey("example/main")
	assert.Empty(t, plain.Chain)
	assert.Nil(t, plain.Loaders())
	assert.Equal(t, "example/main", plain.String())
}

func TestCopyFileCreatesParents(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(src, []byte("<p>hi</p>"), 0o600))

	dst := filepath.Join(dir, "build", "example", "index.html")
	require.NoError(t, CopyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(data))

	assert.Error(t, CopyFile(filepath.Join(dir, "absent.html"), dst))
}
