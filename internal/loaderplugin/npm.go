package loaderplugin

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/calmjs/calmjs-webpack/internal/spec"
)

const loaderSuffix = "-loader"

// NPMHandler is a BaseHandler whose loader is an npm package. Running it
// records the package location in the spec's resolveLoader aliases.
type NPMHandler struct {
	BaseHandler
}

func NewNPMHandler(r *Registry, name string) *NPMHandler {
	return &NPMHandler{BaseHandler: BaseHandler{name: name, registry: r}}
}

// PackageName picks the npm package providing this loader. Names already
// ending in -loader are used directly, otherwise an installed name-loader
// is preferred over an installed bare name, and name-loader is assumed when
// neither is installed.
func (h *NPMHandler) PackageName(tc Toolchain, sp *spec.Spec) string {
	if strings.HasSuffix(h.name, loaderSuffix) {
		return h.name
	}
	if locatePackage(tc, sp, h.name+loaderSuffix) != "" {
		return h.name + loaderSuffix
	}
	if locatePackage(tc, sp, h.name) != "" {
		return h.name
	}
	return h.name + loaderSuffix
}

func (h *NPMHandler) Run(tc Toolchain, sp *spec.Spec, modname, source, target, modpath string) (*Result, error) {
	pkg := h.PackageName(tc, sp)
	if dir := locatePackage(tc, sp, pkg); dir != "" {
		sp.WebpackResolveLoaderAlias[h.name] = dir
	} else {
		log.Warn().Str("loader", h.name).Str("package", pkg).Msg("loader package not found in any node_modules directory")
	}
	return h.BaseHandler.Run(tc, sp, modname, source, target, modpath)
}

// AutogenHandler is the handler an auto-generating registry creates for
// loaders nobody registered.
type AutogenHandler struct {
	NPMHandler
}

func NewAutogenHandler(r *Registry, name string) *AutogenHandler {
	return &AutogenHandler{NPMHandler: *NewNPMHandler(r, name)}
}

func locatePackage(tc Toolchain, sp *spec.Spec, pkg string) string {
	if tc == nil {
		return ""
	}
	for _, dir := range tc.NodeModulesPaths(sp) {
		candidate := filepath.Join(dir, pkg)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return ""
}
