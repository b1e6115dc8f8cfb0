package loaderplugin

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/calmjs/calmjs-webpack/internal/spec"
)

// Toolchain is the part of the webpack toolchain handlers depend on.
type Toolchain interface {
	NodeModulesPaths(sp *spec.Spec) []string
}

// Result is what a handler contributes for one module.
type Result struct {
	Modpaths          map[string]string
	Targets           map[string]string
	ExportModuleNames []string
}

// Handler processes one loader prefix.
type Handler interface {
	Name() string
	Registry() *Registry
	// Unwrap strips this handler's prefix from modname when present.
	Unwrap(modname string) string
	// Run copies source to target under the build directory and returns
	// the modpath and target entries for modname.
	Run(tc Toolchain, sp *spec.Spec, modname, source, target, modpath string) (*Result, error)
}

// BaseHandler copies the resource as-is and defers nested loader prefixes
// to the handlers registered for them.
type BaseHandler struct {
	name     string
	registry *Registry
}

func NewHandler(r *Registry, name string) *BaseHandler {
	return &BaseHandler{name: name, registry: r}
}

func (h *BaseHandler) Name() string {
	return h.name
}

func (h *BaseHandler) Registry() *Registry {
	return h.registry
}

func (h *BaseHandler) Unwrap(modname string) string {
	return strings.TrimPrefix(modname, h.name+"!")
}

func (h *BaseHandler) Run(tc Toolchain, sp *spec.Spec, modname, source, target, modpath string) (*Result, error) {
	stripped := h.Unwrap(modname)
	if strings.Contains(stripped, "!") && h.registry != nil {
		if inner := h.registry.GetRecord(stripped); inner != nil {
			res, err := inner.Run(tc, sp, stripped, source, target, h.Unwrap(modpath))
			if err != nil {
				return nil, err
			}
			return res.prefixed(h.name + "!"), nil
		}
	}

	dst := filepath.Join(sp.BuildDir, filepath.FromSlash(target))
	if err := CopyFile(source, dst); err != nil {
		return nil, fmt.Errorf("loader %s failed to copy %s: %w", h.name, source, err)
	}

	res := &Result{
		Modpaths: map[string]string{modname: modpath},
		Targets: map[string]string{
			stripped:        target,
			"./" + stripped: target,
		},
	}
	if _, handled := sp.ModnameLoaderMap[stripped]; !handled {
		res.ExportModuleNames = []string{modname}
	}
	return res, nil
}

// prefixed returns a copy with prefix added to every modpath key and value.
func (r *Result) prefixed(prefix string) *Result {
	modpaths := make(map[string]string, len(r.Modpaths))
	for k, v := range r.Modpaths {
		modpaths[prefix+k] = prefix + v
	}
	exports := make([]string, len(r.ExportModuleNames))
	for i, name := range r.ExportModuleNames {
		exports[i] = prefix + name
	}
	return &Result{Modpaths: modpaths, Targets: r.Targets, ExportModuleNames: exports}
}

// CopyFile copies src to dst, creating the parent directories of dst.
func CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
