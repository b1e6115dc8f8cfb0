// Package dist answers package metadata queries from a YAML manifest that
// lists packages, their dependencies and the module registries they
// declare.
package dist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DefaultManifest is the manifest file name looked up in the working
// directory.
const DefaultManifest = "calmjs.yaml"

// Metadata is the package metadata consumed when creating a build spec.
// Flatten variants include every transitive dependency, Get variants only
// the named packages, and FlattenParents variants only the dependencies.
type Metadata interface {
	FlattenModuleRegistryNames(packages []string) []string
	GetModuleRegistryNames(packages []string) []string

	FlattenModuleRegistryDependencies(packages []string, registry string) map[string]string
	GetModuleRegistryDependencies(packages []string, registry string) map[string]string
	FlattenParentsModuleRegistryDependencies(packages []string, registry string) map[string]string

	FlattenExtrasCalmjs(packages []string, key string) map[string]string
	GetExtrasCalmjs(packages []string, key string) map[string]string
	FlattenParentsExtrasCalmjs(packages []string, key string) map[string]string
}

// Package is one manifest entry.
type Package struct {
	Name     string   `yaml:"name"`
	Requires []string `yaml:"requires,omitempty"`
	// ModuleRegistries maps registry name to modname to source path.
	ModuleRegistries map[string]map[string]string `yaml:"module_registries,omitempty"`
	// ExtrasCalmjs maps an extras key such as node_modules to modname to
	// path.
	ExtrasCalmjs map[string]map[string]string `yaml:"extras_calmjs,omitempty"`
}

// Manifest implements Metadata. Relative module paths resolve against the
// manifest's directory.
type Manifest struct {
	Packages []Package `yaml:"packages"`

	baseDir string
	index   map[string]*Package
}

// LoadManifest reads the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return ParseManifest(data, abs)
}

// ParseManifest decodes manifest data.
func ParseManifest(data []byte, baseDir string) (*Manifest, error) {
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	m.baseDir = baseDir
	m.index = make(map[string]*Package, len(m.Packages))
	for i := range m.Packages {
		p := &m.Packages[i]
		if p.Name == "" {
			return nil, fmt.Errorf("manifest package %d has no name", i)
		}
		if _, dup := m.index[p.Name]; dup {
			return nil, fmt.Errorf("manifest lists package %q twice", p.Name)
		}
		m.index[p.Name] = p
	}
	return m, nil
}

// Empty returns a manifest without packages.
func Empty() *Manifest {
	return &Manifest{index: map[string]*Package{}}
}

// flatten returns the named packages and their dependencies, dependencies
// first, each package once.
func (m *Manifest) flatten(names []string) []*Package {
	var order []*Package
	visited := make(map[string]bool)
	var visit func(name string, required bool)
	visit = func(name string, required bool) {
		if visited[name] {
			return
		}
		visited[name] = true
		p, ok := m.index[name]
		if !ok {
			if required {
				log.Warn().Str("package", name).Msg("package not found in manifest")
			} else {
				log.Debug().Str("package", name).Msg("dependency not found in manifest")
			}
			return
		}
		for _, dep := range p.Requires {
			visit(dep, false)
		}
		order = append(order, p)
	}
	for _, name := range names {
		visit(name, true)
	}
	return order
}

func (m *Manifest) named(names []string) []*Package {
	var pkgs []*Package
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if p, ok := m.index[name]; ok {
			pkgs = append(pkgs, p)
		} else {
			log.Warn().Str("package", name).Msg("package not found in manifest")
		}
	}
	return pkgs
}

func (m *Manifest) parents(names []string) []*Package {
	own := make(map[string]bool, len(names))
	for _, name := range names {
		own[name] = true
	}
	var pkgs []*Package
	for _, p := range m.flatten(names) {
		if !own[p.Name] {
			pkgs = append(pkgs, p)
		}
	}
	return pkgs
}

func registryNames(pkgs []*Package) []string {
	names := []string{}
	seen := make(map[string]bool)
	for _, p := range pkgs {
		keys := make([]string, 0, len(p.ModuleRegistries))
		for k := range p.ModuleRegistries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	return names
}

func (m *Manifest) FlattenModuleRegistryNames(packages []string) []string {
	return registryNames(m.flatten(packages))
}

func (m *Manifest) GetModuleRegistryNames(packages []string) []string {
	return registryNames(m.named(packages))
}

// moduleMap merges the registry entries of pkgs; later packages win.
func (m *Manifest) moduleMap(pkgs []*Package, registry string) map[string]string {
	result := map[string]string{}
	for _, p := range pkgs {
		for modname, path := range p.ModuleRegistries[registry] {
			if !filepath.IsAbs(path) && m.baseDir != "" {
				path = filepath.Join(m.baseDir, filepath.FromSlash(path))
			}
			result[modname] = path
		}
	}
	return result
}

func (m *Manifest) FlattenModuleRegistryDependencies(packages []string, registry string) map[string]string {
	return m.moduleMap(m.flatten(packages), registry)
}

func (m *Manifest) GetModuleRegistryDependencies(packages []string, registry string) map[string]string {
	return m.moduleMap(m.named(packages), registry)
}

func (m *Manifest) FlattenParentsModuleRegistryDependencies(packages []string, registry string) map[string]string {
	return m.moduleMap(m.parents(packages), registry)
}

func extrasMap(pkgs []*Package, key string) map[string]string {
	result := map[string]string{}
	for _, p := range pkgs {
		for modname, path := range p.ExtrasCalmjs[key] {
			result[modname] = path
		}
	}
	return result
}

func (m *Manifest) FlattenExtrasCalmjs(packages []string, key string) map[string]string {
	return extrasMap(m.flatten(packages), key)
}

func (m *Manifest) GetExtrasCalmjs(packages []string, key string) map[string]string {
	return extrasMap(m.named(packages), key)
}

func (m *Manifest) FlattenParentsExtrasCalmjs(packages []string, key string) map[string]string {
	return extrasMap(m.parents(packages), key)
}
