// Package spec holds the build specification shared by every toolchain
// stage.
package spec

import (
	"fmt"

	"github.com/calmjs/calmjs-webpack/internal/webpackcfg"
)

const (
	// DefaultExport is the global name under which every compatible
	// artifact publishes its module table.
	DefaultExport = "__calmjs__"

	// DefaultExportTarget is the artifact name used when no package was
	// named.
	DefaultExportTarget = "calmjs.webpack.export.js"
)

// Method selects how sources are collected from packages.
type Method string

const (
	MethodAll      Method = "all"
	MethodExplicit Method = "explicit"
	MethodNone     Method = "none"
)

// ParseMethod validates a collection method name. Empty means all.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case "":
		return MethodAll, nil
	case MethodAll, MethodExplicit, MethodNone:
		return m, nil
	default:
		return "", fmt.Errorf("unknown method %q: expected all, explicit or none", s)
	}
}

// ModuleRule is an entry of webpack's module.rules.
type ModuleRule struct {
	Test    string   `json:"test"`
	Loaders []string `json:"loaders"`
}

// Spec is the mutable record passed through every build stage.
type Spec struct {
	SourcePackageNames        []string
	CalmjsModuleRegistryNames []string

	WorkingDir   string
	BuildDir     string
	ExportTarget string

	// Modname to source path maps. Keys may carry loader chains.
	TranspileSourcepath map[string]string
	BundleSourcepath    map[string]string
	TestModulePaths     map[string]string

	// ExportModuleNames lists the modnames published through the
	// bootstrap module.
	ExportModuleNames []string

	// WebpackEntryPoint is the entry module; empty lets the toolchain
	// pick the bootstrap module.
	WebpackEntryPoint string
	// WebpackOutputLibrary is the UMD library name; empty disables it.
	WebpackOutputLibrary string

	WebpackExternals          map[string]External
	WebpackModuleRules        []ModuleRule
	ModnameLoaderMap          map[string][]string
	WebpackResolveLoaderAlias map[string]string
	// WebpackResolveAlias maps modnames to their staged files; set by
	// assemble.
	WebpackResolveAlias map[string]string

	CalmjsCompat      bool
	VerifyImports     bool
	GenerateSourceMap bool
	OptimizeMinimize  bool
	SingleTestBundle  bool

	WebpackBin    string
	WebpackTarget webpackcfg.Version

	WebpackConfigJS string
	ConfigJSFiles   []string
	WebpackConfig   *webpackcfg.Config

	// Populated by compile. Modpaths are what webpack resolves, targets
	// are the copied file locations relative to BuildDir.
	TranspiledModpaths map[string]string
	BundledModpaths    map[string]string
	TranspiledTargets  map[string]string
	BundledTargets     map[string]string

	// ArtifactPaths lists prebuilt artifacts whose modules are treated as
	// externals, used by test builds.
	ArtifactPaths []string

	extras map[string]interface{}
	advice map[Stage][]Advice
}

// New returns an empty spec with all maps allocated.
func New() *Spec {
	return &Spec{
		CalmjsModuleRegistryNames: []string{},
		TranspileSourcepath:       map[string]string{},
		BundleSourcepath:          map[string]string{},
		TestModulePaths:           map[string]string{},
		ExportModuleNames:         []string{},
		WebpackExternals:          map[string]External{},
		ModnameLoaderMap:          map[string][]string{},
		WebpackResolveLoaderAlias: map[string]string{},
		TranspiledModpaths:        map[string]string{},
		BundledModpaths:           map[string]string{},
		TranspiledTargets:         map[string]string{},
		BundledTargets:            map[string]string{},
		extras:                    map[string]interface{}{},
		advice:                    map[Stage][]Advice{},
	}
}

// Set stores an auxiliary value for stages outside the core fields.
func (s *Spec) Set(key string, value interface{}) {
	if s.extras == nil {
		s.extras = map[string]interface{}{}
	}
	s.extras[key] = value
}

func (s *Spec) Get(key string) (interface{}, bool) {
	v, ok := s.extras[key]
	return v, ok
}

// AddExportModuleName appends name unless it is already exported.
func (s *Spec) AddExportModuleName(name string) {
	for _, n := range s.ExportModuleNames {
		if n == name {
			return
		}
	}
	s.ExportModuleNames = append(s.ExportModuleNames, name)
}
