// Package analyze estimates the composition of a webpack artifact by
// bundling the assembled build directory with esbuild and reading its
// metafile.
package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/calmjs/calmjs-webpack/internal/spec"
)

// EntryName is shown for the entry module.
const EntryName = "<entry>"

// Analyzer bundles assembled specs.
type Analyzer struct {
	nodePaths []string
}

// NewAnalyzer returns an analyzer resolving bare imports from nodePaths.
func NewAnalyzer(nodePaths []string) *Analyzer {
	return &Analyzer{nodePaths: nodePaths}
}

// Analyze bundles the entry module of an assembled spec. Externals,
// loader-processed resources and unaliased loader requests are left out of
// the bundle and reported as external imports.
func (a *Analyzer) Analyze(ctx context.Context, sp *spec.Spec) (*Result, error) {
	if sp.WebpackConfig == nil {
		return nil, errors.New("spec was not assembled")
	}
	v, _ := sp.WebpackConfig.Get("entry")
	entry, ok := v.(string)
	if !ok || entry == "" {
		return nil, errors.New("assembled config has no entry")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := api.Build(api.BuildOptions{
		EntryPoints:   []string{entry},
		Bundle:        true,
		Write:         false,
		Metafile:      true,
		Format:        api.FormatCommonJS,
		Platform:      api.PlatformBrowser,
		Target:        api.ESNext,
		AbsWorkingDir: sp.WorkingDir,
		NodePaths:     a.nodePaths,
		LogLevel:      api.LogLevelSilent,
		Loader: map[string]api.Loader{
			".json": api.LoaderJSON,
			".html": api.LoaderText,
			".txt":  api.LoaderText,
			".css":  api.LoaderText,
		},
		Plugins: []api.Plugin{resolvePlugin(sp)},
	})

	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return nil, fmt.Errorf("bundle analysis failed: %s", strings.Join(msgs, "; "))
	}

	var meta metafile
	if err := json.Unmarshal([]byte(result.Metafile), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}
	res := analyzeMetafile(&meta, sp, entry)
	for _, w := range result.Warnings {
		res.Warnings = append(res.Warnings, w.Text)
	}
	log.Debug().Str("entry", entry).Int("bytes", res.TotalBytes).Int("modules", len(res.Modules)).Msg("analyzed bundle")
	return res, nil
}

// resolvePlugin resolves modnames the way the generated config does.
func resolvePlugin(sp *spec.Spec) api.Plugin {
	return api.Plugin{
		Name: "calmjs-resolve",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if args.Kind == api.ResolveEntryPoint {
						return api.OnResolveResult{}, nil
					}
					name := args.Path
					if _, ok := sp.WebpackExternals[name]; ok {
						return api.OnResolveResult{Path: name, External: true}, nil
					}
					if strings.Contains(name, "!") {
						return api.OnResolveResult{Path: name, External: true}, nil
					}
					if _, ok := sp.ModnameLoaderMap[name]; ok {
						return api.OnResolveResult{Path: name, External: true}, nil
					}
					if target, ok := sp.WebpackResolveAlias[name]; ok {
						return api.OnResolveResult{Path: target}, nil
					}
					return api.OnResolveResult{}, nil
				})
		},
	}
}

func analyzeMetafile(meta *metafile, sp *spec.Spec, entry string) *Result {
	res := &Result{Artifact: sp.ExportTarget, ExternalImports: []string{}}

	modnames := make(map[string]string, len(sp.WebpackResolveAlias))
	for modname, target := range sp.WebpackResolveAlias {
		if strings.HasPrefix(modname, "./") {
			continue
		}
		if prev, ok := modnames[target]; !ok || modname < prev {
			modnames[target] = modname
		}
	}

	// a single entry point produces a single output
	for _, output := range meta.Outputs {
		res.TotalBytes = output.Bytes

		seen := map[string]bool{}
		for _, imp := range output.Imports {
			if imp.External && !seen[imp.Path] {
				seen[imp.Path] = true
				res.ExternalImports = append(res.ExternalImports, imp.Path)
			}
		}

		for inputPath, contrib := range output.Inputs {
			input, ok := meta.Inputs[inputPath]
			if !ok {
				continue
			}
			percentage := 0.0
			if res.TotalBytes > 0 {
				percentage = float64(contrib.BytesInOutput) / float64(res.TotalBytes) * 100
			}
			res.Modules = append(res.Modules, Module{
				Modname:       displayName(inputPath, sp, entry, modnames),
				Bytes:         input.Bytes,
				BytesInOutput: contrib.BytesInOutput,
				Percentage:    percentage,
				ImportCount:   len(input.Imports),
			})
		}
		break
	}

	sort.Slice(res.Modules, func(i, j int) bool {
		if res.Modules[i].BytesInOutput != res.Modules[j].BytesInOutput {
			return res.Modules[i].BytesInOutput > res.Modules[j].BytesInOutput
		}
		return res.Modules[i].Modname < res.Modules[j].Modname
	})
	sort.Strings(res.ExternalImports)
	return res
}

func displayName(inputPath string, sp *spec.Spec, entry string, modnames map[string]string) string {
	abs := inputPath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(sp.WorkingDir, filepath.FromSlash(inputPath))
	}
	if abs == entry {
		return EntryName
	}
	if modname, ok := modnames[abs]; ok {
		return modname
	}
	if sp.BuildDir != "" {
		if rel, err := filepath.Rel(sp.BuildDir, abs); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return inputPath
}
