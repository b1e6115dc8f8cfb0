package toolchain

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/calmjs/calmjs-webpack/internal/loaderplugin"
	"github.com/calmjs/calmjs-webpack/internal/spec"
	"github.com/calmjs/calmjs-webpack/internal/webpackcfg"
)

// Assemble generates the bootstrap modules when the default entry point is
// used, then writes the webpack configuration module.
func (t *Toolchain) Assemble(sp *spec.Spec) error {
	if sp.WebpackConfigJS == "" {
		return &ConfigError{Key: "webpack_config_js", Msg: "spec was not prepared"}
	}
	ext, configured := sp.WebpackExternals[spec.DefaultExport]
	chained := configured && ext.Complete()
	if configured && sp.WebpackOutputLibrary == "" {
		return &ConfigError{Key: "webpack_output_library", Msg: "must be set when the " + spec.DefaultExport + " external is configured"}
	}
	if sp.WebpackEntryPoint == "" {
		return &ConfigError{Key: "webpack_entry_point", Msg: "must be specified"}
	}

	alias := t.resolveAlias(sp)
	names := append([]string(nil), sp.ExportModuleNames...)
	sort.Strings(names)

	var entry string
	if sp.WebpackEntryPoint == spec.DefaultExport {
		if chained {
			if sp.WebpackOutputLibrary != spec.DefaultExport {
				log.Warn().Str("library", sp.WebpackOutputLibrary).
					Msg("webpack_output_library is not " + spec.DefaultExport + "; the module table is exported under the chosen library name")
			}
			loader := filepath.Join(sp.BuildDir, LoaderModule+".js")
			if err := writeModule(loader, loaderModuleSource(names)); err != nil {
				return err
			}
			alias[LoaderModule] = loader
		} else {
			log.Warn().Str("export_target", sp.ExportTarget).
				Msg("no complete " + spec.DefaultExport + " external; the artifact will not participate in cross-bundle calmjs chaining")
		}
		entry = filepath.Join(sp.BuildDir, BootstrapModule+".js")
		if err := writeModule(entry, bootstrapModuleSource(chained, names)); err != nil {
			return err
		}
	} else if target, ok := alias[sp.WebpackEntryPoint]; ok {
		entry = target
	} else {
		entry = sp.WebpackEntryPoint
	}
	sp.WebpackResolveAlias = alias

	loaderplugin.UpdateRules(sp, alias)
	cfg, err := t.config(sp, entry, alias)
	if err != nil {
		return err
	}
	text, err := cfg.Module()
	if err != nil {
		return fmt.Errorf("failed to render webpack config: %w", err)
	}
	if err := VerifySyntax(sp.WebpackConfigJS, text); err != nil {
		return err
	}
	if err := os.WriteFile(sp.WebpackConfigJS, []byte(text), 0o600); err != nil {
		return fmt.Errorf("failed to write webpack config: %w", err)
	}
	sp.WebpackConfig = cfg
	sp.ConfigJSFiles = append(sp.ConfigJSFiles, sp.WebpackConfigJS)
	log.Info().Str("config", sp.WebpackConfigJS).Int("modules", len(names)).Msg("wrote webpack config")

	if sp.VerifyImports {
		t.verifyImports(sp, alias)
	}
	return nil
}

// resolveAlias maps every staged modname to its file in the build
// directory. Loader-prefixed modnames are left to the loader rules.
func (t *Toolchain) resolveAlias(sp *spec.Spec) map[string]string {
	alias := map[string]string{}
	for _, targets := range []map[string]string{sp.BundledTargets, sp.TranspiledTargets} {
		for modname, target := range targets {
			if strings.Contains(modname, "!") {
				continue
			}
			alias[modname] = filepath.Join(sp.BuildDir, filepath.FromSlash(target))
		}
	}
	return alias
}

func (t *Toolchain) config(sp *spec.Spec, entry string, alias map[string]string) (*webpackcfg.Config, error) {
	exportDir, exportFile := filepath.Split(sp.ExportTarget)
	output := map[string]interface{}{
		"path":           filepath.Clean(exportDir),
		"filename":       exportFile,
		"libraryTarget":  "umd",
		"umdNamedDefine": true,
	}
	if sp.WebpackOutputLibrary != "" {
		output["library"] = sp.WebpackOutputLibrary
	}

	modules := t.NodeModulesPaths(sp)
	if modules == nil {
		modules = []string{}
	}
	rules := sp.WebpackModuleRules
	if rules == nil {
		rules = []spec.ModuleRule{}
	}

	cfg := webpackcfg.New()
	values := []struct {
		key   string
		value interface{}
	}{
		{webpackcfg.TargetKey, sp.WebpackTarget},
		{"mode", "none"},
		{"context", sp.WorkingDir},
		{"entry", entry},
		{"output", output},
		{"resolve", map[string]interface{}{"alias": alias, "modules": modules}},
		{"resolveLoader", map[string]interface{}{"alias": sp.WebpackResolveLoaderAlias, "modules": modules}},
		{"externals", sp.WebpackExternals},
		{"module", map[string]interface{}{"rules": rules}},
	}
	for _, v := range values {
		if err := cfg.Set(v.key, v.value); err != nil {
			return nil, err
		}
	}
	if sp.GenerateSourceMap {
		if err := cfg.Set("devtool", "source-map"); err != nil {
			return nil, err
		}
	}
	if sp.OptimizeMinimize {
		if err := cfg.Set("optimization", map[string]interface{}{"minimize": true}); err != nil {
			return nil, err
		}
	}
	cfg.Plugins()
	return cfg, nil
}

func writeModule(path, source string) error {
	if err := VerifySyntax(path, source); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	log.Debug().Str("path", path).Msg("generated " + strings.TrimSuffix(filepath.Base(path), ".js"))
	return nil
}
