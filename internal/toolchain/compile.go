package toolchain

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/calmjs/calmjs-webpack/internal/loaderplugin"
	"github.com/calmjs/calmjs-webpack/internal/spec"
)

// Compile stages every transpile and bundle source into the build
// directory and records the resulting modpaths, targets and exported
// names.
func (t *Toolchain) Compile(sp *spec.Spec) error {
	if err := os.MkdirAll(sp.BuildDir, 0o750); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	for _, modname := range sortedKeys(sp.TranspileSourcepath) {
		source := sp.TranspileSourcepath[modname]
		if t.handledByLoader(modname) {
			if err := t.compileLoader(sp, modname, source, sp.TranspiledModpaths, sp.TranspiledTargets); err != nil {
				return err
			}
			continue
		}
		if err := t.transpile(sp, modname, source); err != nil {
			return err
		}
	}

	for _, modname := range sortedKeys(sp.BundleSourcepath) {
		source := sp.BundleSourcepath[modname]
		if t.handledByLoader(modname) {
			if err := t.compileLoader(sp, modname, source, sp.BundledModpaths, sp.BundledTargets); err != nil {
				return err
			}
			continue
		}
		if err := t.bundle(sp, modname, source); err != nil {
			return err
		}
	}

	log.Debug().
		Int("transpiled", len(sp.TranspiledModpaths)).
		Int("bundled", len(sp.BundledModpaths)).
		Int("exported", len(sp.ExportModuleNames)).
		Msg("compiled sources")
	return nil
}

func (t *Toolchain) handledByLoader(modname string) bool {
	return strings.Contains(modname, "!") && t.Loaders != nil && t.Loaders.GetRecord(modname) != nil
}

// stripLoaders removes every loader prefix from a modname.
func stripLoaders(modname string) string {
	return modname[strings.LastIndex(modname, "!")+1:]
}

func (t *Toolchain) compileLoader(sp *spec.Spec, modname, source string, modpaths, targets map[string]string) error {
	handler := t.Loaders.GetRecord(modname)
	target := stripLoaders(modname)
	res, err := handler.Run(t, sp, modname, source, target, modname)
	if err != nil {
		return err
	}
	for k, v := range res.Modpaths {
		modpaths[k] = v
	}
	for k, v := range res.Targets {
		targets[k] = v
	}
	for _, name := range res.ExportModuleNames {
		sp.AddExportModuleName(name)
	}
	return nil
}

// targetName is where a plain module is written, relative to the build
// directory.
func targetName(sp *spec.Spec, modname, source string) string {
	if _, ok := sp.ModnameLoaderMap[modname]; ok {
		return modname
	}
	if ext := filepath.Ext(source); ext != "" && path.Ext(modname) == ext {
		return modname
	}
	return modname + ".js"
}

func (t *Toolchain) transpile(sp *spec.Spec, modname, source string) error {
	if strings.Contains(modname, "!") {
		log.Warn().Str("modname", modname).Msg("no loader handler for module; skipped")
		return nil
	}
	target := targetName(sp, modname, source)
	dst := filepath.Join(sp.BuildDir, filepath.FromSlash(target))

	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read %s for %s: %w", source, modname, err)
	}

	text := string(data)
	if _, resource := sp.ModnameLoaderMap[modname]; !resource && (sp.CalmjsCompat || sp.VerifyImports) {
		text, err = t.processRequires(sp, modname, source, text)
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	if err := os.WriteFile(dst, []byte(text), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}

	sp.TranspiledModpaths[modname] = modname
	sp.TranspiledTargets[modname] = target
	sp.AddExportModuleName(modname)
	return nil
}

// processRequires rewrites dynamic requires when calmjs compatibility is
// enabled and only reports them otherwise.
func (t *Toolchain) processRequires(sp *spec.Spec, modname, source, text string) (string, error) {
	rewritten, calls, err := RewriteDynamicRequires(source, text)
	if err != nil {
		// not parseable as ES5; webpack reports its own error
		log.Warn().Err(err).Str("modname", modname).Msg("unable to scan module for dynamic require calls")
		return text, nil
	}
	for _, call := range calls {
		event := log.Warn().Str("modname", modname).Str("source", source).Int("line", call.Line).Int("column", call.Column)
		if sp.CalmjsCompat {
			event.Msg("dynamic require rewritten to resolve through the calmjs module table")
		} else {
			event.Msg("dynamic require cannot be resolved by webpack")
		}
	}
	if !sp.CalmjsCompat {
		return text, nil
	}
	return rewritten, nil
}

func (t *Toolchain) bundle(sp *spec.Spec, modname, source string) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("bundle source for %s: %w", modname, err)
	}

	var target string
	if info.IsDir() {
		target = modname
		if err := copyTree(source, filepath.Join(sp.BuildDir, filepath.FromSlash(target))); err != nil {
			return fmt.Errorf("failed to copy %s: %w", source, err)
		}
	} else {
		target = targetName(sp, modname, source)
		if err := loaderplugin.CopyFile(source, filepath.Join(sp.BuildDir, filepath.FromSlash(target))); err != nil {
			return fmt.Errorf("failed to copy %s: %w", source, err)
		}
	}

	sp.BundledModpaths[modname] = modname
	sp.BundledTargets[modname] = target
	sp.AddExportModuleName(modname)
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		return loaderplugin.CopyFile(p, target)
	})
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
