package toolchain

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/calmjs/calmjs-webpack/internal/spec"
	"github.com/calmjs/calmjs-webpack/internal/webpackcfg"
)

// Prepare validates the spec, locates webpack and derives the config
// location and target version.
func (t *Toolchain) Prepare(sp *spec.Spec) error {
	return t.prepare(sp, true)
}

func (t *Toolchain) prepare(sp *spec.Spec, locate bool) error {
	if locate {
		bin, err := t.LocateBinary(sp)
		if err != nil {
			return err
		}
		sp.WebpackBin = bin
	}

	if sp.BuildDir == "" {
		return &ConfigError{Key: "build_dir", Msg: "must be specified"}
	}
	if sp.ExportTarget == "" {
		return &ConfigError{Key: "export_target", Msg: "must be specified"}
	}
	exportTarget, err := filepath.Abs(sp.ExportTarget)
	if err != nil {
		return &ConfigError{Key: "export_target", Msg: err.Error()}
	}
	sp.ExportTarget = exportTarget
	if info, err := os.Stat(filepath.Dir(exportTarget)); err != nil || !info.IsDir() {
		return &ConfigError{Key: "export_target", Msg: "directory " + filepath.Dir(exportTarget) + " does not exist"}
	}

	sp.WebpackConfigJS = filepath.Join(sp.BuildDir, ConfigFile)
	if sp.WebpackConfigJS == exportTarget {
		return &ConfigError{Key: "export_target", Msg: "must not be the generated webpack config file"}
	}

	if sp.WebpackTarget.IsZero() {
		sp.WebpackTarget = t.detectVersion(sp)
	}
	log.Debug().Str("webpack_bin", sp.WebpackBin).Stringer("webpack_target", sp.WebpackTarget).Msg("prepared webpack build")
	return nil
}

// LocateBinary returns the webpack binary configured in the spec, or the
// first one found on PATH, in node_modules/.bin or in the fallback paths.
func (t *Toolchain) LocateBinary(sp *spec.Spec) (string, error) {
	if sp.WebpackBin != "" {
		if info, err := os.Stat(sp.WebpackBin); err != nil || info.IsDir() {
			return "", &RuntimeLocationError{Binary: sp.WebpackBin, Searched: []string{sp.WebpackBin}}
		}
		return sp.WebpackBin, nil
	}

	var searched []string
	if path, err := exec.LookPath(t.BinaryName); err == nil {
		return path, nil
	}
	searched = append(searched, "PATH")

	var dirs []string
	for _, dir := range t.NodeModulesPaths(sp) {
		dirs = append(dirs, filepath.Join(dir, ".bin"))
	}
	dirs = append(dirs, t.FallbackPaths...)
	for _, dir := range dirs {
		candidate := filepath.Join(dir, t.BinaryName)
		searched = append(searched, candidate)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", &RuntimeLocationError{Binary: t.BinaryName, Searched: searched}
}

// detectVersion reads the version of the webpack package reachable from
// the spec, falling back to the latest supported version.
func (t *Toolchain) detectVersion(sp *spec.Spec) webpackcfg.Version {
	for _, dir := range t.NodeModulesPaths(sp) {
		path := filepath.Join(dir, "webpack", "package.json")
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to read webpack package.json")
			continue
		}
		var pkg struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(data, &pkg); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("invalid webpack package.json")
			continue
		}
		v, err := webpackcfg.ParseVersion(pkg.Version)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("unrecognized webpack version")
			continue
		}
		return v
	}
	log.Debug().Stringer("webpack_target", webpackcfg.Latest).Msg("webpack version not detected; assuming latest")
	return webpackcfg.Latest
}
