package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/calmjs/calmjs-webpack/internal/spec"
)

// inheritedEnv lists the variables passed through to webpack.
var inheritedEnv = []string{
	"PATH", "PATHEXT", "HOME", "USERPROFILE", "APPDATA", "LOCALAPPDATA",
	"SYSTEMROOT", "COMSPEC", "TEMP", "TMP", "TMPDIR", "LANG", "LC_ALL", "TERM",
}

// Link runs webpack against the generated configuration.
func (t *Toolchain) Link(ctx context.Context, sp *spec.Spec) error {
	if sp.WebpackBin == "" {
		return &ConfigError{Key: "webpack_bin", Msg: "spec was not prepared"}
	}

	nodePaths := t.NodeModulesPaths(sp)
	if len(nodePaths) == 0 {
		log.Warn().Msg("no node_modules directories found; NODE_PATH is empty")
	}

	args := []string{"--display-modules", "--display-reasons", "--config", sp.WebpackConfigJS}
	cmd := exec.CommandContext(ctx, sp.WebpackBin, args...) //nolint:gosec // binary located by Prepare
	cmd.Dir = sp.WorkingDir
	cmd.Env = append(keepEnvVars(os.Environ(), inheritedEnv...),
		"NODE_PATH="+strings.Join(nodePaths, string(os.PathListSeparator)),
		"FORCE_COLOR=1",
	)
	cmd.Stdout = t.Stdout
	cmd.Stderr = t.Stderr

	log.Info().Str("webpack_bin", sp.WebpackBin).Strs("args", args).Msg("running webpack")
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Binary: sp.WebpackBin, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("failed to run %s: %w", sp.WebpackBin, err)
	}

	if _, err := os.Stat(sp.ExportTarget); err != nil {
		log.Warn().Str("export_target", sp.ExportTarget).Msg("webpack finished but the export target was not written")
	}
	return nil
}

// keepEnvVars returns the entries of env whose names are listed.
func keepEnvVars(env []string, names ...string) []string {
	result := make([]string, 0, len(names))
	for _, e := range env {
		key, _, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		for _, name := range names {
			if strings.EqualFold(key, name) {
				result = append(result, e)
				break
			}
		}
	}
	return result
}
