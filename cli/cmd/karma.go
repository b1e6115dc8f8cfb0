package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/calmjs/calmjs-webpack/cli/util"
	"github.com/calmjs/calmjs-webpack/internal/testrunner"
	"github.com/calmjs/calmjs-webpack/internal/toolchain"
)

var (
	karmaFlags       specFlags
	karmaTestModules []string
	karmaArtifacts   []string
	karmaConfigIn    string
	karmaConfigOut   string
)

var karmaCmd = &cobra.Command{
	Use:   "karma [package...]",
	Short: "Prepare a karma test build",
	Long: `Compile the packages together with their test modules and print a
karma configuration that serves them through karma-webpack. Modules
provided by prebuilt artifacts are treated as externals.

The build directory is kept so karma can serve it.

Examples:
  calmjs-webpack karma example.package --test-module tests/main=src/tests/test_main.js
  calmjs-webpack karma example.package --artifact example.package.js -o yaml`,
	RunE: runKarma,
}

func init() {
	karmaFlags.register(karmaCmd)
	fl := karmaCmd.Flags()
	fl.StringArrayVar(&karmaTestModules, "test-module", nil, "test module as modname=path (repeatable)")
	fl.StringArrayVar(&karmaArtifacts, "artifact", nil, "prebuilt artifact to test against (repeatable)")
	fl.StringVar(&karmaConfigIn, "karma-config", "", "JSON or YAML karma configuration to extend")
	fl.StringVar(&karmaConfigOut, "write", "", "write the karma configuration to this file instead of stdout")
}

func runKarma(cmd *cobra.Command, args []string) error {
	tests, err := util.ParseAssignments(karmaTestModules)
	if err != nil {
		return fmt.Errorf("--test-module: %w", err)
	}
	karma, err := readKarmaConfig(karmaConfigIn)
	if err != nil {
		return err
	}

	sp, _, err := karmaFlags.newSpec(cmd, args, true)
	if err != nil {
		return err
	}
	for modname, path := range tests {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		sp.TestModulePaths[modname] = abs
	}
	for _, artifact := range karmaArtifacts {
		abs, err := filepath.Abs(artifact)
		if err != nil {
			return err
		}
		sp.ArtifactPaths = append(sp.ArtifactPaths, abs)
	}

	tc := toolchain.New(settings.ToolchainOptions()...)
	if err := testrunner.ApplyTestBuild(cmd.Context(), tc, sp, karma); err != nil {
		return err
	}

	if karmaConfigOut == "" {
		return GetFormatter().Print(map[string]interface{}(karma))
	}
	data, err := json.MarshalIndent(karma, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(karmaConfigOut, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write karma configuration: %w", err)
	}
	log.Info().Str("path", karmaConfigOut).Str("build_dir", sp.BuildDir).Msg("wrote karma configuration")
	return nil
}

func readKarmaConfig(path string) (testrunner.Karma, error) {
	karma := testrunner.Karma{}
	if path == "" {
		return karma, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read karma configuration: %w", err)
	}
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &karma)
	} else {
		err = yaml.Unmarshal(data, &karma)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse karma configuration: %w", err)
	}
	return karma, nil
}
