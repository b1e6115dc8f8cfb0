package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/calmjs/calmjs-webpack/cli/output"
	"github.com/calmjs/calmjs-webpack/internal/spec"
	"github.com/calmjs/calmjs-webpack/internal/toolchain"
)

var buildFlags specFlags

var buildCmd = &cobra.Command{
	Use:   "build [package...]",
	Short: "Build a webpack artifact for packages",
	Long: `Collect the modules declared by the packages and their dependencies,
generate the webpack configuration and run webpack to write the artifact.

Examples:
  calmjs-webpack build example.package
  calmjs-webpack build example.package --sourcepath-method explicit
  calmjs-webpack build example.package --calmjs-compat=false --export-target dist/app.js`,
	RunE: runBuild,
}

func init() {
	buildFlags.register(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	sp, cleanup, err := buildFlags.newSpec(cmd, args, false)
	if err != nil {
		return err
	}
	defer cleanup()

	tc := toolchain.New(append(settings.ToolchainOptions(), toolchain.WithOutput(cmd.ErrOrStderr(), cmd.ErrOrStderr()))...)
	if err := tc.Run(cmd.Context(), sp); err != nil {
		return err
	}
	return GetFormatter().PrintTable(buildSummary(sp))
}

func buildSummary(sp *spec.Spec) output.TableData {
	return output.TableData{
		Headers: []string{"Key", "Value"},
		Rows: [][]string{
			{"export_target", sp.ExportTarget},
			{"webpack_config", sp.WebpackConfigJS},
			{"webpack_target", sp.WebpackTarget.String()},
			{"modules", strconv.Itoa(len(sp.ExportModuleNames))},
			{"externals", strconv.Itoa(len(sp.WebpackExternals))},
		},
	}
}
