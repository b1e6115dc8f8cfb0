package cmd

import (
	"github.com/spf13/cobra"

	"github.com/calmjs/calmjs-webpack/cli/output"
	"github.com/calmjs/calmjs-webpack/internal/analyze"
	"github.com/calmjs/calmjs-webpack/internal/toolchain"
)

var (
	analyzeFlags specFlags
	analyzeAll   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [package...]",
	Short: "Estimate what an artifact would contain",
	Long: `Assemble the build for the packages without running webpack, then
bundle it with esbuild to report the size each module contributes and the
imports left to other artifacts.`,
	RunE: runAnalyze,
}

func init() {
	analyzeFlags.register(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeAll, "all", false, "list every module instead of the largest ones")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	sp, cleanup, err := analyzeFlags.newSpec(cmd, args, false)
	if err != nil {
		return err
	}
	defer cleanup()

	tc := toolchain.New(settings.ToolchainOptions()...)
	if err := tc.Build(cmd.Context(), sp); err != nil {
		return err
	}
	res, err := analyze.NewAnalyzer(tc.NodeModulesPaths(sp)).Analyze(cmd.Context(), sp)
	if err != nil {
		return err
	}

	f := GetFormatter()
	if f.Format != output.FormatTable {
		return f.Print(res)
	}
	if !f.Quiet {
		analyze.Display(f.Writer, res, analyzeAll)
	}
	return nil
}
