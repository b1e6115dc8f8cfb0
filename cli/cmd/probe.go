package cmd

import (
	"github.com/spf13/cobra"

	"github.com/calmjs/calmjs-webpack/cli/output"
	"github.com/calmjs/calmjs-webpack/cli/util"
	"github.com/calmjs/calmjs-webpack/internal/interrogate"
)

var probeCmd = &cobra.Command{
	Use:   "probe <artifact.js>...",
	Short: "List the modules an artifact exports",
	Long: `Read artifacts built with calmjs compatibility and list the module
names they publish under __calmjs__.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	f := GetFormatter()
	if len(args) == 1 {
		names, err := interrogate.ProbeFile(args[0])
		if err != nil {
			return err
		}
		return f.PrintList(names)
	}

	probed := make(map[string][]string, len(args))
	data := output.TableData{Headers: []string{"Artifact", "Module"}}
	for _, artifact := range args {
		names, err := interrogate.ProbeFile(artifact)
		if err != nil {
			return err
		}
		probed[artifact] = names
		for _, name := range names {
			data.Rows = append(data.Rows, []string{util.TruncateString(artifact, 60), name})
		}
	}
	if f.Format != output.FormatTable {
		return f.Print(probed)
	}
	return f.PrintTable(data)
}
