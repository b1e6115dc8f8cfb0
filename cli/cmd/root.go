// Package cmd provides the Cobra commands for the calmjs-webpack CLI.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/calmjs/calmjs-webpack/cli/output"
	"github.com/calmjs/calmjs-webpack/cli/util"
	"github.com/calmjs/calmjs-webpack/internal/config"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	cfgFile   string
	outputFmt string
	noHeaders bool
	quiet     bool
	debug     bool

	// Shared across commands
	settings  *config.Settings
	formatter *output.Formatter
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "calmjs-webpack",
	Short: "Build webpack artifacts from calmjs package metadata",
	Long: `calmjs-webpack generates webpack configurations for the JavaScript
modules declared by packages in a calmjs manifest and runs webpack to
produce UMD artifacts that share a module table under __calmjs__.

Get started:
  calmjs-webpack build example.package    Build example.package.js
  calmjs-webpack probe example.package.js List the modules an artifact exports
  calmjs-webpack --help                   Show available commands`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "completion" {
			return nil
		}
		return initialize()
	},
}

// Execute runs the CLI until it finishes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./calmjs-webpack.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"hide table headers")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"minimal output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(karmaCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func initialize() error {
	setupLogging(debug)

	var err error
	settings, err = config.Load(cfgFile)
	if err != nil {
		return err
	}
	if settings.Debug && !debug {
		setupLogging(true)
	}

	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	formatter = output.NewFormatter(format, noHeaders, quiet)
	return nil
}

func setupLogging(debugEnabled bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: !util.IsTerminal(os.Stderr),
	})
	switch {
	case debugEnabled:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case quiet:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// GetFormatter returns the output formatter (for use by subcommands)
func GetFormatter() *output.Formatter {
	if formatter == nil {
		format, _ := output.ParseFormat(outputFmt)
		formatter = output.NewFormatter(format, noHeaders, quiet)
	}
	return formatter
}
