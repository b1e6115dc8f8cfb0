// Package config loads calmjs-webpack settings from a YAML file, .env
// files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/calmjs/calmjs-webpack/internal/buildspec"
	"github.com/calmjs/calmjs-webpack/internal/dist"
	"github.com/calmjs/calmjs-webpack/internal/loaderplugin"
	"github.com/calmjs/calmjs-webpack/internal/spec"
	"github.com/calmjs/calmjs-webpack/internal/toolchain"
	"github.com/calmjs/calmjs-webpack/internal/webpackcfg"
)

// Settings holds the build settings shared by every command
type Settings struct {
	WebpackBin     string `mapstructure:"webpack_bin"`
	NodePath       string `mapstructure:"node_path"`
	Manifest       string `mapstructure:"manifest"`
	WorkingDir     string `mapstructure:"working_dir"`
	BuildDir       string `mapstructure:"build_dir"`
	ExportTarget   string `mapstructure:"export_target"`
	LoaderRegistry string `mapstructure:"loader_registry"`

	SourceRegistryMethod string   `mapstructure:"source_registry_method"`
	SourcepathMethod     string   `mapstructure:"sourcepath_method"`
	BundlepathMethod     string   `mapstructure:"bundlepath_method"`
	SourceRegistries     []string `mapstructure:"source_registries"`

	CalmjsCompat      bool `mapstructure:"calmjs_compat"`
	VerifyImports     bool `mapstructure:"verify_imports"`
	GenerateSourceMap bool `mapstructure:"generate_source_map"`
	OptimizeMinimize  bool `mapstructure:"optimize_minimize"`
	SingleTestBundle  bool `mapstructure:"single_test_bundle"`

	WebpackTarget string `mapstructure:"webpack_target"`
	Debug         bool   `mapstructure:"debug"`
}

// ConfigName is the settings file name searched for without extension
const ConfigName = "calmjs-webpack"

// Load reads settings from configFile, or from calmjs-webpack.yaml in the
// usual locations when it is empty, then applies CALMJS_WEBPACK_
// environment variables.
func Load(configFile string) (*Settings, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
		}
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("CALMJS_WEBPACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &s, nil
}

// loadEnvFile loads environment variables from the first .env file found
func loadEnvFile() error {
	for _, location := range []string{".env", ".env.local"} {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Debug().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}
	return fmt.Errorf("no .env file found")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("webpack_bin", "")
	v.SetDefault("node_path", os.Getenv("NODE_PATH"))
	v.SetDefault("manifest", dist.DefaultManifest)
	v.SetDefault("working_dir", "")
	v.SetDefault("build_dir", "")
	v.SetDefault("export_target", "")
	v.SetDefault("loader_registry", loaderplugin.DefaultRegistryName)

	v.SetDefault("source_registry_method", string(spec.MethodAll))
	v.SetDefault("sourcepath_method", string(spec.MethodAll))
	v.SetDefault("bundlepath_method", string(spec.MethodAll))
	v.SetDefault("source_registries", []string{})

	v.SetDefault("calmjs_compat", true)
	v.SetDefault("verify_imports", true)
	v.SetDefault("generate_source_map", true)
	v.SetDefault("optimize_minimize", false)
	v.SetDefault("single_test_bundle", true)

	v.SetDefault("webpack_target", "")
	v.SetDefault("debug", false)
}

// Validate validates the settings
func (s *Settings) Validate() error {
	for key, value := range map[string]string{
		"source_registry_method": s.SourceRegistryMethod,
		"sourcepath_method":      s.SourcepathMethod,
		"bundlepath_method":      s.BundlepathMethod,
	} {
		if _, err := spec.ParseMethod(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if s.WebpackTarget != "" {
		if _, err := webpackcfg.ParseVersion(s.WebpackTarget); err != nil {
			return fmt.Errorf("webpack_target: %w", err)
		}
	}
	if s.Manifest == "" {
		return fmt.Errorf("manifest cannot be empty")
	}
	return nil
}

// SpecOptions converts the settings into options for buildspec.Create.
// Settings must be valid.
func (s *Settings) SpecOptions() []buildspec.Option {
	method := func(value string) spec.Method {
		m, _ := spec.ParseMethod(value)
		return m
	}
	opts := []buildspec.Option{
		buildspec.WithWorkingDir(s.WorkingDir),
		buildspec.WithBuildDir(s.BuildDir),
		buildspec.WithSourceRegistryMethod(method(s.SourceRegistryMethod)),
		buildspec.WithSourcepathMethod(method(s.SourcepathMethod)),
		buildspec.WithBundlepathMethod(method(s.BundlepathMethod)),
		buildspec.WithCalmjsCompat(s.CalmjsCompat),
		buildspec.WithVerifyImports(s.VerifyImports),
		buildspec.WithSourceMap(s.GenerateSourceMap),
		buildspec.WithOptimizeMinimize(s.OptimizeMinimize),
		buildspec.WithSingleTestBundle(s.SingleTestBundle),
		buildspec.WithWebpackBin(s.WebpackBin),
	}
	if s.ExportTarget != "" {
		opts = append(opts, buildspec.WithExportTarget(s.ExportTarget))
	}
	if len(s.SourceRegistries) > 0 {
		opts = append(opts, buildspec.WithSourceRegistries(s.SourceRegistries...))
	}
	if s.WebpackTarget != "" {
		if v, err := webpackcfg.ParseVersion(s.WebpackTarget); err == nil {
			opts = append(opts, buildspec.WithWebpackTarget(v))
		}
	}
	return opts
}

// ToolchainOptions returns the options for toolchain.New.
func (s *Settings) ToolchainOptions() []toolchain.Option {
	return []toolchain.Option{
		toolchain.WithNodePath(s.NodePath),
		toolchain.WithLoaderRegistry(loaderplugin.Lookup(s.LoaderRegistry)),
	}
}

// LoadMetadata reads the manifest, returning an empty one when the
// default manifest does not exist.
func (s *Settings) LoadMetadata() (dist.Metadata, error) {
	path := s.Manifest
	if s.WorkingDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(s.WorkingDir, path)
	}
	m, err := dist.LoadManifest(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && s.Manifest == dist.DefaultManifest {
			log.Warn().Str("manifest", path).Msg("no manifest found; no package metadata available")
			return dist.Empty(), nil
		}
		return nil, err
	}
	return m, nil
}
