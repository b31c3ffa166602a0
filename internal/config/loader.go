package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".clangbind"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for clangbind settings.
const envPrefix = "CLANGBIND"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// New returns a viper instance with defaults, env binding, and the config
// file search path applied. The CLI binds its flags to it before Load.
func New(configPath string) *viper.Viper {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	return viperCfg
}

// Load reads the config file (a missing file is not an error when searching),
// unmarshals, and validates.
func Load(viperCfg *viper.Viper) (*Config, error) {
	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
func LoadConfig(configPath string) (*Config, error) {
	return Load(New(configPath))
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("module", "")
	viperCfg.SetDefault("dialect", DefaultDialect)
	viperCfg.SetDefault("frontend", DefaultFrontend)
	viperCfg.SetDefault("project_root", "")
	viperCfg.SetDefault("build_dir", "")
	viperCfg.SetDefault("compile_commands", "")
	viperCfg.SetDefault("out_dir", DefaultOutDir)
	viperCfg.SetDefault("targets", []string{})
	viperCfg.SetDefault("select_files", []string{})
	viperCfg.SetDefault("ignore_files", []string{})
	viperCfg.SetDefault("allow_inclusions_from_other_targets", DefaultAllowInclusionsFromOtherTargets)

	viperCfg.SetDefault("clang.path", DefaultClangPath)
	viperCfg.SetDefault("clang.extra_args", []string{})

	viperCfg.SetDefault("pipeline.workers", DefaultPipelineWorkers)
	viperCfg.SetDefault("pipeline.timeout", DefaultPipelineTimeout)

	viperCfg.SetDefault("generate.unsupported", DefaultGenerateUnsupported)
	viperCfg.SetDefault("generate.namespaces", DefaultGenerateNamespaces)
	viperCfg.SetDefault("generate.access", DefaultGenerateAccess)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.json", DefaultLoggingJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultTelemetryOTLPInsecure)
	viperCfg.SetDefault("telemetry.metrics_textfile", "")
}
