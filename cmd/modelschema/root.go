package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spiral/models"
	"github.com/spiral/models/schemadsl"
)

// globalOptions are the persistent flags shared by every subcommand
type globalOptions struct {
	configFile string
	sources    []string
	traits     []string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "modelschema",
		Short: "Inspect schema-driven entity declarations",
		Long: `modelschema loads entity declarations and reports the schemas they compile to.

Sources are YAML files (.yaml, .yml), directories of YAML files, or files in the
declaration language (any other extension).

Examples:
  modelschema validate --config models.yaml
  modelschema describe user --source entities.models
  modelschema fill user '{"name":"ann"}' --source entities.yaml`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringSliceVarP(&opts.sources, "source", "s", nil, "declaration file or directory (repeatable)")
	rootCmd.PersistentFlags().StringSliceVar(&opts.traits, "trait", nil, "trait name to register without hooks (repeatable)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newDescribeCmd(opts),
		newValidateCmd(opts),
		newFillCmd(opts),
	)
	return rootCmd
}

// loadRegistry builds a registry from the config file and the --source flags
func loadRegistry(cmd *cobra.Command, opts *globalOptions) (*models.Registry, error) {
	var config models.Config
	if opts.configFile != "" {
		loaded, err := models.LoadConfig(opts.configFile)
		if err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
		config = loaded
	}
	if opts.logLevel != "" {
		config.LogLevel = opts.logLevel
	}

	logger := newLogger(cmd, config.LogLevel)
	registry := models.NewRegistry(models.WithConfig(config), models.WithLogger(logger))

	for _, name := range opts.traits {
		if err := registry.RegisterTrait(models.Trait{Name: name}); err != nil {
			return nil, err
		}
	}

	sources := append(append([]string(nil), config.Sources...), opts.sources...)
	if len(sources) == 0 {
		return nil, fmt.Errorf("no declaration sources: use --config or --source")
	}

	for _, source := range sources {
		if err := loadSource(registry, source); err != nil {
			return nil, err
		}
	}

	logger.Info().Int("entities", len(registry.Names())).Msg("declarations loaded")
	return registry, nil
}

func loadSource(registry *models.Registry, source string) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("source not found: %s", source)
	}
	if info.IsDir() || models.IsYAML(source) {
		return registry.Load(source)
	}
	return schemadsl.Load(registry, source)
}

func newLogger(cmd *cobra.Command, levelStr string) zerolog.Logger {
	if levelStr == "" {
		levelStr = "warn"
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.WarnLevel
	}

	output := zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
