package cmd

import (
	"fmt"

	"github.com/solatis/querykeeper/internal/core/config"
	"github.com/solatis/querykeeper/internal/core/logging"
	"github.com/solatis/querykeeper/internal/registry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const Version = "0.1.0"

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "querykeeper",
		Short:         "QueryKeeper rule-tree query builder backend",
		Long:          `QueryKeeper stores, validates and annotates nested AND/OR rule trees built by the query editor.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("db-url", "", "database connection URL (sqlite://path or postgres://...)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, text)")
	flags.String("fields", "", "field configuration file (YAML or JSON); built-in fields when empty")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newPruneCmd(),
		newValidateCmd(),
		newAnnotateCmd(),
		newOperatorsCmd(),
		newSaveCmd(),
		newLoadCmd(),
	)
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}

// runtime is what every subcommand needs after flag parsing.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
}

// loadRuntime resolves configuration for cmd and builds its logger.
func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	configFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger}, nil
}

// registry loads the configured field registry, or the built-in one.
func (rt *runtime) registry() (*registry.Registry, error) {
	reg, err := registry.Load(rt.cfg.FieldsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load fields: %w", err)
	}
	return reg, nil
}
