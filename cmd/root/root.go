// Package root contains the root command for the application
package root

import (
	"context"
	"fmt"
	"os"
	"sync"

	"smart-budget-planner/internal/config"
	"smart-budget-planner/internal/container"
	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/validation"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to all commands
type CommonFlags struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
	Format     string
}

var (
	// Log is the shared logger instance for commands
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "budget-planner",
		Short: "Forecast whether this month's spending will end over or under budget.",
		Long: `budget-planner trains a regression-tree ensemble on a user's trailing year of
transactions and projects the current month's total against a stated budget.

It can serve the forecast over HTTP, run it once from the command line,
import CSV and CAMT.053 history files, and list stored transactions.`,
		SilenceUsage:      true,
		PersistentPreRunE: initialize,
	}

	// SharedFlags holds the persistent flags
	SharedFlags = CommonFlags{}

	mu        sync.Mutex
	appConfig *config.Config
	appCtr    *container.Container
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.ConfigFile, "config", "c", "", "Config file (default searches $HOME/.budget-planner, .budget-planner and .)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Log level override (trace, debug, info, warn, error)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogFormat, "log-format", "", "Log format override (text or json)")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Format, "format", "f", "text", "Output format (text, json, yaml, csv where supported)")
}

func initialize(cmd *cobra.Command, args []string) error {
	if _, err := config.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load(SharedFlags.ConfigFile)
	if err != nil {
		return err
	}
	if SharedFlags.LogLevel != "" {
		cfg.Log.Level = SharedFlags.LogLevel
	}
	if SharedFlags.LogFormat != "" {
		cfg.Log.Format = SharedFlags.LogFormat
	}

	mu.Lock()
	defer mu.Unlock()
	appConfig = cfg
	Log = logging.NewLogrusAdapterWithOutput(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if SharedFlags.ConfigFile != "" {
		if info, err := os.Stat(SharedFlags.ConfigFile); err == nil {
			if err := validation.IsValidFilePermissions(info.Mode()); err != nil {
				Log.Warn("Config file is readable by other users",
					logging.Field{Key: logging.FieldFile, Value: SharedFlags.ConfigFile},
					logging.Field{Key: logging.FieldError, Value: err.Error()})
			}
		}
	}
	Log.Debug("Configuration loaded",
		logging.Field{Key: "store_backend", Value: cfg.Store.Backend},
		logging.Field{Key: "auth_backend", Value: cfg.Auth.Backend})
	return nil
}

// Execute runs the root command and releases the container afterwards,
// including when the command failed.
func Execute() error {
	defer closeContainer()
	return Cmd.Execute()
}

// GetConfig returns the configuration loaded for the running command.
func GetConfig() *config.Config {
	mu.Lock()
	defer mu.Unlock()
	return appConfig
}

// GetContainer builds the dependency container on first use.
func GetContainer(ctx context.Context) (*container.Container, error) {
	mu.Lock()
	defer mu.Unlock()
	if appCtr != nil {
		return appCtr, nil
	}
	if appConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	c, err := container.NewContainer(ctx, appConfig, Log)
	if err != nil {
		return nil, err
	}
	appCtr = c
	return c, nil
}

func closeContainer() {
	mu.Lock()
	defer mu.Unlock()
	if appCtr == nil {
		return
	}
	if err := appCtr.Close(); err != nil {
		Log.WithError(err).Warn("Failed to close resources")
	}
	appCtr = nil
}
