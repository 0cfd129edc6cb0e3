package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/layerprompt/layerprompt/internal/appid"
	"github.com/layerprompt/layerprompt/internal/config"
	errwrap "github.com/layerprompt/layerprompt/internal/errors"
	"github.com/layerprompt/layerprompt/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// App identity loaded from .fulmen/app.yaml or the embedded copy
	appIdentity *appidentity.Identity

	// Typed config, valid after initConfig
	appConfig *config.Config

	// runCtx carries the correlation ID of this invocation
	runCtx = context.Background()

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the loaded app identity (only valid after initConfig)
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

// rootCmd renders a prompt when given a directive and a layer.
var rootCmd = &cobra.Command{
	// NOTE: initConfig() overwrites Short/Long from app identity.
	Use:   filepath.Base(os.Args[0]) + " <directive> <layer>",
	Short: "Resolve and render directive/layer prompt templates",
	Long: `Resolve the prompt template for a directive and a layer, fill it with
input text, file paths and custom variables, and print the result.

Piped stdin is used as input text when --from is not given.`,
	Example: `  layerprompt to project --from notes.md
  cat notes.md | layerprompt summary issue -a detailed
  layerprompt defect task --use-schema -V owner=alice`,
	Args:          cobra.RangeArgs(0, 2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPrompt,
}

// Execute runs the root command with a fresh correlation ID.
func Execute() error {
	runCtx = errwrap.WithCorrelationID(context.Background(), uuid.New().String())
	return rootCmd.ExecuteContext(runCtx)
}

func init() {
	ctx := context.Background()
	if identity, err := appid.Get(ctx); err == nil && identity != nil {
		appIdentity = identity
		applyIdentity(identity)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults to app identity config path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	addPromptFlags(rootCmd)
}

func applyIdentity(identity *appidentity.Identity) {
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName + " <directive> <layer>"
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A .env in the working directory is optional.
	_ = godotenv.Load()

	ctx := context.Background()
	identity, err := appid.Get(ctx)
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity", err)
	}
	appIdentity = identity
	applyIdentity(identity)

	// Early logger for config loading; replaced once the level is known.
	observability.InitCLILogger(appIdentity.BinaryName, "", verbose)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		appConfigDir := gfconfig.GetAppConfigDir(appIdentity.ConfigName)
		if appConfigDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Could not find home directory", err)
			}
			viper.AddConfigPath(home)
			viper.SetConfigName("." + appIdentity.ConfigName)
		} else {
			viper.AddConfigPath(appConfigDir)
			viper.SetConfigName("config")
		}

		viper.AddConfigPath("./config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(appIdentity.EnvPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			observability.CLILogger.Debug("No config file found, using defaults and environment variables")
		} else if cfgFile != "" {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Error reading config file", err)
		} else {
			observability.CLILogger.Warn("Error reading config file", zap.Error(err))
		}
	}

	setDefaults()

	cfg, err := config.Load(viper.AllSettings(), appIdentity.EnvPrefix)
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid configuration", err)
	}
	appConfig = cfg

	observability.InitCLILogger(appIdentity.BinaryName, cfg.Logging.Level, verbose)
}

// setDefaults sets default configuration values
func setDefaults() {
	for key, value := range config.Defaults() {
		viper.SetDefault(key, value)
	}
}

// currentConfig returns the loaded config, or defaults when initConfig has
// not run (tests).
func currentConfig() *config.Config {
	if appConfig != nil {
		return appConfig
	}
	cfg, err := config.Load(nil, "")
	if err != nil {
		return &config.Config{}
	}
	return cfg
}
