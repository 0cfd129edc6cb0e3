package config

import "time"

// Config is the application configuration. Values come from, in order of
// precedence: environment variables, the config file, and Defaults.
type Config struct {
	Profiles ProfilesConfig `mapstructure:"profiles"`
	Stdin    StdinConfig    `mapstructure:"stdin"`
	Render   RenderConfig   `mapstructure:"render"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ProfilesConfig locates named profile files.
type ProfilesConfig struct {
	// Dir holds `{name}-app.yml` and `{name}-user.yml` files.
	Dir string `mapstructure:"dir"`

	// Default is used when --profile is not given. Empty means the built-in
	// profile.
	Default string `mapstructure:"default"`
}

// StdinConfig controls how piped input is read.
type StdinConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// RenderConfig controls template rendering.
type RenderConfig struct {
	// Strict fails on placeholders without a value instead of leaving them.
	Strict bool `mapstructure:"strict"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
}
