// Package config provides Viper-based configuration loading for the furni client.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Client types supported by the session.
const (
	ClientFlash   = "flash"
	ClientOrigins = "origins"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Output is "stderr", "stdout" or a file path. Reports go to stdout, so
	// the default keeps logs off it.
	Output string `mapstructure:"output"`
}

// SessionConfig describes the signed-in user and the game client flavour.
type SessionConfig struct {
	// Client is the game client type: "flash" or "origins".
	Client string `mapstructure:"client"`
	// UserID is the signed-in user's ID. 0 means user data is unavailable.
	UserID int64 `mapstructure:"user_id"`
	// UserName is informational.
	UserName string `mapstructure:"user_name"`
}

// IsOrigins reports whether the session uses the Origins client.
func (s SessionConfig) IsOrigins() bool {
	return s.Client == ClientOrigins
}

// FurniConfig holds furni list and furni command settings.
type FurniConfig struct {
	// PickupInterval is the delay between pickups on the flash client.
	PickupInterval time.Duration `mapstructure:"pickup_interval"`
	// PickupIntervalOrigins is the delay between pickups on the Origins client.
	PickupIntervalOrigins time.Duration `mapstructure:"pickup_interval_origins"`
	// Filter is the initial filter text of the furni list.
	Filter string `mapstructure:"filter"`
	// ShowGrid selects grid mode for the furni list.
	ShowGrid bool `mapstructure:"show_grid"`
}

// Interval returns the pickup interval for the given session.
func (f FurniConfig) Interval(s SessionConfig) time.Duration {
	if s.IsOrigins() {
		return f.PickupIntervalOrigins
	}
	return f.PickupInterval
}

// GameDataConfig locates the furni data file.
type GameDataConfig struct {
	// FurniPath is the furni data YAML file. Empty disables name resolution.
	FurniPath string `mapstructure:"furni_path"`
}

// ScriptingConfig holds Lua automation settings.
type ScriptingConfig struct {
	// Dir is the directory of *.lua automation scripts. Empty disables scripting.
	Dir string `mapstructure:"dir"`
	// InstructionLimit caps the opcodes executed per hook call. 0 uses the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// HTTPConfig holds the read-only HTTP surface settings.
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	// ReadTimeout bounds request header and body reads.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// ConsoleConfig holds the Telnet command console settings.
type ConsoleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	// ReadTimeout disconnects a console session idle for this long. 0 disables it.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for console connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// Color enables ANSI highlighting of warnings and errors.
	Color bool `mapstructure:"color"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (c ConsoleConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Session   SessionConfig   `mapstructure:"session"`
	Furni     FurniConfig     `mapstructure:"furni"`
	GameData  GameDataConfig  `mapstructure:"gamedata"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Console   ConsoleConfig   `mapstructure:"console"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSession(c.Session); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateFurni(c.Furni); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateScripting(c.Scripting); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateHTTP(c.HTTP); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateConsole(c.Console); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	if strings.TrimSpace(l.Output) == "" {
		return fmt.Errorf("logging.output must not be empty")
	}
	return nil
}

func validateSession(s SessionConfig) error {
	var errs []string
	if s.Client != ClientFlash && s.Client != ClientOrigins {
		errs = append(errs, fmt.Sprintf("session.client must be one of [flash, origins], got %q", s.Client))
	}
	if s.UserID < 0 {
		errs = append(errs, fmt.Sprintf("session.user_id must be >= 0, got %d", s.UserID))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateFurni(f FurniConfig) error {
	var errs []string
	if f.PickupInterval < 0 {
		errs = append(errs, "furni.pickup_interval must not be negative")
	}
	if f.PickupIntervalOrigins < 0 {
		errs = append(errs, "furni.pickup_interval_origins must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return fmt.Errorf("scripting.instruction_limit must be >= 0, got %d", s.InstructionLimit)
	}
	return nil
}

func validateHTTP(h HTTPConfig) error {
	if !h.Enabled {
		return nil
	}
	var errs []string
	if h.Port < 1 || h.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be 1-65535, got %d", h.Port))
	}
	if h.ReadTimeout < 0 {
		errs = append(errs, "http.read_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateConsole(c ConsoleConfig) error {
	if !c.Enabled {
		return nil
	}
	var errs []string
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("console.port must be 1-65535, got %d", c.Port))
	}
	if c.ReadTimeout < 0 {
		errs = append(errs, "console.read_timeout must not be negative")
	}
	if c.WriteTimeout < 0 {
		errs = append(errs, "console.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with ROOMFURNI_ prefix
	v.SetEnvPrefix("ROOMFURNI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given. ROOMFURNI_
// environment variables still apply.
//
// Postcondition: Returns a Config that passes Validate, or a non-nil error.
func Default() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ROOMFURNI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return LoadFromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("session.client", ClientFlash)
	v.SetDefault("session.user_id", 0)

	v.SetDefault("furni.pickup_interval", "250ms")
	v.SetDefault("furni.pickup_interval_origins", "600ms")
	v.SetDefault("furni.filter", "")
	v.SetDefault("furni.show_grid", false)

	v.SetDefault("gamedata.furni_path", "")

	v.SetDefault("scripting.dir", "")
	v.SetDefault("scripting.instruction_limit", 0)

	v.SetDefault("http.enabled", false)
	v.SetDefault("http.host", "127.0.0.1")
	v.SetDefault("http.port", 8089)
	v.SetDefault("http.read_timeout", "10s")

	v.SetDefault("console.enabled", false)
	v.SetDefault("console.host", "127.0.0.1")
	v.SetDefault("console.port", 4023)
	v.SetDefault("console.read_timeout", "30m")
	v.SetDefault("console.write_timeout", "10s")
	v.SetDefault("console.color", true)
}
