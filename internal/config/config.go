// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Version int `mapstructure:"version" toml:"version"`

	// Dictionaries consulted read-only, in order, after the user dictionaries
	StaticDictionary []DictionaryConfig `mapstructure:"static_dictionary" toml:"static_dictionary"`

	// Dictionaries that learn committed candidates and are written back on exit
	UserDictionary []DictionaryConfig `mapstructure:"user_dictionary" toml:"user_dictionary"`

	Engine EngineConfig `mapstructure:"engine" toml:"engine"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging" toml:"logging"`
}

// DictionaryConfig points at one SKK-JISYO style file
type DictionaryConfig struct {
	Path     string `mapstructure:"path" toml:"path"`
	Encoding string `mapstructure:"encoding" toml:"encoding"` // WHATWG label, e.g. "euc-jp" or "utf-8"
}

// EngineConfig contains conversion engine settings
type EngineConfig struct {
	InitialInputMode string `mapstructure:"initial_input_mode" toml:"initial_input_mode"` // ascii, hiragana, katakana, zenkaku
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level" toml:"log_level"` // Override LOG_LEVEL env var
}

const dictionaryDir = "~/.local/share/wayskk/dictionary"

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Version: 0,
		StaticDictionary: []DictionaryConfig{
			{Path: dictionaryDir + "/SKK-JISYO.L", Encoding: "euc-jp"},
			{Path: dictionaryDir + "/SKK-JISYO.propernoun", Encoding: "euc-jp"},
		},
		UserDictionary: []DictionaryConfig{
			{Path: dictionaryDir + "/user.dict", Encoding: "utf-8"},
		},
		Engine: EngineConfig{
			InitialInputMode: "ascii",
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("wayskk")
	viper.SetConfigType("toml")

	// If a specific path is set, use only that
	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			viper.AddConfigPath(filepath.Join(xdg, "wayskk"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "wayskk"))
		}
		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	viper.SetDefault("version", DefaultConfig.Version)
	viper.SetDefault("static_dictionary", DefaultConfig.StaticDictionary)
	viper.SetDefault("user_dictionary", DefaultConfig.UserDictionary)
	viper.SetDefault("engine.initial_input_mode", DefaultConfig.Engine.InitialInputMode)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	// Check if config file is already loaded
	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wayskk", "wayskk.toml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "wayskk.toml"
	}
	return filepath.Join(home, ".config", "wayskk", "wayskk.toml")
}

// ExpandPath resolves a leading "~/" against the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// SetInitialInputMode updates the engine's starting mode
func SetInitialInputMode(mode string) {
	Get().Engine.InitialInputMode = mode
	viper.Set("engine.initial_input_mode", mode)
}

// AddDictionary appends a dictionary, replacing an entry with the same path
func AddDictionary(user bool, dict DictionaryConfig) error {
	c := Get()
	key, list := dictionaryList(c, user)

	for i, d := range *list {
		if d.Path == dict.Path {
			(*list)[i] = dict
			viper.Set(key, *list)
			return Save()
		}
	}

	*list = append(*list, dict)
	viper.Set(key, *list)
	return Save()
}

// RemoveDictionary removes a dictionary by path
func RemoveDictionary(user bool, path string) error {
	c := Get()
	key, list := dictionaryList(c, user)

	for i, d := range *list {
		if d.Path == path {
			*list = append((*list)[:i], (*list)[i+1:]...)
			viper.Set(key, *list)
			return Save()
		}
	}

	return fmt.Errorf("dictionary %s not found", path)
}

func dictionaryList(c *Config, user bool) (string, *[]DictionaryConfig) {
	if user {
		return "user_dictionary", &c.UserDictionary
	}
	return "static_dictionary", &c.StaticDictionary
}
