// Package config loads projectkey settings from YAML files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/temirov/projectkey/internal/utils"
)

const (
	// DefaultLogLevel applies when no configuration source sets logging.level.
	DefaultLogLevel = "error"
	// DefaultKeyFileName is the key program the launcher searches for.
	DefaultKeyFileName = "key.go"
	// DefaultGoBinary builds key programs.
	DefaultGoBinary = "go"

	environmentPrefix = "PROJECTKEY"
)

var environmentKeys = []string{
	"logging.level",
	"dispatch.change_directory",
	"dispatch.clipboard",
	"launcher.key_file",
	"launcher.go_binary",
}

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	KeyDirectory     string
	ExplicitFilePath string
	HomeDirectory    string
	SkipEnvironment  bool
}

// ApplicationConfiguration holds the settings shared by key programs and the launcher.
type ApplicationConfiguration struct {
	Logging  LoggingConfiguration  `mapstructure:"logging"`
	Dispatch DispatchConfiguration `mapstructure:"dispatch"`
	Launcher LauncherConfiguration `mapstructure:"launcher"`
}

// LoggingConfiguration selects the zap level.
type LoggingConfiguration struct {
	Level string `mapstructure:"level"`
}

// DispatchConfiguration controls how commands run.
type DispatchConfiguration struct {
	ChangeDirectory *bool `mapstructure:"change_directory"`
	Clipboard       *bool `mapstructure:"clipboard"`
}

// LauncherConfiguration controls key file discovery and builds.
type LauncherConfiguration struct {
	KeyFile  string `mapstructure:"key_file"`
	GoBinary string `mapstructure:"go_binary"`
}

// LoadApplicationConfiguration merges the global file, the key directory file
// and PROJECTKEY_* environment variables, later sources winning.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	var merged ApplicationConfiguration

	homeDirectory := options.HomeDirectory
	if homeDirectory == "" {
		if resolvedHome, homeError := os.UserHomeDir(); homeError == nil {
			homeDirectory = resolvedHome
		}
	}
	if homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(options.KeyDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	if !options.SkipEnvironment {
		environmentConfig, loadErr := loadConfigurationFromEnvironment()
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(environmentConfig)
	}

	return merged, nil
}

func resolveLocalConfigPath(keyDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if keyDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(keyDirectory, explicitPath), nil
	}
	if keyDirectory == "" {
		return "", nil
	}
	return filepath.Join(keyDirectory, utils.LocalConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

func loadConfigurationFromEnvironment() (ApplicationConfiguration, error) {
	reader := viper.New()
	reader.SetEnvPrefix(environmentPrefix)
	reader.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range environmentKeys {
		if bindErr := reader.BindEnv(key); bindErr != nil {
			return ApplicationConfiguration{}, fmt.Errorf("bind environment for %s: %w", key, bindErr)
		}
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode %s_* environment: %w", environmentPrefix, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	result.Dispatch = result.Dispatch.merge(override.Dispatch)
	if override.Launcher.KeyFile != "" {
		result.Launcher.KeyFile = override.Launcher.KeyFile
	}
	if override.Launcher.GoBinary != "" {
		result.Launcher.GoBinary = override.Launcher.GoBinary
	}
	return result
}

func (config DispatchConfiguration) merge(override DispatchConfiguration) DispatchConfiguration {
	result := config
	if override.ChangeDirectory != nil {
		result.ChangeDirectory = cloneBool(override.ChangeDirectory)
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	return result
}

// LogLevel returns the configured level or DefaultLogLevel.
func (config ApplicationConfiguration) LogLevel() string {
	if config.Logging.Level == "" {
		return DefaultLogLevel
	}
	return config.Logging.Level
}

// ChangeDirectoryEnabled reports whether commands run from the key directory.
func (config ApplicationConfiguration) ChangeDirectoryEnabled() bool {
	return config.Dispatch.ChangeDirectory == nil || *config.Dispatch.ChangeDirectory
}

// ClipboardEnabled reports whether command results are copied to the clipboard.
func (config ApplicationConfiguration) ClipboardEnabled() bool {
	return config.Dispatch.Clipboard != nil && *config.Dispatch.Clipboard
}

// KeyFileName returns the key program file name the launcher searches for.
func (config ApplicationConfiguration) KeyFileName() string {
	if config.Launcher.KeyFile == "" {
		return DefaultKeyFileName
	}
	return config.Launcher.KeyFile
}

// GoBinary returns the go tool used to build key programs.
func (config ApplicationConfiguration) GoBinary() string {
	if config.Launcher.GoBinary == "" {
		return DefaultGoBinary
	}
	return config.Launcher.GoBinary
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
