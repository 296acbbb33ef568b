package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mattsilv/codesight/internal/utils"
)

const configBaseName = "config.yaml"

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds command-specific configuration defaults.
type ApplicationConfiguration struct {
	Collect CollectConfiguration `mapstructure:"collect"`
}

// CollectConfiguration defines defaults for the collect command. Pointer
// fields distinguish "unset" from an explicit false or zero.
type CollectConfiguration struct {
	TokenLimit        *int     `mapstructure:"token_limit"`
	Exclude           []string `mapstructure:"exclude"`
	IncludeTests      *bool    `mapstructure:"include_tests"`
	IncludeStructural *bool    `mapstructure:"include_structural"`
	Dogfood           *bool    `mapstructure:"dogfood"`
	OutputFile        string   `mapstructure:"output_file"`
	Prompt            string   `mapstructure:"prompt"`
	Model             string   `mapstructure:"model"`
	Clipboard         *bool    `mapstructure:"clipboard"`
	StalenessDays     *int     `mapstructure:"staleness_days"`
}

// LoadApplicationConfiguration loads configuration from the global file under
// the user home and a local file in the working directory, local overriding global.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, configBaseName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
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

	merged.Collect.Exclude = utils.DeduplicatePatterns(merged.Collect.Exclude)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
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
	var configuration ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&configuration); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return configuration, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (configuration ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := configuration
	result.Collect = result.Collect.merge(override.Collect)
	return result
}

func (configuration CollectConfiguration) merge(override CollectConfiguration) CollectConfiguration {
	result := configuration
	if override.TokenLimit != nil {
		result.TokenLimit = cloneInt(override.TokenLimit)
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.IncludeTests != nil {
		result.IncludeTests = cloneBool(override.IncludeTests)
	}
	if override.IncludeStructural != nil {
		result.IncludeStructural = cloneBool(override.IncludeStructural)
	}
	if override.Dogfood != nil {
		result.Dogfood = cloneBool(override.Dogfood)
	}
	if override.OutputFile != "" {
		result.OutputFile = override.OutputFile
	}
	if override.Prompt != "" {
		result.Prompt = override.Prompt
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	if override.StalenessDays != nil {
		result.StalenessDays = cloneInt(override.StalenessDays)
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
