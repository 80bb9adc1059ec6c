package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/sncontent/internal/constants"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// Config represents the CLI configuration.
type Config struct {
	Repositories      map[string]*RepositoryConfig `json:"repositories,omitempty"       yaml:"repositories,omitempty"`
	CurrentRepository string                       `json:"current_repository,omitempty" yaml:"current_repository,omitempty"`

	// Global settings
	Output    string               `json:"output,omitempty"     yaml:"output,omitempty"`
	RateLimit int                  `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	Cache     *content.CacheConfig `json:"cache,omitempty"      yaml:"cache,omitempty"`
}

// RepositoryConfig represents one registered repository. Client secrets and
// API keys live in the OS keyring, never in this file.
type RepositoryConfig struct {
	URL            string     `json:"url"                        mapstructure:"url"              yaml:"url"`
	ClientID       string     `json:"client_id,omitempty"        mapstructure:"client_id"        yaml:"client_id,omitempty"`
	Trusted        bool       `json:"trusted,omitempty"          mapstructure:"trusted"          yaml:"trusted,omitempty"`
	Token          string     `json:"token,omitempty"            mapstructure:"token"            yaml:"token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" mapstructure:"token_expires_at" yaml:"token_expires_at,omitempty"`
	LastRefreshed  *time.Time `json:"last_refreshed,omitempty"   mapstructure:"last_refreshed"   yaml:"last_refreshed,omitempty"`
}

// HasValidToken reports whether a persisted token exists and has not expired.
func (r *RepositoryConfig) HasValidToken(now time.Time) bool {
	if r.Token == "" {
		return false
	}

	return r.TokenExpiresAt == nil || now.Before(*r.TokenExpiresAt)
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change global CLI settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			switch viper.GetString("output") {
			case constants.FormatJSON, constants.FormatYAML:
				return writeStructured(cmd, redactTokens(config))
			default:
				return displayConfigTable(cmd, config)
			}
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a global configuration value (output, rate_limit, cache_type)",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if err := setGlobalConfig(config, args[0], args[1]); err != nil {
				return err
			}

			if err := saveConfigStruct(config); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", args[0], args[1])

			return nil
		},
	}
}

func setGlobalConfig(config *Config, key, value string) error {
	switch key {
	case "output":
		if value != constants.FormatTable && value != constants.FormatJSON && value != constants.FormatYAML {
			return fmt.Errorf("%w: %s", constants.ErrInvalidOutputFormat, value)
		}

		config.Output = value
	case "rate_limit":
		limit, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid rate limit %q: %w", value, err)
		}

		config.RateLimit = limit
	case "cache_type":
		if config.Cache == nil {
			config.Cache = content.DefaultCacheConfig()
		}

		config.Cache.Type = content.CacheType(value)
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

func displayConfigTable(cmd *cobra.Command, config *Config) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Setting", "Value")

	_ = table.Append("Config file", configFilePath())
	_ = table.Append("Current repository", valueOrNA(config.CurrentRepository))
	_ = table.Append("Repositories", strconv.Itoa(len(config.Repositories)))
	_ = table.Append("Output", valueOrNA(config.Output))
	_ = table.Append("Rate limit", strconv.Itoa(config.RateLimit))

	cacheType := string(content.CacheTypeMemory)
	if config.Cache != nil && config.Cache.Type != "" {
		cacheType = string(config.Cache.Type)
	}

	_ = table.Append("Token cache", cacheType)

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func redactTokens(config *Config) *Config {
	redacted := *config
	redacted.Repositories = make(map[string]*RepositoryConfig, len(config.Repositories))

	for name, repo := range config.Repositories {
		copied := *repo
		if copied.Token != "" {
			copied.Token = constants.MaskedSecret
		}

		redacted.Repositories[name] = &copied
	}

	return &redacted
}

func loadConfig() *Config {
	config := &Config{
		Repositories:      make(map[string]*RepositoryConfig),
		CurrentRepository: viper.GetString("current_repository"),
		Output:            viper.GetString("output"),
		RateLimit:         viper.GetInt("rate_limit"),
	}

	if viper.IsSet("repositories") {
		var repos map[string]*RepositoryConfig
		if err := viper.UnmarshalKey("repositories", &repos, decodeTimes); err == nil {
			for name, repo := range repos {
				if repo != nil {
					config.Repositories[name] = repo
				}
			}
		}
	}

	if viper.IsSet("cache") {
		var cache content.CacheConfig
		if err := viper.UnmarshalKey("cache", &cache); err == nil {
			config.Cache = &cache
		}
	}

	return config
}

// decodeTimes lets viper decode RFC 3339 strings into time fields.
var decodeTimes = viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
	mapstructure.StringToTimeHookFunc(time.RFC3339),
	mapstructure.StringToTimeDurationHookFunc(),
))

func configFilePath() string {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return configFile
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(constants.ConfigDirName, constants.ConfigFileName)
	}

	return filepath.Join(home, constants.ConfigDirName, constants.ConfigFileName)
}

func saveConfigStruct(config *Config) error {
	configFile := configFilePath()

	if err := os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configFile, data, constants.ConfigFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Keep the running process in sync with what was written.
	viper.SetConfigFile(configFile)

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload config file: %w", err)
	}

	return nil
}

// repositoryNames returns the configured repository names in sorted order.
func repositoryNames(config *Config) []string {
	names := make([]string, 0, len(config.Repositories))
	for name := range config.Repositories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// currentRepository returns the repository selected by --repo, the current
// repository, or the only configured one.
func currentRepository(config *Config) (string, *RepositoryConfig, error) {
	if len(config.Repositories) == 0 {
		return "", nil, constants.ErrNoRepositoriesConfigured
	}

	name := viper.GetString("repo")
	if name == "" {
		name = config.CurrentRepository
	}

	if name == "" {
		names := repositoryNames(config)
		name = names[0]
	}

	repo, ok := config.Repositories[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: '%s'", constants.ErrRepositoryConfigNotFound, name)
	}

	return name, repo, nil
}

func writeStructured(cmd *cobra.Command, value any) error {
	switch viper.GetString("output") {
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(cmd.OutOrStdout())
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(value)
	default:
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")

		return encoder.Encode(value)
	}
}

func valueOrNA(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}
