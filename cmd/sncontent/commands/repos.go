package commands

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/sncontent/internal/constants"
)

// RepositoryInfo is one row of the repository list.
type RepositoryInfo struct {
	Name      string `json:"name"                yaml:"name"`
	URL       string `json:"url"                 yaml:"url"`
	ClientID  string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	Trusted   bool   `json:"trusted"             yaml:"trusted"`
	Current   bool   `json:"current"             yaml:"current"`
	HasToken  bool   `json:"has_token"           yaml:"has_token"`
	ExpiresAt string `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// NewReposCommand creates the repos command group.
func NewReposCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "repos",
		Aliases: []string{"repositories", "repo"},
		Short:   "Manage repositories",
		Long:    "Register, list, select and remove content repositories",
	}

	cmd.AddCommand(newReposAddCommand())
	cmd.AddCommand(newReposListCommand())
	cmd.AddCommand(newReposUseCommand())
	cmd.AddCommand(newReposRemoveCommand())

	return cmd
}

func newReposAddCommand() *cobra.Command {
	var (
		clientID  string
		trusted   bool
		apiKey    bool
		setActive bool
	)

	cmd := &cobra.Command{
		Use:   "add NAME URL",
		Short: "Register a repository",
		Long: `Register a repository under NAME.

With --client-id the client secret is read from the terminal (or stdin) and
stored in the OS keyring. With --api-key an API key is read the same way.`,
		Args: cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			repoURL, err := normalizeRepositoryURL(args[1])
			if err != nil {
				return err
			}

			config := loadConfig()
			config.Repositories[name] = &RepositoryConfig{
				URL:      repoURL,
				ClientID: clientID,
				Trusted:  trusted,
			}

			if clientID != "" {
				secret, err := readSecret("Client secret: ", stdinFile, cmd.ErrOrStderr())
				if err != nil {
					return err
				}

				if err := storeSecret(name, secretClientSecret, secret); err != nil {
					return err
				}
			}

			if apiKey {
				key, err := readSecret("API key: ", stdinFile, cmd.ErrOrStderr())
				if err != nil {
					return err
				}

				if err := storeSecret(name, secretAPIKey, key); err != nil {
					return err
				}
			}

			if setActive || config.CurrentRepository == "" {
				config.CurrentRepository = name
			}

			if err := saveConfigStruct(config); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added repository '%s' at %s\n", name, repoURL)

			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth client id used for client credentials")
	cmd.Flags().BoolVar(&trusted, "trusted", false, "mark the repository as trusted")
	cmd.Flags().BoolVar(&apiKey, "api-key", false, "prompt for an API key")
	cmd.Flags().BoolVar(&setActive, "use", false, "make this the current repository")

	return cmd
}

func newReposListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List repositories",
		Long:    "List all registered repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			infos := repositoryInfos(config)

			switch viper.GetString("output") {
			case constants.FormatJSON, constants.FormatYAML:
				return writeStructured(cmd, infos)
			}

			if len(infos) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), constants.ErrNoRepositoriesConfigured.Error())

				return nil
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("", "Name", "URL", "Client ID", "Trusted", "Token Expires")

			for _, info := range infos {
				marker := ""
				if info.Current {
					marker = "*"
				}

				expires := constants.NotAvailable
				if info.HasToken {
					expires = valueOrNA(info.ExpiresAt)
				}

				_ = table.Append(marker, info.Name, info.URL, valueOrNA(info.ClientID), fmt.Sprint(info.Trusted), expires)
			}

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}

func newReposUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME",
		Short: "Select the current repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			if _, ok := config.Repositories[args[0]]; !ok {
				return fmt.Errorf("%w: '%s'", constants.ErrRepositoryConfigNotFound, args[0])
			}

			config.CurrentRepository = args[0]

			if err := saveConfigStruct(config); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Using repository '%s'\n", args[0])

			return nil
		},
	}
}

func newReposRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"rm"},
		Short:   "Remove a repository",
		Long:    "Remove a repository and its stored secrets",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			config := loadConfig()

			if _, ok := config.Repositories[name]; !ok {
				return fmt.Errorf("%w: '%s'", constants.ErrRepositoryConfigNotFound, name)
			}

			delete(config.Repositories, name)
			deleteSecrets(name)

			if config.CurrentRepository == name {
				config.CurrentRepository = ""
			}

			if err := saveConfigStruct(config); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed repository '%s'\n", name)

			return nil
		},
	}
}

func repositoryInfos(config *Config) []RepositoryInfo {
	names := repositoryNames(config)
	infos := make([]RepositoryInfo, 0, len(names))

	for _, name := range names {
		repo := config.Repositories[name]
		info := RepositoryInfo{
			Name:     name,
			URL:      repo.URL,
			ClientID: repo.ClientID,
			Trusted:  repo.Trusted,
			Current:  name == config.CurrentRepository,
			HasToken: repo.Token != "",
		}

		if repo.TokenExpiresAt != nil {
			info.ExpiresAt = repo.TokenExpiresAt.Format("2006-01-02 15:04:05")
		}

		infos = append(infos, info)
	}

	return infos
}

// normalizeRepositoryURL requires an absolute http(s) URL and drops any
// trailing slash.
func normalizeRepositoryURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", constants.ErrRepositoryURLRequired
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", ErrInvalidParameter, raw)
	}

	return strings.TrimRight(raw, "/"), nil
}
