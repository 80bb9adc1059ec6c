package commands

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/sncontent/internal/constants"
)

// TokenStatus describes the token state of one repository.
type TokenStatus struct {
	Repository    string     `json:"repository"               yaml:"repository"`
	URL           string     `json:"url"                      yaml:"url"`
	HasToken      bool       `json:"has_token"                yaml:"has_token"`
	Valid         bool       `json:"valid"                    yaml:"valid"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"     yaml:"expires_at,omitempty"`
	LastRefreshed *time.Time `json:"last_refreshed,omitempty" yaml:"last_refreshed,omitempty"`
	Authority     string     `json:"authority,omitempty"      yaml:"authority,omitempty"`
	AuthStatus    string     `json:"auth_status,omitempty"    yaml:"auth_status,omitempty"`
}

// NewTokenCommand creates the token command group.
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage authentication tokens",
		Long:  "Commands for managing authentication tokens including status and refresh",
	}

	cmd.AddCommand(newTokenStatusCommand())
	cmd.AddCommand(newTokenRefreshCommand())

	return cmd
}

func newTokenStatusCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show token status and expiration",
		Long: `Display the persisted token of the current repository.

With --check the repository's authority is resolved and a token requested,
reporting whether it came from the cache, was acquired, or whether the
repository needs no authentication.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			name, repo, err := currentRepository(config)
			if err != nil {
				return err
			}

			status := TokenStatus{
				Repository:    name,
				URL:           repo.URL,
				HasToken:      repo.Token != "",
				Valid:         repo.HasValidToken(time.Now()),
				ExpiresAt:     repo.TokenExpiresAt,
				LastRefreshed: repo.LastRefreshed,
			}

			if check {
				ctx := cmd.Context()

				session, err := openSession(ctx)
				if err != nil {
					return err
				}

				result, err := session.store.Authenticate(ctx, session.options.URL, session.options.ClientID, session.options.ClientSecret)
				if err != nil {
					return fmt.Errorf("authentication check failed: %w", err)
				}

				status.AuthStatus = string(result.Status)
				status.Authority = result.Authority.Authority
			}

			return outputTokenStatus(cmd, status)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "contact the repository and its authority")

	return cmd
}

func newTokenRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Acquire a new token",
		Long:  "Drop the cached token of the current repository and acquire a new one with the stored client credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			session, err := openSession(ctx)
			if err != nil {
				return err
			}

			if session.options.ClientID == "" {
				return fmt.Errorf("%w: repository '%s' has no client id", constants.ErrNoTokenAvailable, session.name)
			}

			if _, err := requireSecret(session.name, secretClientSecret); err != nil {
				return err
			}

			if _, err := session.tokens.RefreshToken(ctx); err != nil {
				return fmt.Errorf("token refresh failed: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Token refreshed for repository '%s'\n", session.name)

			return nil
		},
	}
}

func outputTokenStatus(cmd *cobra.Command, status TokenStatus) error {
	switch viper.GetString("output") {
	case constants.FormatJSON, constants.FormatYAML:
		return writeStructured(cmd, status)
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Property", "Value")
	_ = table.Append("Repository", status.Repository)
	_ = table.Append("URL", status.URL)
	_ = table.Append("Has token", fmt.Sprint(status.HasToken))
	_ = table.Append("Valid", fmt.Sprint(status.Valid))
	_ = table.Append("Expires", formatTime(status.ExpiresAt))
	_ = table.Append("Last refreshed", formatTime(status.LastRefreshed))

	if status.AuthStatus != "" {
		_ = table.Append("Auth status", status.AuthStatus)
		_ = table.Append("Authority", valueOrNA(status.Authority))
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func formatTime(value *time.Time) string {
	if value == nil {
		return constants.NotAvailable
	}

	return value.Local().Format("2006-01-02 15:04:05")
}
