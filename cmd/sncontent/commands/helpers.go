package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/sncontent/internal/auth"
	"github.com/fivetwenty-io/sncontent/internal/constants"
	"github.com/fivetwenty-io/sncontent/pkg/content"
	"github.com/fivetwenty-io/sncontent/pkg/snclient"
)

// Static errors for err113 compliance.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidPostData  = errors.New("post data must be a JSON object")
	ErrDeleteCancelled  = errors.New("delete cancelled")
)

// Columns shown for content lists in table output.
var defaultListColumns = []string{"Id", "Name", "Type", "Path"}

func newLogger() content.Logger {
	if !viper.GetBool("verbose") {
		return content.NoopLogger{}
	}

	return content.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

// repositorySession bundles what a command needs to talk to the selected
// repository.
type repositorySession struct {
	name    string
	config  *RepositoryConfig
	client  *snclient.Client
	tokens  *auth.ConfigTokenManager
	store   *auth.ServerTokenStore
	options snclient.RepositoryOptions
}

// managedTokens adapts a ConfigTokenManager, which persists every newly
// acquired token, to snclient.TokenSource.
type managedTokens struct {
	manager *auth.ConfigTokenManager
}

func (m managedTokens) GetToken(ctx context.Context, _, _, _ string) (string, error) {
	return m.manager.GetToken(ctx)
}

func openSession(ctx context.Context) (*repositorySession, error) {
	config := loadConfig()

	name, repoConfig, err := currentRepository(config)
	if err != nil {
		return nil, err
	}

	secret, err := loadSecret(name, secretClientSecret)
	if err != nil {
		return nil, err
	}

	apiKey, err := loadSecret(name, secretAPIKey)
	if err != nil {
		return nil, err
	}

	logger := newLogger()

	authOpts := []auth.Option{auth.WithLogger(logger)}

	if config.Cache != nil {
		backend, err := content.NewCacheFromConfig(ctx, config.Cache)
		if err != nil {
			return nil, fmt.Errorf("creating token cache: %w", err)
		}

		authOpts = append(authOpts, auth.WithCache(backend))
	}

	store := auth.NewServerTokenStore(nil, nil, authOpts...)
	manager := auth.NewConfigTokenManager(store, NewConfigPersister(), name, repoConfig.URL, repoConfig.ClientID, secret)

	options := snclient.RepositoryOptions{
		URL:          repoConfig.URL,
		ClientID:     repoConfig.ClientID,
		ClientSecret: secret,
		APIKey:       apiKey,
		Trusted:      repoConfig.Trusted,
	}

	cli, err := snclient.New(ctx, &snclient.Config{
		Repositories: map[string]snclient.RepositoryOptions{name: options},
		RateLimit:    config.RateLimit,
		Debug:        viper.GetBool("verbose"),
		Logger:       logger,
	}, snclient.WithTokenSource(managedTokens{manager: manager}))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &repositorySession{
		name:    name,
		config:  repoConfig,
		client:  cli,
		tokens:  manager,
		store:   store,
		options: options,
	}, nil
}

// accessToken returns the token given with --token, then a persisted token
// that has not expired. An empty result lets the token store decide.
func (s *repositorySession) accessToken() string {
	if token := viper.GetString("token"); token != "" {
		return token
	}

	if s.config.HasValidToken(time.Now()) {
		return s.config.Token
	}

	return ""
}

func (s *repositorySession) repository(ctx context.Context) (*snclient.Repository, error) {
	return s.client.GetRepository(ctx, s.name, s.accessToken())
}

// openRepository opens the repository selected by flags and config.
func openRepository(ctx context.Context) (*snclient.Repository, error) {
	session, err := openSession(ctx)
	if err != nil {
		return nil, err
	}

	return session.repository(ctx)
}

// parseTarget turns a command argument into an address: a path below /Root
// or a numeric content id.
func parseTarget(arg string) (content.EntityOptions, error) {
	arg = strings.TrimSpace(arg)

	if strings.HasPrefix(arg, constants.RootPath) {
		return content.EntityOptions{Path: arg}, nil
	}

	if id, err := strconv.Atoi(arg); err == nil && id > 0 {
		return content.EntityOptions{ContentID: id}, nil
	}

	return content.EntityOptions{}, fmt.Errorf("%w: %q", constants.ErrInvalidContentTarget, arg)
}

// applyParams adds key=value pairs to a request's parameter bag. Well-known
// keys such as $top update the request's typed fields.
func applyParams(req content.Request, params []string) error {
	for _, param := range params {
		key, value, ok := strings.Cut(param, "=")
		if !ok || key == "" {
			return fmt.Errorf("%w: %q (expected key=value)", ErrInvalidParameter, param)
		}

		if err := req.Parameters().Set(key, value); err != nil {
			return err
		}
	}

	return nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

func outputContent(cmd *cobra.Command, item content.Content) error {
	switch viper.GetString("output") {
	case constants.FormatJSON, constants.FormatYAML:
		return writeStructured(cmd, item)
	}

	keys := make([]string, 0, len(item))
	for key := range item {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Field", "Value")

	for _, key := range keys {
		_ = table.Append(key, formatValue(item[key]))
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func outputContentList(cmd *cobra.Command, list *content.ContentList, columns []string) error {
	switch viper.GetString("output") {
	case constants.FormatJSON, constants.FormatYAML:
		return writeStructured(cmd, list)
	}

	if len(columns) == 0 {
		columns = defaultListColumns
	}

	header := make([]any, len(columns))
	for i, column := range columns {
		header[i] = column
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header(header...)

	for _, item := range list.Items {
		row := make([]any, len(columns))
		for i, column := range columns {
			row[i] = formatValue(item[column])
		}

		_ = table.Append(row...)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d item(s)\n", len(list.Items), list.Count)

	return nil
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return truncate(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return truncate(fmt.Sprint(v))
	}
}

func truncate(value string) string {
	if len(value) <= constants.StringTruncationLength {
		return value
	}

	return value[:constants.StringTruncationLength-3] + "..."
}
