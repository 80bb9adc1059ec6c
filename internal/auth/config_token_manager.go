package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/sncontent/internal/constants"
)

// ErrNoConfigPersister is returned when a token must be saved but no
// persister was configured.
var ErrNoConfigPersister = errors.New("no config persister configured")

// ConfigPersister saves freshly acquired tokens of a named repository.
type ConfigPersister interface {
	UpdateRepositoryToken(name, token string, expiresAt time.Time) error
}

// ConfigTokenManager serves tokens for one configured repository from a
// ServerTokenStore and persists every newly acquired token.
type ConfigTokenManager struct {
	store           *ServerTokenStore
	configPersister ConfigPersister
	name            string
	serverURL       string
	clientID        string
	secret          string

	mutex     sync.Mutex
	lastToken string
}

// NewConfigTokenManager creates a token manager for the repository name.
func NewConfigTokenManager(store *ServerTokenStore, configPersister ConfigPersister, name, serverURL, clientID, secret string) *ConfigTokenManager {
	return &ConfigTokenManager{
		store:           store,
		configPersister: configPersister,
		name:            name,
		serverURL:       serverURL,
		clientID:        clientID,
		secret:          secret,
	}
}

// GetToken returns the current token, or the empty string when the server
// needs none or none could be obtained.
func (m *ConfigTokenManager) GetToken(ctx context.Context) (string, error) {
	result, err := m.store.Authenticate(ctx, m.serverURL, m.clientID, m.secret)
	if err != nil {
		return "", err
	}

	if result.Status != AuthStatusAcquired {
		return result.Token, nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if result.Token != m.lastToken {
		m.lastToken = result.Token

		if err := m.persistToken(result.Token, m.store.settings.clock().Add(constants.TokenCacheTTL)); err != nil {
			m.store.settings.logger.Warn("Failed to persist acquired token", map[string]interface{}{
				"repository": m.name,
				"error":      err.Error(),
			})
		}
	}

	return result.Token, nil
}

// RefreshToken drops the cached token and acquires a new one.
func (m *ConfigTokenManager) RefreshToken(ctx context.Context) (string, error) {
	if err := m.store.Forget(ctx, m.serverURL); err != nil {
		return "", fmt.Errorf("dropping cached token: %w", err)
	}

	token, err := m.GetToken(ctx)
	if err != nil {
		return "", err
	}

	if token == "" {
		return "", constants.ErrNoTokenAvailable
	}

	return token, nil
}

func (m *ConfigTokenManager) persistToken(token string, expiresAt time.Time) error {
	if m.configPersister == nil {
		return ErrNoConfigPersister
	}

	if err := m.configPersister.UpdateRepositoryToken(m.name, token, expiresAt); err != nil {
		return fmt.Errorf("failed to update repository token: %w", err)
	}

	return nil
}
