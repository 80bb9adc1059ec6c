package commands

import (
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/sncontent/internal/constants"
)

// ConfigPersister implements the auth.ConfigPersister interface.
type ConfigPersister struct {
	mutex sync.Mutex
	now   func() time.Time
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{now: time.Now}
}

// UpdateRepositoryToken stores token and its expiry for the named
// repository in the config file.
func (p *ConfigPersister) UpdateRepositoryToken(name, token string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()

	repo, exists := config.Repositories[name]
	if !exists {
		return fmt.Errorf("repository configuration for '%s': %w", name, constants.ErrRepositoryConfigNotFound)
	}

	repo.Token = token
	repo.TokenExpiresAt = nil

	if !expiresAt.IsZero() {
		repo.TokenExpiresAt = &expiresAt
	}

	now := p.now()
	repo.LastRefreshed = &now

	return saveConfigStruct(config)
}
