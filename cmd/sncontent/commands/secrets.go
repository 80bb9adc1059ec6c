package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/fivetwenty-io/sncontent/internal/constants"
)

// Kinds of secret kept per repository.
const (
	secretClientSecret = "client_secret"
	secretAPIKey       = "api_key"
)

func secretUser(repository, kind string) string {
	return repository + ":" + kind
}

// loadSecret returns the stored secret, or "" when none is stored.
func loadSecret(repository, kind string) (string, error) {
	secret, err := keyring.Get(constants.KeyringService, secretUser(repository, kind))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("reading %s for %s from keyring: %w", kind, repository, err)
	}

	return secret, nil
}

// requireSecret is loadSecret for secrets that must exist.
func requireSecret(repository, kind string) (string, error) {
	secret, err := loadSecret(repository, kind)
	if err != nil {
		return "", err
	}

	if secret == "" {
		return "", fmt.Errorf("%w: %s for %s", constants.ErrSecretNotFound, kind, repository)
	}

	return secret, nil
}

func storeSecret(repository, kind, value string) error {
	if value == "" {
		return nil
	}

	if err := keyring.Set(constants.KeyringService, secretUser(repository, kind), value); err != nil {
		return fmt.Errorf("storing %s for %s in keyring: %w", kind, repository, err)
	}

	return nil
}

func deleteSecrets(repository string) {
	for _, kind := range []string{secretClientSecret, secretAPIKey} {
		_ = keyring.Delete(constants.KeyringService, secretUser(repository, kind))
	}
}

// readSecret reads a secret without echo when in is a terminal, otherwise
// one line from in.
func readSecret(prompt string, in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd()) //nolint:gosec // file descriptors fit in int

	if term.IsTerminal(fd) {
		_, _ = fmt.Fprint(out, prompt)

		secretBytes, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(out)

		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}

		return string(secretBytes), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	return strings.TrimSpace(line), nil
}
