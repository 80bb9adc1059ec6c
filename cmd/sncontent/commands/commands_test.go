package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subcommandNames(cmd *cobra.Command) []string {
	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	return names
}

func TestNewReposCommand(t *testing.T) {
	t.Parallel()

	cmd := NewReposCommand()
	assert.Equal(t, "repos", cmd.Use)
	assert.Equal(t, []string{"repositories", "repo"}, cmd.Aliases)
	assert.ElementsMatch(t, []string{"add", "list", "use", "remove"}, subcommandNames(cmd))

	add := newReposAddCommand()
	assert.Equal(t, "add NAME URL", add.Use)
	assert.NotNil(t, add.RunE)

	for _, flagName := range []string{"client-id", "trusted", "api-key", "use"} {
		assert.NotNil(t, add.Flags().Lookup(flagName), "Flag %s should exist", flagName)
	}

	assert.Error(t, add.Args(add, []string{"only-name"}))
	assert.NoError(t, add.Args(add, []string{"docs", "https://example.com"}))
}

func TestContentCommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewGetCommand(), "get TARGET", []string{"select", "expand", "version", "param"}},
		{NewChildrenCommand(), "children TARGET", []string{"top", "skip", "orderby", "select", "expand", "count", "param", "filter", "query"}},
		{NewQueryCommand(), "query QUERY", []string{"top", "skip", "orderby", "select", "count", "path"}},
		{NewCountCommand(), "count QUERY", []string{"path"}},
		{NewDeleteCommand(), "delete TARGET", []string{"permanent", "force"}},
		{NewInvokeCommand(), "invoke TARGET OPERATION", []string{"data", "param"}},
		{NewUploadCommand(), "upload FILE PARENT", []string{"name", "content-type", "property", "chunk-size", "overwrite"}},
		{NewDownloadCommand(), "download TARGET", []string{"property", "file"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			assert.NotNil(t, tt.cmd.RunE)
			require.NotNil(t, tt.cmd.Args)

			for _, flagName := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flagName), "Flag %s should exist", flagName)
			}
		})
	}
}

func TestCollectionFlagDefaults(t *testing.T) {
	t.Parallel()

	cmd := NewChildrenCommand()

	top := cmd.Flags().Lookup("top")
	require.NotNil(t, top)
	assert.Equal(t, "100", top.DefValue)

	path := NewQueryCommand().Flags().Lookup("path")
	require.NotNil(t, path)
	assert.Equal(t, "/Root", path.DefValue)

	force := NewDeleteCommand().Flags().Lookup("force")
	require.NotNil(t, force)
	assert.Equal(t, "f", force.Shorthand)
	assert.Equal(t, "false", force.DefValue)
}

func TestNewTokenCommand(t *testing.T) {
	t.Parallel()

	cmd := NewTokenCommand()
	assert.Equal(t, "token", cmd.Use)
	assert.ElementsMatch(t, []string{"status", "refresh"}, subcommandNames(cmd))
	assert.NotNil(t, newTokenStatusCommand().Flags().Lookup("check"))
}

func TestNewConfigCommand(t *testing.T) {
	t.Parallel()

	cmd := NewConfigCommand()
	assert.Equal(t, "config", cmd.Use)
	assert.ElementsMatch(t, []string{"show", "set"}, subcommandNames(cmd))
}
