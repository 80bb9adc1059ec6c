//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	RepositoryURL string
	ClientID      string
	ClientSecret  string
	APIKey        string
	TestFolder    string
	BinaryPath    string
	Verbose       bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	folder := os.Getenv("SNCONTENT_TEST_FOLDER")
	if folder == "" {
		folder = "/Root/Content"
	}

	return &TestConfig{
		RepositoryURL: os.Getenv("SNCONTENT_TEST_URL"),
		ClientID:      os.Getenv("SNCONTENT_TEST_CLIENT_ID"),
		ClientSecret:  os.Getenv("SNCONTENT_TEST_CLIENT_SECRET"),
		APIKey:        os.Getenv("SNCONTENT_TEST_API_KEY"),
		TestFolder:    folder,
		BinaryPath:    getBinaryPath(),
		Verbose:       os.Getenv("SNCONTENT_VERBOSE") == "true",
	}
}

// getBinaryPath determines the path to the sncontent binary
func getBinaryPath() string {
	if path := os.Getenv("SNCONTENT_BINARY_PATH"); path != "" {
		return path
	}

	for _, candidate := range []string{"../../sncontent", "./sncontent", "../sncontent"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "sncontent"
}

// SkipIfMissingConfig skips test if required config is missing
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.RepositoryURL == "" {
		t.Skip("SNCONTENT_TEST_URL not set, skipping integration test")
	}

	if _, err := exec.LookPath(config.BinaryPath); err != nil {
		t.Skipf("sncontent binary not found at %s, skipping integration test", config.BinaryPath)
	}
}

// CommandRunner runs sncontent commands against an isolated config file
type CommandRunner struct {
	config     *TestConfig
	configFile string
	t          *testing.T
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config:     config,
		configFile: filepath.Join(t.TempDir(), "config.yml"),
		t:          t,
	}
}

// Run executes a sncontent command and returns output
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes a sncontent command with stdin input
func (runner *CommandRunner) RunWithInput(input string, args ...string) (stdout, stderr string, err error) {
	args = append([]string{"--config", runner.configFile}, args...)

	cmd := exec.Command(runner.config.BinaryPath, args...) //nolint:gosec // test binary
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.Stdin = strings.NewReader(input)

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.BinaryPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// RegisterRepository adds the test repository under name and makes it
// current, passing secrets on stdin.
func (runner *CommandRunner) RegisterRepository(name string) error {
	args := []string{"repos", "add", name, runner.config.RepositoryURL, "--use"}
	input := ""

	switch {
	case runner.config.ClientID != "":
		args = append(args, "--client-id", runner.config.ClientID)
		input = runner.config.ClientSecret + "\n"
	case runner.config.APIKey != "":
		args = append(args, "--api-key")
		input = runner.config.APIKey + "\n"
	}

	_, stderr, err := runner.RunWithInput(input, args...)
	if err != nil {
		return fmt.Errorf("failed to register repository: %s", stderr)
	}

	return nil
}

// GenerateTestName creates a unique test content name
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// CleanupContent attempts to delete a test item permanently
func (runner *CommandRunner) CleanupContent(path string) {
	stdout, stderr, err := runner.Run("delete", path, "--force", "--permanent")
	if err != nil && runner.config.Verbose {
		runner.t.Logf("Cleanup warning for %s: %s\nStderr: %s", path, stdout, stderr)
	}
}

// AssertJSONOutput verifies command output is valid JSON
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	if !json.Valid([]byte(strings.TrimSpace(output))) {
		t.Errorf("Output is not valid JSON: %s", output)
	}
}

// AssertYAMLOutput verifies command output looks like YAML
func AssertYAMLOutput(t *testing.T, output string) {
	t.Helper()

	output = strings.TrimSpace(output)
	if strings.Contains(output, "---") || strings.Contains(output, ":") {
		return
	}

	t.Errorf("Output does not appear to be YAML: %s", output)
}
