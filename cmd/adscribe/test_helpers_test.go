package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir      string
	configPath   string
	workspaceDir string
}

// setupCLITestEnv writes a config whose binaries resolve on any unix host and
// clears the environment fallbacks config loading honors.
func setupCLITestEnv(t *testing.T, apiKey string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("ELEVENLABS_API_KEY", "")
	t.Setenv("ADSCRIBE_API_TOKEN", "")
	t.Setenv("PORT", "")
	t.Setenv("RAILWAY_VOLUME_MOUNT_PATH", "")

	env := &cliTestEnv{
		baseDir:      base,
		configPath:   filepath.Join(base, "config.toml"),
		workspaceDir: filepath.Join(base, "workspaces"),
	}
	content := fmt.Sprintf(`[paths]
workspace_dir = %q
log_dir = %q

[fetch]
binary = "sh"

[transcode]
binary = "sh"

[transcription]
api_key = %q
`, env.workspaceDir, filepath.Join(base, "logs"), apiKey)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
