package daemonrun

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"adscribe/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = filepath.Join(t.TempDir(), "workspaces")
	cfg.Paths.LogDir = ""
	return &cfg
}

func TestBuildPipelineWithoutProviderKey(t *testing.T) {
	cfg := testConfig(t)
	p, err := BuildPipeline(cfg, nil)
	if err != nil {
		t.Fatalf("BuildPipeline: %v", err)
	}
	if p.Voices != nil {
		t.Fatal("expected no voice client without an API key")
	}
	if p.Workflow.TranscriptionEnabled() {
		t.Fatal("expected transcription disabled without an API key")
	}
	if info, err := os.Stat(cfg.Paths.WorkspaceDir); err != nil || !info.IsDir() {
		t.Fatalf("expected workspace root created: %v", err)
	}
}

func TestBuildPipelineWithProviderKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcription.APIKey = "xi-test"
	p, err := BuildPipeline(cfg, nil)
	if err != nil {
		t.Fatalf("BuildPipeline: %v", err)
	}
	if p.Voices == nil || !p.Workflow.TranscriptionEnabled() {
		t.Fatal("expected provider wired when the key is set")
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adscribe.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("unexpected pid file contents %q", data)
	}
}
