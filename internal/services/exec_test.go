package services_test

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"adscribe/internal/services"
)

func TestRunCommandReportsOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	err := services.RunCommand(context.Background(), "sh", "-c", "echo broken pipe >&2; exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "broken pipe") {
		t.Fatalf("expected command output in error, got %v", err)
	}
}

func TestRunCommandKillsOnDeadline(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := services.RunCommand(ctx, "sleep", "30")
	if err == nil {
		t.Fatal("expected deadline error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("command outlived deadline: %s", elapsed)
	}
}
