package services

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// CommandRunner executes an external binary to completion. Tool adapters accept
// one so tests can substitute a fake.
type CommandRunner func(ctx context.Context, name string, args ...string) error

const (
	commandWaitDelay = 5 * time.Second
	outputTailBytes  = 2048
)

// RunCommand runs name in its own process group. When ctx ends the whole group
// is killed, so helpers spawned by the tool do not outlive the deadline.
func RunCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = commandWaitDelay

	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w: %w", name, ctxErr, err)
	}
	return fmt.Errorf("%s: %w: %s", name, err, outputTail(output))
}

func outputTail(output []byte) string {
	text := strings.TrimSpace(string(output))
	if len(text) <= outputTailBytes {
		return text
	}
	return "..." + text[len(text)-outputTailBytes:]
}
