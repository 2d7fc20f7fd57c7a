package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"adscribe/internal/config"
	"adscribe/internal/daemon"
	"adscribe/internal/deps"
	"adscribe/internal/logging"
	"adscribe/internal/quota"
	"adscribe/internal/reaper"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the adscribe daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg, opts.LogLevel, opts.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)

	if cfg.Paths.LogDir != "" {
		pidPath := filepath.Join(cfg.Paths.LogDir, "adscribe.pid")
		if err := writePIDFile(pidPath); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
		defer os.Remove(pidPath)
	}

	pipeline, err := BuildPipeline(cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	loc, err := cfg.QuotaLocation()
	if err != nil {
		return err
	}
	sweeper := reaper.New(cfg.Paths.WorkspaceDir, cfg.ReaperInterval(), cfg.ReaperTTL(), logger,
		reaper.WithRemoveHook(pipeline.Workflow.Forget))
	svc := daemon.Services{
		Workflow: pipeline.Workflow,
		Quota:    quota.New(cfg.Quota.DailyLimit, quota.WithLocation(loc)),
		Reaper:   sweeper,
	}
	if pipeline.Voices != nil {
		svc.Voices = pipeline.Voices
	}

	d, err := daemon.New(cfg, logger, svc)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check server.bind and that no other daemon uses the workspace directory"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("adscribe daemon shutting down")
	d.Stop()
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	statuses := deps.CheckBinaries(deps.PipelineRequirements(cfg.Fetch.Binary, cfg.Transcode.Binary))
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("elevenlabs_key_present", cfg.TranscriptionEnabled()),
		logging.Bool("api_token_set", cfg.Server.APIToken != ""),
		logging.Int("daily_limit", cfg.Quota.DailyLimit),
		logging.String("workspace_dir", cfg.Paths.WorkspaceDir),
	}
	for _, status := range statuses {
		key := strings.ToLower(strings.ReplaceAll(status.Name, "-", ""))
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	if !deps.AllRequiredAvailable(statuses) {
		logging.WarnWithContext(logger, "required binaries missing", "dependency_missing",
			logging.String(logging.FieldErrorHint, "install yt-dlp and ffmpeg or set fetch.binary / transcode.binary"),
			logging.String(logging.FieldImpact, "pipeline requests will fail at the fetch or transcode stage"),
		)
	}
}
