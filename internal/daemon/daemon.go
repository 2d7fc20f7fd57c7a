package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"adscribe/internal/config"
	"adscribe/internal/deps"
	"adscribe/internal/logging"
	"adscribe/internal/quota"
	"adscribe/internal/reaper"
	"adscribe/internal/services/elevenlabs"
	"adscribe/internal/workflow"
)

// LockFileName is created inside the workspace root while a daemon runs.
const LockFileName = ".adscribe.lock"

// VoiceService clones voices and renders speech for the provider extras.
type VoiceService interface {
	AddVoice(ctx context.Context, name string, samples ...string) (string, error)
	TextToSpeech(ctx context.Context, voiceID, text string, settings elevenlabs.VoiceSettings) ([]byte, error)
}

// Services bundles the collaborators a Daemon drives. Voices and Reaper are
// optional.
type Services struct {
	Workflow *workflow.Manager
	Quota    *quota.Gate
	Voices   VoiceService
	Reaper   *reaper.Reaper
}

// Daemon owns the HTTP service lifecycle and enforces single-instance
// execution per workspace root.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	workflow   *workflow.Manager
	quota      *quota.Gate
	voices     VoiceService
	reaper     *reaper.Reaper
	urlPattern *regexp.Regexp
	handler    http.Handler
	api        *apiServer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running              bool
	PID                  int
	StartedAt            time.Time
	LockFilePath         string
	WorkspaceDir         string
	Quota                quota.Snapshot
	Jobs                 map[workflow.Stage]int
	Dependencies         []deps.Status
	TranscriptionEnabled bool
	VoicesEnabled        bool
}

// New constructs a daemon. The HTTP handler is built eagerly so it can be
// served without Start in tests.
func New(cfg *config.Config, logger *slog.Logger, svc Services) (*Daemon, error) {
	if cfg == nil || svc.Workflow == nil || svc.Quota == nil {
		return nil, errors.New("daemon requires config, workflow manager, and quota gate")
	}
	pattern, err := regexp.Compile(cfg.Fetch.URLPattern)
	if err != nil {
		return nil, fmt.Errorf("compile fetch url pattern: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.WorkspaceDir, LockFileName)
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		workflow:   svc.Workflow,
		quota:      svc.Quota,
		voices:     svc.Voices,
		reaper:     svc.Reaper,
		urlPattern: pattern,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.handler = d.newRouter()
	d.api = newAPIServer(cfg.Server.Bind, d.handler, logger)
	return d, nil
}

// Handler returns the HTTP handler serving the API.
func (d *Daemon) Handler() http.Handler {
	return d.handler
}

// Start acquires the daemon lock, launches the reaper, and starts listening.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(d.cfg.Paths.WorkspaceDir, 0o755); err != nil {
		return fmt.Errorf("ensure workspace dir: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another adscribe daemon is already using this workspace directory")
	}

	d.startedAt = time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel

	if d.reaper != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.reaper.Run(runCtx)
		}()
	}

	d.running.Store(true)
	d.logger.Info("adscribe daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.api.addr()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop shuts the listener down, waits for the reaper, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report a running instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("adscribe daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Addr returns the bound listener address once started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status reports runtime state for /health and the CLI.
func (d *Daemon) Status() Status {
	return Status{
		Running:              d.running.Load(),
		PID:                  os.Getpid(),
		StartedAt:            d.startedAt,
		LockFilePath:         d.lockPath,
		WorkspaceDir:         d.cfg.Paths.WorkspaceDir,
		Quota:                d.quota.Status(),
		Jobs:                 d.workflow.StageCounts(),
		Dependencies:         deps.CheckBinaries(deps.PipelineRequirements(d.cfg.Fetch.Binary, d.cfg.Transcode.Binary)),
		TranscriptionEnabled: d.workflow.TranscriptionEnabled(),
		VoicesEnabled:        d.voices != nil,
	}
}
