package reaper

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adscribe/internal/logging"
	"adscribe/internal/workspace"
)

const (
	DefaultInterval = 10 * time.Minute
	DefaultTTL      = time.Hour
)

// SweepResult contains the outcome of one sweep.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a directory path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// Sweep removes every job workspace directly under root whose modification
// time is older than ttl relative to now. Only directories named by a job id
// are candidates; files and foreign directories are left alone. The sweep does
// not know about running jobs.
func Sweep(ctx context.Context, root string, ttl time.Duration, now time.Time, logger *slog.Logger) SweepResult {
	result := SweepResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			result.Errors = append(result.Errors, SweepError{Path: root, Error: err})
		}
		return result
	}

	cutoff := now.Add(-ttl)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() || workspace.ValidateID(entry.Name()) != nil {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dirPath, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale workspace", "reaper_remove_failed",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check workspace_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale workspace",
				logging.String(logging.FieldJobID, entry.Name()),
				logging.Duration("age", now.Sub(info.ModTime())),
				logging.String(logging.FieldEventType, "reaper_removed"),
			)
		}
	}
	return result
}

// Reaper runs Sweep on a fixed interval until its context ends.
type Reaper struct {
	root     string
	interval time.Duration
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
	onRemove func(jobID string)
}

// Option configures a Reaper.
type Option func(*Reaper)

// WithClock replaces the wall clock used to compute ages.
func WithClock(now func() time.Time) Option {
	return func(r *Reaper) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRemoveHook registers fn to be called with the directory name of every
// workspace the reaper deletes.
func WithRemoveHook(fn func(jobID string)) Option {
	return func(r *Reaper) {
		r.onRemove = fn
	}
}

// New constructs a reaper. Non-positive durations fall back to the defaults.
func New(root string, interval, ttl time.Duration, logger *slog.Logger, opts ...Option) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Reaper{
		root:     root,
		interval: interval,
		ttl:      ttl,
		logger:   logging.NewComponentLogger(logger, "reaper"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SweepOnce performs a single sweep and notifies the remove hook.
func (r *Reaper) SweepOnce(ctx context.Context) SweepResult {
	result := Sweep(ctx, r.root, r.ttl, r.now(), r.logger)
	if r.onRemove != nil {
		for _, path := range result.Removed {
			r.onRemove(filepath.Base(path))
		}
	}
	return result
}

// Run sweeps immediately and then every interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info("workspace reaper started",
		logging.String("root", r.root),
		logging.Duration("interval", r.interval),
		logging.Duration("ttl", r.ttl),
		logging.String(logging.FieldEventType, "reaper_started"),
	)
	r.SweepOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("workspace reaper stopped")
			return
		case <-ticker.C:
			result := r.SweepOnce(ctx)
			if len(result.Removed) > 0 || len(result.Errors) > 0 {
				r.logger.Info("workspace sweep finished",
					logging.Int("removed", len(result.Removed)),
					logging.Int("errors", len(result.Errors)),
					logging.String(logging.FieldEventType, "reaper_sweep"),
				)
			}
		}
	}
}
