package workflow

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"adscribe/internal/logging"
	"adscribe/internal/services"
	"adscribe/internal/services/ytdlp"
	"adscribe/internal/workspace"
)

const (
	DefaultFetchTimeout      = 180 * time.Second
	DefaultTranscodeTimeout  = 10 * time.Minute
	DefaultTranscribeTimeout = 10 * time.Minute
	DefaultLanguage          = "en"
)

// Manager orchestrates jobs. It is safe for concurrent use; stages of one job
// run sequentially in the caller's goroutine.
type Manager struct {
	workspaces  Workspaces
	fetcher     Fetcher
	transcoder  Transcoder
	transcriber Transcriber
	logger      *slog.Logger

	strategies        []ytdlp.Strategy
	fetchTimeout      time.Duration
	transcodeTimeout  time.Duration
	transcribeTimeout time.Duration
	defaultLanguage   string
	now               func() time.Time
	newID             func() string

	mu   sync.RWMutex
	jobs map[string]*Job
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithStrategies replaces the ordered fetch strategy list.
func WithStrategies(strategies ...ytdlp.Strategy) Option {
	return func(m *Manager) {
		if len(strategies) > 0 {
			m.strategies = slices.Clone(strategies)
		}
	}
}

// WithTimeouts sets the per-attempt fetch timeout and the transcode and
// transcription deadlines. Non-positive values keep the defaults.
func WithTimeouts(fetch, transcode, transcribe time.Duration) Option {
	return func(m *Manager) {
		if fetch > 0 {
			m.fetchTimeout = fetch
		}
		if transcode > 0 {
			m.transcodeTimeout = transcode
		}
		if transcribe > 0 {
			m.transcribeTimeout = transcribe
		}
	}
}

// WithDefaultLanguage sets the language used when a request names none.
func WithDefaultLanguage(code string) Option {
	return func(m *Manager) {
		if code = strings.TrimSpace(code); code != "" {
			m.defaultLanguage = code
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides job id generation (used in tests). Generated ids
// must be canonical UUIDs.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewManager constructs an orchestrator. transcriber may be nil when
// transcription is not configured; the transcribe stage then reports a
// configuration error.
func NewManager(workspaces Workspaces, fetcher Fetcher, transcoder Transcoder, transcriber Transcriber, opts ...Option) *Manager {
	m := &Manager{
		workspaces:        workspaces,
		fetcher:           fetcher,
		transcoder:        transcoder,
		transcriber:       transcriber,
		logger:            logging.NewNop(),
		strategies:        ytdlp.DefaultStrategies(),
		fetchTimeout:      DefaultFetchTimeout,
		transcodeTimeout:  DefaultTranscodeTimeout,
		transcribeTimeout: DefaultTranscribeTimeout,
		defaultLanguage:   DefaultLanguage,
		now:               time.Now,
		newID:             uuid.NewString,
		jobs:              make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "workflow")
	return m
}

// TranscriptionEnabled reports whether a transcriber is wired.
func (m *Manager) TranscriptionEnabled() bool {
	return m.transcriber != nil
}

// Job returns a copy of the job record, adopting it from disk when only the
// workspace remains.
func (m *Manager) Job(jobID string) (Job, error) {
	job, err := m.lookup(jobID)
	if err != nil {
		return Job{}, err
	}
	return m.snapshot(job), nil
}

// Jobs returns copies of every in-memory job, oldest first.
func (m *Manager) Jobs() []Job {
	m.mu.RLock()
	out := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// StageCounts tallies in-memory jobs by stage.
func (m *Manager) StageCounts() map[Stage]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[Stage]int, len(m.jobs))
	for _, job := range m.jobs {
		counts[job.Stage]++
	}
	return counts
}

// Forget drops the in-memory record. The workspace is left alone.
func (m *Manager) Forget(jobID string) {
	m.mu.Lock()
	delete(m.jobs, jobID)
	m.mu.Unlock()
}

// ArtifactExists reports whether the job's artifact of kind is on disk.
func (m *Manager) ArtifactExists(jobID string, kind workspace.Kind) bool {
	return m.workspaces.Exists(jobID, kind)
}

// ArtifactPath returns the path of an existing artifact or an error matching
// services.ErrArtifactNotFound.
func (m *Manager) ArtifactPath(jobID string, kind workspace.Kind) (string, error) {
	path, err := m.workspaces.ArtifactPath(jobID, kind)
	if err != nil {
		return "", err
	}
	if !m.workspaces.Exists(jobID, kind) {
		return "", services.Wrap(services.ErrArtifactNotFound, "", "artifact path", fmt.Sprintf("%s for job %s", kind, jobID), nil)
	}
	return path, nil
}

func (m *Manager) register(job *Job) {
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()
}

// lookup finds a job in memory or adopts it from an existing workspace.
func (m *Manager) lookup(jobID string) (*Job, error) {
	if err := workspace.ValidateID(jobID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	job, ok := m.jobs[jobID]
	m.mu.RUnlock()
	if ok {
		return job, nil
	}
	if !m.workspaces.WorkspaceExists(jobID) {
		return nil, services.Wrap(services.ErrNotFound, "", "lookup job", fmt.Sprintf("job %s not found", jobID), nil)
	}

	now := m.now()
	adopted := &Job{
		ID:        jobID,
		Stage:     m.inferStage(jobID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.mu.Lock()
	if existing, ok := m.jobs[jobID]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.jobs[jobID] = adopted
	m.mu.Unlock()
	m.logger.Debug("job adopted from workspace",
		logging.String(logging.FieldJobID, jobID),
		logging.String("stage", string(adopted.Stage)),
	)
	return adopted, nil
}

func (m *Manager) inferStage(jobID string) Stage {
	switch {
	case m.workspaces.Exists(jobID, workspace.KindTranscript):
		return StageDone
	case m.workspaces.Exists(jobID, workspace.KindAudio):
		return StageTranscoded
	case m.workspaces.Exists(jobID, workspace.KindVideo):
		return StageFetched
	default:
		return StageCreated
	}
}

func (m *Manager) snapshot(job *Job) Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *job
}

func (m *Manager) update(job *Job, fn func(*Job)) {
	m.mu.Lock()
	fn(job)
	job.UpdatedAt = m.now()
	m.mu.Unlock()
}

func (m *Manager) result(job *Job, text string) Result {
	artifacts := make(map[workspace.Kind]string, 3)
	for _, kind := range workspace.Kinds() {
		if path, err := m.ArtifactPath(job.ID, kind); err == nil {
			artifacts[kind] = path
		}
	}
	return Result{Job: m.snapshot(job), Artifacts: artifacts, Transcript: text}
}
