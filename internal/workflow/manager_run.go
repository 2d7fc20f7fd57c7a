package workflow

import (
	"context"
	"strings"

	"adscribe/internal/logging"
)

// CreateJob admits a new job and creates its empty workspace.
func (m *Manager) CreateJob(sourceRef, lang string) (Job, error) {
	id := m.newID()
	if _, err := m.workspaces.Create(id); err != nil {
		return Job{}, err
	}
	now := m.now()
	job := &Job{
		ID:        id,
		Stage:     StageCreated,
		SourceRef: strings.TrimSpace(sourceRef),
		Language:  strings.TrimSpace(lang),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.register(job)
	m.logger.Info("job created",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldEventType, "job_created"),
		logging.String("source", job.SourceRef),
	)
	return *job, nil
}

// Download creates a job and fetches its video. On failure the workspace it
// just created is removed and the job is forgotten.
func (m *Manager) Download(ctx context.Context, sourceRef string) (Result, error) {
	job, err := m.CreateJob(sourceRef, "")
	if err != nil {
		return Result{}, err
	}
	res, err := m.RunFetch(ctx, job.ID)
	if err != nil {
		m.rollback(ctx, job.ID, err)
		return res, err
	}
	return res, nil
}

// RunFetch (re)fetches the job's video. The workspace is kept on failure.
func (m *Manager) RunFetch(ctx context.Context, jobID string) (Result, error) {
	job, err := m.lookup(jobID)
	if err != nil {
		return Result{}, err
	}
	if err := m.fetch(ctx, job); err != nil {
		return m.result(job, ""), err
	}
	return m.result(job, ""), nil
}

// RunTranscode extracts audio from the job's video. The workspace is kept on
// failure.
func (m *Manager) RunTranscode(ctx context.Context, jobID string) (Result, error) {
	job, err := m.lookup(jobID)
	if err != nil {
		return Result{}, err
	}
	if err := m.transcode(ctx, job); err != nil {
		return m.result(job, ""), err
	}
	return m.result(job, ""), nil
}

// RunTranscribe transcribes the job's audio, transcoding the video first when
// needed. An empty language falls back to the job's language and then to the
// manager default. The workspace is kept on failure.
func (m *Manager) RunTranscribe(ctx context.Context, jobID, lang string) (Result, error) {
	job, err := m.lookup(jobID)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(lang) == "" {
		lang = m.snapshot(job).Language
	}
	text, err := m.transcribe(ctx, job, lang)
	if err != nil {
		return m.result(job, ""), err
	}
	return m.result(job, text), nil
}

// RunFull runs fetch, transcode, and transcribe for the job. Any failure
// removes the whole workspace and the in-memory record.
func (m *Manager) RunFull(ctx context.Context, jobID, sourceRef, lang string) (Result, error) {
	job, err := m.lookup(jobID)
	if err != nil {
		return Result{}, err
	}
	m.update(job, func(j *Job) {
		if ref := strings.TrimSpace(sourceRef); ref != "" {
			j.SourceRef = ref
		}
		if l := strings.TrimSpace(lang); l != "" {
			j.Language = l
		}
	})

	fail := func(err error) (Result, error) {
		res := Result{Job: m.snapshot(job)}
		m.rollback(ctx, jobID, err)
		return res, err
	}

	if err := m.fetch(ctx, job); err != nil {
		return fail(err)
	}
	if err := m.transcode(ctx, job); err != nil {
		return fail(err)
	}
	text, err := m.transcribe(ctx, job, m.snapshot(job).Language)
	if err != nil {
		return fail(err)
	}
	return m.result(job, text), nil
}

func (m *Manager) rollback(ctx context.Context, jobID string, cause error) {
	logger := logging.WithContext(ctx, m.logger).With(logging.String(logging.FieldJobID, jobID))
	if err := m.workspaces.Remove(jobID); err != nil {
		logging.WarnWithContext(logger, "failed to remove workspace after failure", "workspace_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "workspace left on disk until reaped"),
		)
	} else {
		logger.Info("workspace removed after failure",
			logging.String(logging.FieldEventType, "workspace_rollback"),
			logging.String("cause", cause.Error()),
		)
	}
	m.Forget(jobID)
}
