package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"adscribe/internal/language"
	"adscribe/internal/logging"
	"adscribe/internal/services"
	"adscribe/internal/transcript"
	"adscribe/internal/workspace"
)

type stageFunc func(ctx context.Context, logger *slog.Logger) error

// runStage moves job into stage, runs fn, and records the outcome. Failures
// come back as *StageError.
func (m *Manager) runStage(ctx context.Context, job *Job, stage Stage, fn stageFunc) error {
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	stageCtx := services.WithStage(services.WithJobID(ctx, job.ID), string(stage))
	logger := logging.WithContext(stageCtx, m.logger)

	m.update(job, func(j *Job) {
		j.Stage = stage
		j.FailedStage = ""
		j.Err = nil
	})

	start := time.Now()
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	if err := fn(stageCtx, logger); err != nil {
		stageErr := &StageError{Stage: stage, Cause: err}
		m.update(job, func(j *Job) {
			j.Stage = StageFailed
			j.FailedStage = stage
			j.Err = stageErr
		})
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.String("error_message", strings.TrimSpace(err.Error())),
			logging.String(logging.FieldErrorHint, failureHint(err)),
			logging.Duration("stage_duration", time.Since(start)),
			logging.Error(err),
		)
		return stageErr
	}

	next := stage.completed()
	m.update(job, func(j *Job) { j.Stage = next })
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_stage", string(next)),
		logging.Duration("stage_duration", time.Since(start)),
	)
	return nil
}

// fetch tries each strategy in order. A failed attempt or one that leaves no
// video behind moves on to the next strategy; a timeout ends the stage.
func (m *Manager) fetch(ctx context.Context, job *Job) error {
	sourceRef := m.snapshot(job).SourceRef
	if strings.TrimSpace(sourceRef) == "" {
		return services.Wrap(services.ErrValidation, string(StageFetching), "fetch", "job has no source url", nil)
	}
	dest, err := m.workspaces.ArtifactPath(job.ID, workspace.KindVideo)
	if err != nil {
		return err
	}

	return m.runStage(ctx, job, StageFetching, func(ctx context.Context, logger *slog.Logger) error {
		var lastErr error
		for i, strategy := range m.strategies {
			attemptLogger := logger.With(
				logging.String("strategy", strategy.Name),
				logging.Int("attempt", i+1),
			)
			attemptCtx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
			err := m.fetcher.Fetch(attemptCtx, sourceRef, dest, strategy)
			ctxErr := attemptCtx.Err()
			cancel()

			if ctxErr != nil {
				m.discardArtifact(job.ID, workspace.KindVideo, logger)
				if errors.Is(ctxErr, context.DeadlineExceeded) {
					return services.Wrap(services.ErrTimeout, string(StageFetching), "fetch",
						fmt.Sprintf("strategy %s exceeded %s", strategy.Name, m.fetchTimeout), err)
				}
				return fmt.Errorf("fetch interrupted: %w", ctxErr)
			}
			if err != nil {
				lastErr = services.Wrap(services.ErrExternalTool, string(StageFetching), "fetch", "strategy "+strategy.Name, err)
				logging.WarnWithContext(attemptLogger, "fetch attempt failed", "fetch_attempt_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "trying next strategy"),
				)
				continue
			}
			if !m.workspaces.Exists(job.ID, workspace.KindVideo) {
				lastErr = services.Wrap(services.ErrExternalTool, string(StageFetching), "fetch",
					fmt.Sprintf("strategy %s produced no video", strategy.Name), nil)
				logging.WarnWithContext(attemptLogger, "fetch attempt produced no video", "fetch_attempt_failed",
					logging.String(logging.FieldImpact, "trying next strategy"),
				)
				continue
			}
			attemptLogger.Info("video fetched", logging.String("path", dest))
			return nil
		}

		m.discardArtifact(job.ID, workspace.KindVideo, logger)
		if lastErr == nil {
			lastErr = services.Wrap(services.ErrConfiguration, string(StageFetching), "fetch", "no fetch strategies configured", nil)
		}
		return lastErr
	})
}

// transcode extracts audio from the job's video. It is not retried.
func (m *Manager) transcode(ctx context.Context, job *Job) error {
	if !m.workspaces.Exists(job.ID, workspace.KindVideo) {
		return services.Wrap(services.ErrArtifactNotFound, string(StageTranscoding), "transcode", "video for job "+job.ID, nil)
	}
	input, err := m.workspaces.ArtifactPath(job.ID, workspace.KindVideo)
	if err != nil {
		return err
	}
	output, err := m.workspaces.ArtifactPath(job.ID, workspace.KindAudio)
	if err != nil {
		return err
	}

	return m.runStage(ctx, job, StageTranscoding, func(ctx context.Context, logger *slog.Logger) error {
		stageCtx, cancel := context.WithTimeout(ctx, m.transcodeTimeout)
		defer cancel()
		if err := m.transcoder.ExtractAudio(stageCtx, input, output); err != nil {
			m.discardArtifact(job.ID, workspace.KindAudio, logger)
			if errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
				return services.Wrap(services.ErrTimeout, string(StageTranscoding), "extract audio",
					fmt.Sprintf("exceeded %s", m.transcodeTimeout), err)
			}
			return services.Wrap(services.ErrExternalTool, string(StageTranscoding), "extract audio", "", err)
		}
		logger.Info("audio extracted", logging.String("path", output))
		return nil
	})
}

// transcribe produces the transcript from the audio artifact, transcoding the
// video first when only the video is present.
func (m *Manager) transcribe(ctx context.Context, job *Job, lang string) (string, error) {
	if m.transcriber == nil {
		return "", services.Wrap(services.ErrConfiguration, string(StageTranscribing), "transcribe", "transcription provider not configured", nil)
	}
	code, err := language.NormalizeOr(lang, m.defaultLanguage)
	if err != nil {
		return "", err
	}

	if !m.workspaces.Exists(job.ID, workspace.KindAudio) {
		if !m.workspaces.Exists(job.ID, workspace.KindVideo) {
			return "", services.Wrap(services.ErrArtifactNotFound, string(StageTranscribing), "transcribe", "no audio or video for job "+job.ID, nil)
		}
		if err := m.transcode(ctx, job); err != nil {
			return "", err
		}
	}
	audioPath, err := m.workspaces.ArtifactPath(job.ID, workspace.KindAudio)
	if err != nil {
		return "", err
	}
	m.update(job, func(j *Job) { j.Language = code })

	var text string
	err = m.runStage(ctx, job, StageTranscribing, func(ctx context.Context, logger *slog.Logger) error {
		stageCtx, cancel := context.WithTimeout(ctx, m.transcribeTimeout)
		defer cancel()
		tokens, err := m.transcriber.TranscribeAudio(stageCtx, audioPath, code)
		if err != nil {
			if errors.Is(stageCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
				return services.Wrap(services.ErrTimeout, string(StageTranscribing), "transcribe",
					fmt.Sprintf("exceeded %s", m.transcribeTimeout), err)
			}
			return err
		}
		lines := transcript.Assemble(tokens)
		text = transcript.Format(lines)
		if _, err := m.workspaces.WriteArtifact(job.ID, workspace.KindTranscript, []byte(text)); err != nil {
			return err
		}
		logger.Info("transcript written",
			logging.String("language", code),
			logging.Int("tokens", len(tokens)),
			logging.Int("lines", len(lines)),
			logging.Int("speakers", len(transcript.Speakers(lines))),
		)
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (m *Manager) discardArtifact(jobID string, kind workspace.Kind, logger *slog.Logger) {
	if err := m.workspaces.RemoveArtifact(jobID, kind); err != nil {
		logging.WarnWithContext(logger, "failed to remove partial artifact", "artifact_cleanup_failed",
			logging.String("artifact", string(kind)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "partial file left in workspace until reaped"),
		)
	}
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrTimeout):
		return "source or provider too slow; retry or raise the stage timeout"
	case errors.Is(err, services.ErrConfiguration):
		return "check configuration and API credentials"
	case errors.Is(err, services.ErrTransient):
		return "provider unavailable or rate limited; retry later"
	case errors.Is(err, services.ErrExternalTool):
		return "check the external tool output in the error message"
	default:
		return "check logs for details"
	}
}
