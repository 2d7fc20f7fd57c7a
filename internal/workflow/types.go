package workflow

import (
	"context"
	"fmt"
	"time"

	"adscribe/internal/services/ytdlp"
	"adscribe/internal/transcript"
	"adscribe/internal/workspace"
)

// Stage is a job lifecycle state.
type Stage string

const (
	StageCreated      Stage = "created"
	StageFetching     Stage = "fetching"
	StageFetched      Stage = "fetched"
	StageTranscoding  Stage = "transcoding"
	StageTranscoded   Stage = "transcoded"
	StageTranscribing Stage = "transcribing"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// Stages lists every lifecycle state in pipeline order.
func Stages() []Stage {
	return []Stage{
		StageCreated,
		StageFetching,
		StageFetched,
		StageTranscoding,
		StageTranscoded,
		StageTranscribing,
		StageDone,
		StageFailed,
	}
}

// completed maps a running stage onto the state it leaves behind on success.
func (s Stage) completed() Stage {
	switch s {
	case StageFetching:
		return StageFetched
	case StageTranscoding:
		return StageTranscoded
	case StageTranscribing:
		return StageDone
	default:
		return s
	}
}

// Job is the in-memory record for one pipeline run. Callers always receive
// copies.
type Job struct {
	ID          string
	Stage       Stage
	SourceRef   string
	Language    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FailedStage Stage
	Err         error
}

// StageError reports which stage failed and why.
type StageError struct {
	Stage Stage
	Cause error
}

func (e *StageError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s failed", e.Stage)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// Result is returned by every entry point. Artifacts lists the files present
// in the workspace when the call finished; Transcript is set once the
// transcribe stage has produced one.
type Result struct {
	Job        Job
	Artifacts  map[workspace.Kind]string
	Transcript string
}

// Workspaces is the slice of the workspace manager the orchestrator needs.
type Workspaces interface {
	Create(jobID string) (workspace.Handle, error)
	ArtifactPath(jobID string, kind workspace.Kind) (string, error)
	Exists(jobID string, kind workspace.Kind) bool
	WorkspaceExists(jobID string) bool
	Remove(jobID string) error
	RemoveArtifact(jobID string, kind workspace.Kind) error
	WriteArtifact(jobID string, kind workspace.Kind, data []byte) (string, error)
}

// Fetcher downloads a source into dest with one strategy.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, dest string, strategy ytdlp.Strategy) error
}

// Transcoder extracts the audio track of a video file.
type Transcoder interface {
	ExtractAudio(ctx context.Context, input, output string) error
}

// Transcriber turns an audio file into diarized tokens.
type Transcriber interface {
	TranscribeAudio(ctx context.Context, audioPath, language string) ([]transcript.Token, error)
}
