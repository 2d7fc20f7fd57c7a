package daemonrun

import (
	"fmt"
	"log/slog"
	"net/http"

	"adscribe/internal/config"
	"adscribe/internal/services/elevenlabs"
	"adscribe/internal/services/ffmpeg"
	"adscribe/internal/services/ytdlp"
	"adscribe/internal/workflow"
	"adscribe/internal/workspace"
)

// Pipeline holds the services built from configuration. Voices is nil when no
// provider key is configured.
type Pipeline struct {
	Workspaces *workspace.Manager
	Workflow   *workflow.Manager
	Voices     *elevenlabs.Client
}

// BuildPipeline wires the workspace manager, tool adapters, and provider
// client into a workflow manager.
func BuildPipeline(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	workspaces := workspace.New(cfg.Paths.WorkspaceDir)
	if err := workspaces.EnsureRoot(); err != nil {
		return nil, err
	}

	fetcher := ytdlp.New(cfg.Fetch.Binary)
	transcoder := ffmpeg.New(cfg.Transcode.Binary, cfg.Transcode.Codec, cfg.Transcode.BitrateKbps)

	var (
		transcriber workflow.Transcriber
		voices      *elevenlabs.Client
	)
	if cfg.TranscriptionEnabled() {
		client, err := elevenlabs.New(elevenlabs.Config{
			APIKey:         cfg.Transcription.APIKey,
			BaseURL:        cfg.Transcription.BaseURL,
			ModelID:        cfg.Transcription.ModelID,
			TTSModelID:     cfg.Transcription.TTSModelID,
			Diarize:        cfg.Transcription.Diarize,
			NumSpeakers:    cfg.Transcription.NumSpeakers,
			TagAudioEvents: cfg.Transcription.TagAudioEvents,
			HTTPClient:     &http.Client{Timeout: cfg.TranscriptionTimeout()},
		})
		if err != nil {
			return nil, err
		}
		transcriber = client
		voices = client
	}

	manager := workflow.NewManager(workspaces, fetcher, transcoder, transcriber,
		workflow.WithLogger(logger),
		workflow.WithStrategies(ytdlp.Strategies(cfg.Fetch.PrimaryFormat, cfg.Fetch.FallbackFormat, cfg.Fetch.FallbackUserAgent)...),
		workflow.WithTimeouts(cfg.FetchTimeout(), cfg.TranscodeTimeout(), cfg.TranscriptionTimeout()),
		workflow.WithDefaultLanguage(cfg.Transcription.DefaultLanguage),
	)
	return &Pipeline{Workspaces: workspaces, Workflow: manager, Voices: voices}, nil
}
