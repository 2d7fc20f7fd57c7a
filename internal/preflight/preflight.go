package preflight

import (
	"context"

	"adscribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the local readiness checks: workspace access and external
// binaries. Provider connectivity runs only when online is set.
func RunAll(ctx context.Context, cfg *config.Config, online bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir)}
	for _, status := range CheckSystemDeps(cfg) {
		detail := status.Path
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail})
	}
	if online {
		results = append(results, CheckTranscriptionKey(ctx, cfg.Transcription.BaseURL, cfg.Transcription.APIKey))
	} else if !cfg.TranscriptionEnabled() {
		results = append(results, Result{Name: "ElevenLabs", Detail: "API key missing (set ELEVENLABS_API_KEY)"})
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
