package daemon

import (
	"net/http"
	"time"
)

const transcriptionProvider = "ElevenLabs Scribe"

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := d.Status()
	jobs := make(map[string]int, len(status.Jobs))
	for stage, count := range status.Jobs {
		jobs[string(stage)] = count
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RateLimit: rateLimitResponse{
			DailyLimit: status.Quota.Limit,
			UsedToday:  status.Quota.Count,
			Remaining:  status.Quota.Remaining,
			ResetAt:    status.Quota.ResetAt.Format(time.RFC3339),
		},
		Features: featuresResponse{
			Transcription:      status.TranscriptionEnabled,
			Provider:           transcriptionProvider,
			SpeakerDiarization: d.cfg.Transcription.Diarize,
			VoiceCloning:       status.VoicesEnabled,
		},
		Dependencies: status.Dependencies,
		Jobs:         jobs,
	})
}
