package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"adscribe/internal/deps"
	"adscribe/internal/services"
	"adscribe/internal/workflow"
)

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

type quotaExceededResponse struct {
	Error   string `json:"error"`
	Limit   int    `json:"limit"`
	ResetAt string `json:"resetAt"`
}

type downloadResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId"`
	Message   string `json:"message"`
	VideoSize int64  `json:"videoSize"`
	VideoPath string `json:"videoPath"`
}

type extractAudioResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId"`
	Message   string `json:"message"`
	AudioPath string `json:"audioPath"`
}

type transcribeResponse struct {
	Success       bool   `json:"success"`
	RequestID     string `json:"requestId"`
	Message       string `json:"message"`
	Language      string `json:"language"`
	Transcription string `json:"transcription"`
	DownloadURL   string `json:"downloadUrl"`
}

type processResponse struct {
	Success       bool              `json:"success"`
	RequestID     string            `json:"requestId"`
	Message       string            `json:"message"`
	Downloads     map[string]string `json:"downloads"`
	Transcription string            `json:"transcription"`
}

type jobResponse struct {
	ID          string            `json:"id"`
	Stage       string            `json:"stage"`
	SourceRef   string            `json:"sourceRef,omitempty"`
	Language    string            `json:"language,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	FailedStage string            `json:"failedStage,omitempty"`
	Error       string            `json:"error,omitempty"`
	Downloads   map[string]string `json:"downloads"`
}

type cloneVoiceResponse struct {
	Success bool   `json:"success"`
	VoiceID string `json:"voiceId"`
	Message string `json:"message"`
}

type rateLimitResponse struct {
	DailyLimit int    `json:"dailyLimit"`
	UsedToday  int    `json:"usedToday"`
	Remaining  int    `json:"remaining"`
	ResetAt    string `json:"resetAt"`
}

type featuresResponse struct {
	Transcription      bool   `json:"transcription"`
	Provider           string `json:"provider"`
	SpeakerDiarization bool   `json:"speakerDiarization"`
	VoiceCloning       bool   `json:"voiceCloning"`
}

type healthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	RateLimit    rateLimitResponse `json:"rateLimit"`
	Features     featuresResponse  `json:"features"`
	Dependencies []deps.Status     `json:"dependencies"`
	Jobs         map[string]int    `json:"jobs"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps err onto a status code. Stage failures report 500 with the
// failed stage; everything else follows the error marker.
func writeError(w http.ResponseWriter, err error) {
	var stageErr *workflow.StageError
	if errors.As(err, &stageErr) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Stage: string(stageErr.Stage)})
		return
	}
	writeJSON(w, services.HTTPStatus(err), errorResponse{Error: err.Error()})
}
