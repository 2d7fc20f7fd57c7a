package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"adscribe/internal/services"
	"adscribe/internal/transcript"
)

const (
	defaultBaseURL     = "https://api.elevenlabs.io"
	defaultModelID     = "scribe_v1"
	defaultTTSModelID  = "eleven_multilingual_v2"
	defaultHTTPTimeout = 15 * time.Minute
	apiKeyHeader       = "xi-api-key"
	errorBodyLimit     = 4096
)

// Config describes the ElevenLabs client configuration.
type Config struct {
	APIKey         string
	BaseURL        string
	ModelID        string
	TTSModelID     string
	Diarize        bool
	NumSpeakers    int
	TagAudioEvents bool
	HTTPClient     *http.Client
}

// Client wraps the ElevenLabs speech-to-text, voice, and text-to-speech APIs.
type Client struct {
	apiKey         string
	baseURL        *url.URL
	modelID        string
	ttsModelID     string
	diarize        bool
	numSpeakers    int
	tagAudioEvents bool
	http           *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "elevenlabs", "api key is required", nil)
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: parse base url: %w", err)
	}
	modelID := strings.TrimSpace(cfg.ModelID)
	if modelID == "" {
		modelID = defaultModelID
	}
	ttsModelID := strings.TrimSpace(cfg.TTSModelID)
	if ttsModelID == "" {
		ttsModelID = defaultTTSModelID
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		apiKey:         apiKey,
		baseURL:        baseURL,
		modelID:        modelID,
		ttsModelID:     ttsModelID,
		diarize:        cfg.Diarize,
		numSpeakers:    cfg.NumSpeakers,
		tagAudioEvents: cfg.TagAudioEvents,
		http:           client,
	}, nil
}

// TranscribeRequest holds per-call transcription options.
type TranscribeRequest struct {
	AudioPath    string
	LanguageCode string
}

// Transcribe uploads the audio file and returns the provider's word list.
func (c *Client) Transcribe(ctx context.Context, req TranscribeRequest) (TranscriptionResponse, error) {
	if c == nil {
		return TranscriptionResponse{}, errors.New("elevenlabs: client is nil")
	}
	fields := map[string]string{
		"model_id":               c.modelID,
		"diarize":                strconv.FormatBool(c.diarize),
		"tag_audio_events":       strconv.FormatBool(c.tagAudioEvents),
		"timestamps_granularity": "word",
	}
	if lang := strings.TrimSpace(req.LanguageCode); lang != "" {
		fields["language_code"] = lang
	}
	if c.numSpeakers > 0 {
		fields["num_speakers"] = strconv.Itoa(c.numSpeakers)
	}

	body, contentType, err := multipartBody(fields, "file", req.AudioPath)
	if err != nil {
		return TranscriptionResponse{}, err
	}

	var payload TranscriptionResponse
	if err := c.do(ctx, http.MethodPost, "speech-to-text", contentType, body, "transcribe", &payload); err != nil {
		return TranscriptionResponse{}, err
	}
	return payload, nil
}

// TranscribeAudio transcribes audioPath and returns diarized tokens ready for
// transcript assembly.
func (c *Client) TranscribeAudio(ctx context.Context, audioPath, language string) ([]transcript.Token, error) {
	resp, err := c.Transcribe(ctx, TranscribeRequest{AudioPath: audioPath, LanguageCode: language})
	if err != nil {
		return nil, err
	}
	return resp.Tokens(), nil
}

// AddVoice creates an instant voice clone from the sample files and returns
// its voice id.
func (c *Client) AddVoice(ctx context.Context, name string, samples ...string) (string, error) {
	if len(samples) == 0 {
		return "", services.Wrap(services.ErrValidation, "", "add voice", "at least one sample is required", nil)
	}
	body, contentType, err := multipartBody(map[string]string{"name": name}, "files", samples...)
	if err != nil {
		return "", err
	}
	var payload struct {
		VoiceID string `json:"voice_id"`
	}
	if err := c.do(ctx, http.MethodPost, "voices/add", contentType, body, "add voice", &payload); err != nil {
		return "", err
	}
	if payload.VoiceID == "" {
		return "", services.Wrap(services.ErrExternalTool, "", "add voice", "response carried no voice_id", nil)
	}
	return payload.VoiceID, nil
}

// VoiceSettings tunes text-to-speech output.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// DefaultVoiceSettings returns balanced stability and similarity.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{Stability: 0.5, SimilarityBoost: 0.5}
}

// TextToSpeech renders text with the given voice and returns MP3 bytes.
func (c *Client) TextToSpeech(ctx context.Context, voiceID, text string, settings VoiceSettings) ([]byte, error) {
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" || strings.TrimSpace(text) == "" {
		return nil, services.Wrap(services.ErrValidation, "", "text to speech", "voice id and text are required", nil)
	}
	payload, err := json.Marshal(map[string]any{
		"text":           text,
		"model_id":       c.ttsModelID,
		"voice_settings": settings,
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode tts request: %w", err)
	}

	var audio bytes.Buffer
	if err := c.do(ctx, http.MethodPost, "text-to-speech/"+url.PathEscape(voiceID), "application/json", bytes.NewReader(payload), "text to speech", &audio); err != nil {
		return nil, err
	}
	return audio.Bytes(), nil
}

// do sends a request to /v1/<path>. out is either a JSON target or a
// *bytes.Buffer receiving the raw body.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, operation string, out any) error {
	endpoint := c.baseURL.JoinPath("v1", path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("elevenlabs: build %s request: %w", operation, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return services.Wrap(services.ErrTimeout, "", "elevenlabs "+operation, "request aborted", errors.Join(ctxErr, err))
		}
		return services.Wrap(services.ErrTransient, "", "elevenlabs "+operation, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return services.Wrap(statusMarker(resp.StatusCode), "", "elevenlabs "+operation,
			fmt.Sprintf("%s: %s", resp.Status, errorDetail(raw)), nil)
	}

	if buf, ok := out.(*bytes.Buffer); ok {
		if _, err := io.Copy(buf, resp.Body); err != nil {
			return fmt.Errorf("elevenlabs: read %s response: %w", operation, err)
		}
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternalTool, "", "elevenlabs "+operation, "decode response", err)
	}
	return nil
}

func statusMarker(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.ErrConfiguration
	case status == http.StatusTooManyRequests || status >= 500:
		return services.ErrTransient
	default:
		return services.ErrExternalTool
	}
}

// errorDetail extracts the provider's "detail" message when the body is JSON.
func errorDetail(raw []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Detail) > 0 {
		var message string
		if json.Unmarshal(envelope.Detail, &message) == nil {
			return message
		}
		var structured struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Detail, &structured) == nil && structured.Message != "" {
			return structured.Message
		}
		return string(envelope.Detail)
	}
	return strings.TrimSpace(string(raw))
}

func multipartBody(fields map[string]string, fileField string, paths ...string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("elevenlabs: write field %s: %w", key, err)
		}
	}
	for _, path := range paths {
		if err := attachFile(writer, fileField, path); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("elevenlabs: close multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func attachFile(writer *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("elevenlabs: open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("elevenlabs: create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("elevenlabs: copy %s: %w", filepath.Base(path), err)
	}
	return nil
}
