package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"adscribe/internal/services"
	"adscribe/internal/transcript"
)

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, []byte("ID3-fake-audio"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	client, err := New(Config{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		Diarize:        true,
		NumSpeakers:    2,
		TagAudioEvents: true,
		HTTPClient:     srv.Client(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTranscribeSendsMultipartAndMapsWords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech-to-text" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		want := map[string]string{
			"model_id":               "scribe_v1",
			"language_code":          "de",
			"diarize":                "true",
			"num_speakers":           "2",
			"tag_audio_events":       "true",
			"timestamps_granularity": "word",
		}
		for key, value := range want {
			if got := r.FormValue(key); got != value {
				t.Errorf("field %s = %q, want %q", key, got, value)
			}
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			if string(data) != "ID3-fake-audio" || header.Filename != "audio.mp3" {
				t.Errorf("unexpected upload %q %q", header.Filename, data)
			}
		}
		_, _ = io.WriteString(w, `{
			"language_code": "deu",
			"text": "Hallo Welt",
			"words": [
				{"text": "Hallo", "type": "word", "start": 0.1, "end": 0.4, "speaker_id": "speaker_0"},
				{"text": " ", "type": "spacing", "speaker_id": "speaker_0"},
				{"text": "(Musik)", "type": "audio_event", "speaker_id": null},
				{"text": "Welt", "type": "word", "start": 0.5, "end": 0.8, "speaker_id": null}
			]
		}`)
	}))
	defer srv.Close()

	tokens, err := newTestClient(t, srv).TranscribeAudio(context.Background(), writeSample(t), "de")
	if err != nil {
		t.Fatalf("TranscribeAudio: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("expected spacing dropped, got %d tokens", len(tokens))
	}
	if tokens[0].Speaker != "speaker_0" || tokens[0].Kind != transcript.KindWord || tokens[0].Start != 0.1 {
		t.Fatalf("unexpected first token %+v", tokens[0])
	}
	if tokens[1].Kind != transcript.KindNonSpeechEvent {
		t.Fatalf("expected audio event token, got %+v", tokens[1])
	}
	if tokens[2].Speaker != "" {
		t.Fatalf("expected null speaker to map to empty, got %q", tokens[2].Speaker)
	}

	lines := transcript.Assemble(tokens)
	if got := transcript.Format(lines); got != "speaker_0: Hallo\nUnknown: Welt\n" {
		t.Fatalf("assembled transcript = %q", got)
	}
}

func TestTranscribeClassifiesProviderErrors(t *testing.T) {
	cases := []struct {
		status int
		body   string
		marker error
	}{
		{http.StatusUnauthorized, `{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`, services.ErrConfiguration},
		{http.StatusTooManyRequests, `{"detail":"slow down"}`, services.ErrTransient},
		{http.StatusUnprocessableEntity, `bad audio`, services.ErrExternalTool},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = io.WriteString(w, tc.body)
		}))
		_, err := newTestClient(t, srv).TranscribeAudio(context.Background(), writeSample(t), "de")
		srv.Close()
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.marker, err)
		}
	}
}

func TestTranscribeErrorIncludesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).TranscribeAudio(context.Background(), writeSample(t), "de")
	if err == nil || !strings.Contains(err.Error(), "Invalid API key") {
		t.Fatalf("expected provider detail in error, got %v", err)
	}
}

func TestTranscribeHonoursDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestClient(t, srv).TranscribeAudio(ctx, writeSample(t), "de")
	if !errors.Is(err, services.ErrTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("request should not be sent")
	}))
	defer srv.Close()
	if _, err := newTestClient(t, srv).TranscribeAudio(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), "de"); err == nil {
		t.Fatal("expected error for missing audio")
	}
}

func TestAddVoiceAndTextToSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/voices/add":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			if r.FormValue("name") != "Ad-Voice-12345678" {
				t.Errorf("unexpected name %q", r.FormValue("name"))
			}
			if len(r.MultipartForm.File["files"]) != 1 {
				t.Errorf("expected one sample file")
			}
			_, _ = io.WriteString(w, `{"voice_id":"voice-abc"}`)
		case "/v1/text-to-speech/voice-abc":
			var body struct {
				Text          string        `json:"text"`
				ModelID       string        `json:"model_id"`
				VoiceSettings VoiceSettings `json:"voice_settings"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode tts body: %v", err)
			}
			if body.Text != "Guten Tag" || body.ModelID != "eleven_multilingual_v2" || body.VoiceSettings.Stability != 0.5 {
				t.Errorf("unexpected tts body %+v", body)
			}
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("mp3-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	voiceID, err := client.AddVoice(context.Background(), "Ad-Voice-12345678", writeSample(t))
	if err != nil {
		t.Fatalf("AddVoice: %v", err)
	}
	if voiceID != "voice-abc" {
		t.Fatalf("voice id = %q", voiceID)
	}
	audio, err := client.TextToSpeech(context.Background(), voiceID, "Guten Tag", DefaultVoiceSettings())
	if err != nil {
		t.Fatalf("TextToSpeech: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("audio = %q", audio)
	}
	if _, err := client.TextToSpeech(context.Background(), voiceID, "  ", DefaultVoiceSettings()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty text, got %v", err)
	}
}
