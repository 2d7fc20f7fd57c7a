package daemon

import (
	"bytes"
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

	"adscribe/internal/config"
	"adscribe/internal/quota"
	"adscribe/internal/services/elevenlabs"
	"adscribe/internal/services/ytdlp"
	"adscribe/internal/transcript"
	"adscribe/internal/workflow"
	"adscribe/internal/workspace"
)

const adURL = "https://www.facebook.com/ads/library/?id=123456789"

type fetcherStub struct {
	err error
}

func (s *fetcherStub) Fetch(_ context.Context, _, dest string, _ ytdlp.Strategy) error {
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(dest, []byte("0123456789"), 0o644)
}

type transcoderStub struct{}

func (transcoderStub) ExtractAudio(_ context.Context, _, output string) error {
	return os.WriteFile(output, []byte("mp3"), 0o644)
}

type transcriberStub struct{}

func (transcriberStub) TranscribeAudio(context.Context, string, string) ([]transcript.Token, error) {
	return []transcript.Token{
		{Text: "Kauf", Kind: transcript.KindWord, Speaker: "speaker_0"},
		{Text: "jetzt", Kind: transcript.KindWord, Speaker: "speaker_0"},
	}, nil
}

type voicesStub struct {
	samples []string
}

func (v *voicesStub) AddVoice(_ context.Context, _ string, samples ...string) (string, error) {
	v.samples = samples
	return "voice-1", nil
}

func (v *voicesStub) TextToSpeech(context.Context, string, string, elevenlabs.VoiceSettings) ([]byte, error) {
	return []byte("ID3"), nil
}

type testEnv struct {
	cfg     *config.Config
	ws      *workspace.Manager
	fetcher *fetcherStub
	daemon  *Daemon
}

func newTestEnv(t *testing.T, limit int, mutate func(*config.Config, *Services)) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = t.TempDir()
	cfg.Paths.LogDir = ""
	cfg.Server.Bind = "127.0.0.1:0"

	env := &testEnv{cfg: &cfg, ws: workspace.New(cfg.Paths.WorkspaceDir), fetcher: &fetcherStub{}}
	svc := Services{
		Workflow: workflow.NewManager(env.ws, env.fetcher, transcoderStub{}, transcriberStub{}),
		Quota:    quota.New(limit),
	}
	if mutate != nil {
		mutate(env.cfg, &svc)
	}
	d, err := New(env.cfg, nil, svc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.daemon = d
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.daemon.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthReportsQuota(t *testing.T) {
	env := newTestEnv(t, 5, nil)
	rec := env.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp healthResponse
	decode(t, rec, &resp)
	if resp.Status != "ok" || resp.RateLimit.DailyLimit != 5 || resp.RateLimit.Remaining != 5 {
		t.Fatalf("unexpected health payload %+v", resp)
	}
	if !resp.Features.Transcription || resp.Features.VoiceCloning {
		t.Fatalf("unexpected features %+v", resp.Features)
	}
	if len(resp.Dependencies) != 2 {
		t.Fatalf("expected two dependency entries, got %d", len(resp.Dependencies))
	}
}

func TestQuotaRejectsAfterLimit(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodPost, "/api/download", `{"url":"https://example.com"}`); rec.Code != http.StatusBadRequest {
			t.Fatalf("request %d: expected 400, got %d", i+1, rec.Code)
		}
	}
	if rec := env.do(t, http.MethodGet, "/api/jobs/"+"3f2b9c1e-8d4a-4f6b-9a1c-2e5d7f8a9b0c", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("GET routes bypass the quota, expected 404, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/download", `{"url":"`+adURL+`"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	var resp quotaExceededResponse
	decode(t, rec, &resp)
	if resp.Limit != 2 || resp.ResetAt == "" {
		t.Fatalf("unexpected quota payload %+v", resp)
	}
	entries, _ := os.ReadDir(env.cfg.Paths.WorkspaceDir)
	if len(entries) != 0 {
		t.Fatalf("rejected request must not create workspaces, found %d", len(entries))
	}
}

func TestDownloadServesArtifact(t *testing.T) {
	env := newTestEnv(t, 10, nil)
	rec := env.do(t, http.MethodPost, "/api/download", `{"url":"`+adURL+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp downloadResponse
	decode(t, rec, &resp)
	if !resp.Success || resp.VideoSize != 10 {
		t.Fatalf("unexpected download payload %+v", resp)
	}
	if resp.VideoPath != "/api/download/video/"+resp.RequestID {
		t.Fatalf("unexpected video path %q", resp.VideoPath)
	}

	rec = env.do(t, http.MethodGet, resp.VideoPath, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "ad-"+resp.RequestID+".mp4") {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	if rec.Body.String() != "0123456789" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, resp.VideoPath, "", "Range", "bytes=2-4")
	if rec.Code != http.StatusPartialContent || rec.Body.String() != "234" {
		t.Fatalf("range request: got %d %q", rec.Code, rec.Body.String())
	}
}

func TestDownloadFailureReportsStage(t *testing.T) {
	env := newTestEnv(t, 10, nil)
	env.fetcher.err = errors.New("yt-dlp: exit status 1")

	rec := env.do(t, http.MethodPost, "/api/download", `{"url":"`+adURL+`"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp errorResponse
	decode(t, rec, &resp)
	if resp.Stage != string(workflow.StageFetching) {
		t.Fatalf("expected fetching stage, got %+v", resp)
	}
	entries, _ := os.ReadDir(env.cfg.Paths.WorkspaceDir)
	if len(entries) != 0 {
		t.Fatalf("failed download must not leave a workspace, found %d", len(entries))
	}
}

func TestTranscribeMissingArtifactReturns404(t *testing.T) {
	env := newTestEnv(t, 10, nil)
	id := "3f2b9c1e-8d4a-4f6b-9a1c-2e5d7f8a9b0c"
	if _, err := env.ws.Create(id); err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec := env.do(t, http.MethodPost, "/api/transcribe/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestProcessReturnsPreviewAndLinks(t *testing.T) {
	env := newTestEnv(t, 10, nil)
	rec := env.do(t, http.MethodPost, "/api/process", `{"url":"`+adURL+`","language":"de"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp processResponse
	decode(t, rec, &resp)
	if resp.Transcription != "speaker_0: Kauf jetzt\n" {
		t.Fatalf("unexpected transcription %q", resp.Transcription)
	}
	if len(resp.Downloads) != 3 {
		t.Fatalf("expected three download links, got %v", resp.Downloads)
	}

	rec = env.do(t, http.MethodGet, "/api/jobs/"+resp.RequestID, "")
	var job jobResponse
	decode(t, rec, &job)
	if job.Stage != string(workflow.StageDone) || job.Language != "de" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestProcessRejectsUnknownLanguage(t *testing.T) {
	env := newTestEnv(t, 10, nil)
	rec := env.do(t, http.MethodPost, "/api/process", `{"url":"`+adURL+`","language":"klingon-xx-!!"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthRequiresBearerToken(t *testing.T) {
	env := newTestEnv(t, 10, func(cfg *config.Config, _ *Services) {
		cfg.Server.APIToken = "s3cret"
	})
	id := "3f2b9c1e-8d4a-4f6b-9a1c-2e5d7f8a9b0c"

	if rec := env.do(t, http.MethodGet, "/api/jobs/"+id, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/jobs/"+id, "", "Authorization", "Bearer wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/jobs/"+id, "", "Authorization", "Bearer s3cret"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with valid token, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", rec.Code)
	}
}

func TestVoiceRoutes(t *testing.T) {
	voices := &voicesStub{}
	env := newTestEnv(t, 10, func(_ *config.Config, svc *Services) {
		svc.Voices = voices
	})
	id := "3f2b9c1e-8d4a-4f6b-9a1c-2e5d7f8a9b0c"
	if _, err := env.ws.Create(id); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec := env.do(t, http.MethodPost, "/api/clone-voice/"+id, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without audio, got %d", rec.Code)
	}
	if _, err := env.ws.WriteArtifact(id, workspace.KindAudio, []byte("mp3")); err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/clone-voice/"+id, "")
	var clone cloneVoiceResponse
	decode(t, rec, &clone)
	if clone.VoiceID != "voice-1" || len(voices.samples) != 1 || filepath.Base(voices.samples[0]) != "audio.mp3" {
		t.Fatalf("unexpected clone result %+v samples=%v", clone, voices.samples)
	}

	if rec := env.do(t, http.MethodPost, "/api/text-to-speech/voice-1", `{"text":""}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty text, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/text-to-speech/voice-1", `{"text":"Hallo"}`)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "audio/mpeg" || !bytes.Equal(rec.Body.Bytes(), []byte("ID3")) {
		t.Fatalf("unexpected tts response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestVoiceRoutesWithoutProvider(t *testing.T) {
	env := newTestEnv(t, 10, nil)
	if rec := env.do(t, http.MethodPost, "/api/text-to-speech/voice-1", `{"text":"Hallo"}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestStartEnforcesSingleInstance(t *testing.T) {
	env := newTestEnv(t, 10, nil)
	if err := env.daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer env.daemon.Stop()

	second, err := New(env.cfg, nil, Services{
		Workflow: workflow.NewManager(env.ws, env.fetcher, transcoderStub{}, transcriberStub{}),
		Quota:    quota.New(1),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second daemon to fail acquiring the lock")
	}

	resp, err := http.Get("http://" + env.daemon.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from live server, got %d", resp.StatusCode)
	}
}
