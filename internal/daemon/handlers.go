package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"adscribe/internal/language"
	"adscribe/internal/services"
	"adscribe/internal/services/elevenlabs"
	"adscribe/internal/transcript"
	"adscribe/internal/workspace"
)

const (
	maxRequestBody    = 1 << 20
	transcriptPreview = 500
)

type sourceRequest struct {
	URL      string `json:"url"`
	Language string `json:"language"`
}

type transcribeRequest struct {
	Language string `json:"language"`
}

type speechRequest struct {
	Text string `json:"text"`
}

// decodeBody reads an optional JSON body. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return services.Wrap(services.ErrValidation, "", "decode request", "malformed JSON body", err)
}

func (d *Daemon) validateSourceURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" || !d.urlPattern.MatchString(value) {
		return "", services.Wrap(services.ErrValidation, "", "validate url",
			fmt.Sprintf("url must match %s", d.urlPattern.String()), nil)
	}
	return value, nil
}

func artifactLink(kind workspace.Kind, jobID string) string {
	return "/api/download/" + string(kind) + "/" + jobID
}

func (d *Daemon) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":   "adscribe",
		"health": "/health",
	})
}

func (d *Daemon) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sourceURL, err := d.validateSourceURL(req.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := d.workflow.Download(r.Context(), sourceURL)
	if err != nil {
		writeError(w, err)
		return
	}
	var size int64
	if info, err := os.Stat(res.Artifacts[workspace.KindVideo]); err == nil {
		size = info.Size()
	}
	writeJSON(w, http.StatusOK, downloadResponse{
		Success:   true,
		RequestID: res.Job.ID,
		Message:   "video downloaded",
		VideoSize: size,
		VideoPath: artifactLink(workspace.KindVideo, res.Job.ID),
	})
}

func (d *Daemon) handleExtractAudio(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	res, err := d.workflow.RunTranscode(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, extractAudioResponse{
		Success:   true,
		RequestID: res.Job.ID,
		Message:   "audio extracted",
		AudioPath: artifactLink(workspace.KindAudio, res.Job.ID),
	})
}

func (d *Daemon) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	var req transcribeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := d.workflow.RunTranscribe(r.Context(), jobID, req.Language)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transcribeResponse{
		Success:       true,
		RequestID:     res.Job.ID,
		Message:       "transcription complete",
		Language:      res.Job.Language,
		Transcription: res.Transcript,
		DownloadURL:   artifactLink(workspace.KindTranscript, res.Job.ID),
	})
}

func (d *Daemon) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sourceURL, err := d.validateSourceURL(req.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	if !d.workflow.TranscriptionEnabled() {
		writeError(w, services.Wrap(services.ErrConfiguration, "", "process", "transcription provider not configured", nil))
		return
	}
	if strings.TrimSpace(req.Language) != "" {
		if _, err := language.Normalize(req.Language); err != nil {
			writeError(w, err)
			return
		}
	}

	job, err := d.workflow.CreateJob(sourceURL, req.Language)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := d.workflow.RunFull(r.Context(), job.ID, sourceURL, req.Language)
	if err != nil {
		writeError(w, err)
		return
	}

	downloads := make(map[string]string, len(res.Artifacts))
	for kind := range res.Artifacts {
		downloads[string(kind)] = artifactLink(kind, res.Job.ID)
	}
	writeJSON(w, http.StatusOK, processResponse{
		Success:       true,
		RequestID:     res.Job.ID,
		Message:       "processing complete",
		Downloads:     downloads,
		Transcription: transcript.Preview(res.Transcript, transcriptPreview),
	})
}

func (d *Daemon) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := d.workflow.Job(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	resp := jobResponse{
		ID:          job.ID,
		Stage:       string(job.Stage),
		SourceRef:   job.SourceRef,
		Language:    job.Language,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		FailedStage: string(job.FailedStage),
		Downloads:   make(map[string]string, 3),
	}
	if job.Err != nil {
		resp.Error = job.Err.Error()
	}
	for _, kind := range workspace.Kinds() {
		if d.workflow.ArtifactExists(job.ID, kind) {
			resp.Downloads[string(kind)] = artifactLink(kind, job.ID)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

var artifactContentTypes = map[workspace.Kind]string{
	workspace.KindVideo:      "video/mp4",
	workspace.KindAudio:      "audio/mpeg",
	workspace.KindTranscript: "text/plain; charset=utf-8",
}

func (d *Daemon) attachmentName(kind workspace.Kind, jobID string) string {
	prefix := d.cfg.Server.DownloadPrefix
	switch kind {
	case workspace.KindVideo:
		return prefix + "-" + jobID + ".mp4"
	case workspace.KindAudio:
		return prefix + "-" + jobID + ".mp3"
	default:
		return prefix + "-" + jobID + "-transcript.txt"
	}
}

// handleArtifact streams one artifact as an attachment. Range requests are
// served by http.ServeContent.
func (d *Daemon) handleArtifact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, err := workspace.ParseKind(vars["kind"])
	if err != nil {
		writeError(w, err)
		return
	}
	jobID := vars["id"]
	path, err := d.workflow.ArtifactPath(jobID, kind)
	if err != nil {
		writeError(w, err)
		return
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, services.Wrap(services.ErrArtifactNotFound, "", "open artifact", string(kind), nil))
			return
		}
		writeError(w, err)
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		writeError(w, err)
		return
	}

	name := d.attachmentName(kind, jobID)
	w.Header().Set("Content-Type", artifactContentTypes[kind])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), file)
}

func (d *Daemon) handleCloneVoice(w http.ResponseWriter, r *http.Request) {
	if d.voices == nil {
		writeError(w, services.Wrap(services.ErrConfiguration, "", "clone voice", "ElevenLabs API key not configured", nil))
		return
	}
	jobID := mux.Vars(r)["id"]
	if err := workspace.ValidateID(jobID); err != nil {
		writeError(w, err)
		return
	}
	audioPath, err := d.workflow.ArtifactPath(jobID, workspace.KindAudio)
	if err != nil {
		writeError(w, err)
		return
	}
	voiceID, err := d.voices.AddVoice(r.Context(), "Ad-Voice-"+jobID[:8], audioPath)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cloneVoiceResponse{Success: true, VoiceID: voiceID, Message: "voice cloned"})
}

func (d *Daemon) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	if d.voices == nil {
		writeError(w, services.Wrap(services.ErrConfiguration, "", "text to speech", "ElevenLabs API key not configured", nil))
		return
	}
	var req speechRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, services.Wrap(services.ErrValidation, "", "text to speech", "text is required", nil))
		return
	}
	audio, err := d.voices.TextToSpeech(r.Context(), mux.Vars(r)["voiceId"], req.Text, elevenlabs.DefaultVoiceSettings())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}
