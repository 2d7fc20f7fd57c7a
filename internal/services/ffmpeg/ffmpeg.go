package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"adscribe/internal/services"
)

const (
	DefaultBinary      = "ffmpeg"
	DefaultCodec       = "libmp3lame"
	DefaultBitrateKbps = 128
)

// Request describes one audio extraction.
type Request struct {
	Input       string
	Output      string
	Codec       string
	BitrateKbps int
}

// Transcoder extracts audio tracks with ffmpeg.
type Transcoder struct {
	binary      string
	codec       string
	bitrateKbps int
	runner      services.CommandRunner
}

// New returns a transcoder with the given defaults for codec and bitrate.
func New(binary, codec string, bitrateKbps int) *Transcoder {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	if strings.TrimSpace(codec) == "" {
		codec = DefaultCodec
	}
	if bitrateKbps <= 0 {
		bitrateKbps = DefaultBitrateKbps
	}
	return &Transcoder{binary: binary, codec: codec, bitrateKbps: bitrateKbps, runner: services.RunCommand}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Transcoder) WithCommandRunner(runner services.CommandRunner) *Transcoder {
	if runner != nil {
		t.runner = runner
	}
	return t
}

// Binary returns the executable name.
func (t *Transcoder) Binary() string {
	return t.binary
}

// ExtractAudio writes the audio track of input to output as MP3. ffmpeg writes
// to a sibling temp file that is renamed on success, so a failed or killed run
// never leaves a partial output behind.
func (t *Transcoder) ExtractAudio(ctx context.Context, input, output string) error {
	return t.Transcode(ctx, Request{Input: input, Output: output})
}

// Transcode runs one request, filling unset fields from the transcoder defaults.
func (t *Transcoder) Transcode(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Input) == "" || strings.TrimSpace(req.Output) == "" {
		return fmt.Errorf("ffmpeg: input and output required")
	}
	if req.Codec == "" {
		req.Codec = t.codec
	}
	if req.BitrateKbps <= 0 {
		req.BitrateKbps = t.bitrateKbps
	}

	tmp := filepath.Join(filepath.Dir(req.Output), ".partial-"+filepath.Base(req.Output))
	defer os.Remove(tmp)

	if err := t.runner(ctx, t.binary, BuildArgs(req.Input, tmp, req.Codec, req.BitrateKbps)...); err != nil {
		return err
	}
	if _, err := os.Stat(tmp); err != nil {
		return fmt.Errorf("ffmpeg: no output produced: %w", err)
	}
	if err := os.Rename(tmp, req.Output); err != nil {
		return fmt.Errorf("ffmpeg: commit output: %w", err)
	}
	return nil
}

// BuildArgs assembles the ffmpeg command line for MP3 extraction.
func BuildArgs(input, output, codec string, bitrateKbps int) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-vn",
		"-c:a", codec,
		"-b:a", strconv.Itoa(bitrateKbps) + "k",
		"-f", "mp3",
		output,
	}
}
