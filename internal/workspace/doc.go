// Package workspace manages the per-job directories that hold pipeline
// artifacts.
//
// A workspace is <root>/<job id>/ with at most one video.mp4, audio.mp3, and
// transcript.txt. Job ids must be canonical UUIDs. The manager never shares
// files across jobs and Remove is idempotent, so callers can roll back freely.
package workspace
