// Package services defines shared utilities consumed by the pipeline stages and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (quota, validation, missing artifacts, tool errors) and map
//     them onto API responses.
//   - RunCommand, the process-group aware subprocess runner used by the yt-dlp
//     and ffmpeg adapters, and the CommandRunner type tests substitute.
package services
