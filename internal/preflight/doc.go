// Package preflight provides readiness checks for the filesystem paths,
// external binaries, and provider credentials adscribe depends on.
//
// The daemon logs the results at startup and the CLI "adscribe status --check"
// command renders them. Failed checks are reported, never fatal: a missing
// ffmpeg only breaks the stages that need it.
package preflight
