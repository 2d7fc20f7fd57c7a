// Package workflow drives a job through the fetch, transcode, and transcribe
// stages.
//
// The Manager owns the in-memory job records, applies the per-stage policy
// (ordered fetch strategies with a per-attempt timeout, single-shot transcode
// and transcription), and writes the assembled transcript into the job's
// workspace. Every stage can be re-entered on its own as long as its upstream
// artifact is present, and jobs that are not held in memory are adopted from
// their workspace directory on demand.
//
// Cleanup is decided by the entry point, not by the stage: RunFull and
// Download remove the workspace when they fail, the single-stage entry points
// never do.
package workflow
