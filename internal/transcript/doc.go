// Package transcript turns diarized word tokens into speaker-labeled lines.
//
// Assemble is a pure fold: it has no I/O, never fails, and returns a fresh
// slice, so it can run inside the transcription stage or in tests alike.
package transcript
