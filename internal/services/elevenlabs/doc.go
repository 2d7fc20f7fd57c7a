// Package elevenlabs is a thin client for the ElevenLabs HTTP API: diarized
// speech-to-text, instant voice cloning, and text-to-speech.
//
// Provider errors are tagged with services markers: rejected credentials map to
// ErrConfiguration, rate limits and 5xx to ErrTransient, everything else to
// ErrExternalTool. Deadlines come from the caller's context.
package elevenlabs
