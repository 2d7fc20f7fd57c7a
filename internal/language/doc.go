// Package language normalizes user-supplied language hints into the short
// codes the transcription provider accepts.
//
// BCP 47 parsing comes from golang.org/x/text/language; a small alias table
// covers English names and legacy ISO 639-2/B codes.
package language
