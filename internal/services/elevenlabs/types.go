package elevenlabs

import (
	"strings"

	"adscribe/internal/transcript"
)

// Word is one entry of the speech-to-text word list.
type Word struct {
	Text      string  `json:"text"`
	Type      string  `json:"type"` // "word", "spacing", "audio_event"
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	SpeakerID *string `json:"speaker_id"`
}

// TranscriptionResponse is the speech-to-text response body.
type TranscriptionResponse struct {
	LanguageCode        string  `json:"language_code"`
	LanguageProbability float64 `json:"language_probability"`
	Text                string  `json:"text"`
	Words               []Word  `json:"words"`
}

// Tokens converts the word list into diarized tokens. Spacing entries carry no
// content and are dropped; audio events become non-speech tokens.
func (r TranscriptionResponse) Tokens() []transcript.Token {
	tokens := make([]transcript.Token, 0, len(r.Words))
	for _, w := range r.Words {
		token := transcript.Token{Text: w.Text, Start: w.Start, End: w.End}
		switch strings.ToLower(w.Type) {
		case "spacing":
			continue
		case "audio_event":
			token.Kind = transcript.KindNonSpeechEvent
		default:
			token.Kind = transcript.KindWord
		}
		if w.SpeakerID != nil {
			token.Speaker = strings.TrimSpace(*w.SpeakerID)
		}
		tokens = append(tokens, token)
	}
	return tokens
}
