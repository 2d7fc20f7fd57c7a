package transcript

import "strings"

// UnknownSpeaker labels words the provider could not attribute.
const UnknownSpeaker = "Unknown"

// Kind distinguishes spoken words from tagged non-speech sounds.
type Kind string

const (
	KindWord           Kind = "word"
	KindNonSpeechEvent Kind = "non_speech_event"
)

// Token is one diarized unit returned by the speech-to-text provider. An empty
// Speaker means the provider did not assign one.
type Token struct {
	Text    string
	Kind    Kind
	Speaker string
	Start   float64
	End     float64
}

// Line is a run of consecutive words from one speaker.
type Line struct {
	Speaker string
	Text    string
}

func (l Line) String() string {
	return l.Speaker + ": " + l.Text
}

// Assemble folds tokens into speaker-labeled lines. Non-speech events and
// blank words are dropped, consecutive words from the same speaker share a line, and every
// speaker change starts a new one. Empty input yields no lines.
func Assemble(tokens []Token) []Line {
	var (
		lines   []Line
		speaker string
		words   []string
	)
	flush := func() {
		if len(words) == 0 {
			return
		}
		lines = append(lines, Line{Speaker: speaker, Text: strings.TrimSpace(strings.Join(words, " "))})
		words = nil
	}

	for _, token := range tokens {
		text := strings.TrimSpace(token.Text)
		if token.Kind == KindNonSpeechEvent || text == "" {
			continue
		}
		who := token.Speaker
		if who == "" {
			who = UnknownSpeaker
		}
		if len(words) > 0 && who != speaker {
			flush()
		}
		speaker = who
		words = append(words, text)
	}
	flush()
	return lines
}

// Format renders lines in the persisted transcript form, one per row.
func Format(lines []Line) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Speakers returns the distinct speaker labels in order of first appearance.
func Speakers(lines []Line) []string {
	seen := make(map[string]struct{}, len(lines))
	var out []string
	for _, line := range lines {
		if _, ok := seen[line.Speaker]; ok {
			continue
		}
		seen[line.Speaker] = struct{}{}
		out = append(out, line.Speaker)
	}
	return out
}

// Preview truncates text to max bytes on a rune boundary, appending "..." when
// anything was cut.
func Preview(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
