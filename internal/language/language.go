package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"adscribe/internal/services"
)

// Word forms and ISO 639-2/B codes that BCP 47 parsing does not accept.
var aliases = map[string]string{
	"english":    "en",
	"german":     "de",
	"deutsch":    "de",
	"ger":        "de",
	"french":     "fr",
	"fre":        "fr",
	"spanish":    "es",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"dut":        "nl",
	"polish":     "pl",
	"turkish":    "tr",
	"russian":    "ru",
	"chinese":    "zh",
	"chi":        "zh",
	"japanese":   "ja",
	"korean":     "ko",
	"arabic":     "ar",
}

// Normalize converts a language code, tag, or English name into the short code
// the transcription provider expects: ISO 639-1 where one exists, otherwise the
// ISO 639-3 code. Region and script subtags are dropped ("de-AT" -> "de").
func Normalize(input string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(input))
	if value == "" {
		return "", services.Wrap(services.ErrValidation, "", "normalize language", "language is empty", nil)
	}
	if code, ok := aliases[value]; ok {
		return code, nil
	}
	tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "", "normalize language", fmt.Sprintf("unknown language %q", input), err)
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", services.Wrap(services.ErrValidation, "", "normalize language", fmt.Sprintf("unknown language %q", input), nil)
	}
	return base.String(), nil
}

// NormalizeOr returns Normalize(input), or fallback when input is blank.
func NormalizeOr(input, fallback string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return Normalize(fallback)
	}
	return Normalize(input)
}

// DisplayName returns the English name for a code, or the code itself when it
// cannot be resolved.
func DisplayName(code string) string {
	normalized, err := Normalize(code)
	if err != nil {
		return code
	}
	name := display.English.Languages().Name(language.Make(normalized))
	if name == "" {
		return normalized
	}
	return name
}
