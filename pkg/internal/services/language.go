package services

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

const UnknownLanguage = "unknown"

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func getLanguageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English,
				lingua.Chinese,
				lingua.Japanese,
				lingua.Korean,
				lingua.French,
				lingua.German,
				lingua.Spanish,
				lingua.Russian,
			).
			Build()
	})
	return detector
}

// DetectLanguage returns the ISO 639-1 code of the text, used by clients to
// pick the locale of the voting page.
func DetectLanguage(text string) string {
	if len(strings.TrimSpace(text)) == 0 {
		return UnknownLanguage
	}
	if language, ok := getLanguageDetector().DetectLanguageOf(text); ok {
		return strings.ToLower(language.IsoCode639_1().String())
	}
	return UnknownLanguage
}
