package languages

import (
	"errors"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// ErrDetectionFailed is returned when no language can be guessed
var ErrDetectionFailed = errors.New("language detection failed")

// Detector guesses the language of a text. There is no confidence threshold.
type Detector interface {
	Detect(text string) (string, error)
}

// LinguaDetector is a statistical detector over all languages lingua knows
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds the detector. Language models load lazily on first use.
func NewLinguaDetector() *LinguaDetector {
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build(),
	}
}

// Detect returns the short code of the most likely language
func (d *LinguaDetector) Detect(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrDetectionFailed
	}

	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", ErrDetectionFailed
	}

	return codeFor(lang), nil
}

// codeFor maps lingua languages onto the codes used by the language table
func codeFor(lang lingua.Language) string {
	code := strings.ToLower(lang.IsoCode639_1().String())
	switch code {
	case "zh":
		return "zh-cn"
	}
	return code
}
