package translation

import "strings"

// Phrasebook maps lower-cased phrases to per-language translations.
// It is immutable once built.
type Phrasebook struct {
	entries map[string]map[string]string
}

// NewPhrasebook copies entries into a new phrasebook
func NewPhrasebook(entries map[string]map[string]string) *Phrasebook {
	pb := &Phrasebook{entries: make(map[string]map[string]string, len(entries))}
	for phrase, langs := range entries {
		inner := make(map[string]string, len(langs))
		for lang, text := range langs {
			inner[strings.ToLower(lang)] = text
		}
		pb.entries[strings.ToLower(phrase)] = inner
	}
	return pb
}

// DefaultPhrasebook returns the built-in common phrases
func DefaultPhrasebook() *Phrasebook {
	return NewPhrasebook(map[string]map[string]string{
		"hello":       {"hi": "नमस्ते", "es": "hola", "fr": "bonjour", "de": "hallo"},
		"how are you": {"hi": "आप कैसे हैं", "es": "cómo estás", "fr": "comment allez-vous", "de": "wie geht es dir"},
		"thank you":   {"hi": "धन्यवाद", "es": "gracias", "fr": "merci", "de": "danke"},
		"goodbye":     {"hi": "अलविदा", "es": "adiós", "fr": "au revoir", "de": "auf wiedersehen"},
		"yes":         {"hi": "हां", "es": "sí", "fr": "oui", "de": "ja"},
		"no":          {"hi": "नहीं", "es": "no", "fr": "non", "de": "nein"},
	})
}

// Lookup returns the translation of text into target when the whole text
// is a known phrase
func (p *Phrasebook) Lookup(text, target string) (string, bool) {
	if p == nil {
		return "", false
	}
	langs, ok := p.entries[strings.ToLower(strings.TrimSpace(text))]
	if !ok {
		return "", false
	}
	out, ok := langs[strings.ToLower(target)]
	return out, ok
}

// Len returns the number of phrases
func (p *Phrasebook) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}
