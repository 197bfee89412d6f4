package translation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Response is what a translation backend handed back, before interpretation.
// The set of variants is closed.
type Response interface {
	isResponse()
}

// Structured carries an explicit translated-text field
type Structured struct {
	TranslatedText string
}

// Plain is a bare string reply
type Plain struct {
	Text string
}

// Mapping is a key/value reply without a translated-text field
type Mapping struct {
	Fields map[string]any
}

// Unresolved is a reply that never completed, such as a truncated or
// empty completion
type Unresolved struct {
	Repr string
}

// Malformed is a reply that could not be decoded into any other shape
type Malformed struct {
	Raw string
}

func (Structured) isResponse() {}
func (Plain) isResponse()      {}
func (Mapping) isResponse()    {}
func (Unresolved) isResponse() {}
func (Malformed) isResponse()  {}

// ErrNeedsFallback means the response holds no usable translation
var ErrNeedsFallback = errors.New("response needs fallback translation")

// Interpret extracts the translated text from r. Priority: an explicit
// translated-text field, then a plain string, then a "text" key, then
// heuristics over the string form. Anything else returns ErrNeedsFallback.
func Interpret(r Response) (string, error) {
	switch v := r.(type) {
	case Structured:
		if strings.TrimSpace(v.TranslatedText) == "" {
			return "", fmt.Errorf("%w: empty translated text", ErrNeedsFallback)
		}
		return v.TranslatedText, nil

	case Plain:
		if strings.TrimSpace(v.Text) == "" {
			return "", fmt.Errorf("%w: empty text", ErrNeedsFallback)
		}
		return v.Text, nil

	case Mapping:
		if text, ok := v.Fields["text"].(string); ok && strings.TrimSpace(text) != "" {
			return text, nil
		}
		return fromRepr(v.String())

	case Unresolved:
		return "", fmt.Errorf("%w: unresolved reply %s", ErrNeedsFallback, v.Repr)

	case Malformed:
		return fromRepr(v.Raw)

	case nil:
		return "", fmt.Errorf("%w: no response", ErrNeedsFallback)
	}

	return "", fmt.Errorf("%w: unknown response %T", ErrNeedsFallback, r)
}

// fromRepr applies the last-resort heuristics to a stringified reply
func fromRepr(s string) (string, error) {
	if looksUnresolved(s) {
		return "", fmt.Errorf("%w: object reference %q", ErrNeedsFallback, truncate(s, 50))
	}
	if strings.Contains(s, "Translated") {
		if text, ok := extractTextField(s); ok {
			return text, nil
		}
		return "", fmt.Errorf("%w: no text field in %q", ErrNeedsFallback, truncate(s, 50))
	}
	return "", fmt.Errorf("%w: unrecognized reply %q", ErrNeedsFallback, truncate(s, 50))
}

// looksUnresolved matches handles and generic object references
func looksUnresolved(s string) bool {
	return strings.HasPrefix(s, "<coroutine") ||
		strings.Contains(s, "object at 0x") ||
		strings.Contains(s, "coroutine") ||
		strings.Contains(s, "object")
}

// extractTextField returns the value after "text=" up to the next comma
func extractTextField(s string) (string, bool) {
	idx := strings.Index(s, "text=")
	if idx < 0 {
		return "", false
	}
	start := idx + len("text=")
	end := strings.Index(s[start:], ",")
	if end <= 0 {
		return "", false
	}
	text := strings.TrimSpace(s[start : start+end])
	for _, q := range []string{"'", `"`} {
		if len(text) >= 2 && strings.HasPrefix(text, q) && strings.HasSuffix(text, q) {
			text = text[1 : len(text)-1]
			break
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// String renders the mapping with sorted keys
func (m Mapping) String() string {
	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		val, err := json.Marshal(m.Fields[k])
		if err != nil {
			val = []byte(fmt.Sprintf("%v", m.Fields[k]))
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, val))
	}
	return "Mapping(" + strings.Join(parts, ", ") + ")"
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
