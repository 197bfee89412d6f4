package languages

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Unknown is the display name for codes outside the table
const Unknown = "Unknown"

// Language is one selectable entry
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var table = map[string]string{
	"af":    "Afrikaans",
	"ar":    "Arabic",
	"bn":    "Bengali",
	"zh-cn": "Chinese (Simplified)",
	"nl":    "Dutch",
	"en":    "English",
	"fr":    "French",
	"de":    "German",
	"el":    "Greek",
	"hi":    "Hindi",
	"id":    "Indonesian",
	"it":    "Italian",
	"ja":    "Japanese",
	"ko":    "Korean",
	"ms":    "Malay",
	"ne":    "Nepali",
	"fa":    "Persian",
	"pl":    "Polish",
	"pt":    "Portuguese",
	"pa":    "Punjabi",
	"ro":    "Romanian",
	"ru":    "Russian",
	"es":    "Spanish",
	"sw":    "Swahili",
	"sv":    "Swedish",
	"tl":    "Tagalog",
	"ta":    "Tamil",
	"th":    "Thai",
	"tr":    "Turkish",
	"ur":    "Urdu",
}

// DisplayName returns the table name for code, or Unknown.
// The table is for display only; unknown codes are still valid for processing.
func DisplayName(code string) string {
	if name, ok := table[Normalize(code)]; ok {
		return name
	}
	return Unknown
}

// IsListed reports whether code is one of the selectable languages
func IsListed(code string) bool {
	_, ok := table[Normalize(code)]
	return ok
}

// Supported returns the selectable languages sorted by display name
func Supported() []Language {
	out := make([]Language, 0, len(table))
	for code, name := range table {
		out = append(out, Language{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Normalize lower-cases a code and folds underscores to hyphens
func Normalize(code string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(code)), "_", "-")
}

// Validate checks that code is a well-formed language tag and returns it normalized
func Validate(code string) (string, error) {
	norm := Normalize(code)
	if norm == "" {
		return "", fmt.Errorf("language code is empty")
	}
	if _, err := language.Parse(norm); err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return norm, nil
}
