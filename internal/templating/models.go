package templating

// PromptData is the data available to translation prompt templates
type PromptData struct {
	SourceCode string
	SourceName string
	TargetCode string
	TargetName string
}

// DefaultTranslationPrompt is used when no prompt file is configured
const DefaultTranslationPrompt = `You are a translation engine.
Translate the user's message from {{.SourceName}} ({{.SourceCode}}) to {{.TargetName}} ({{.TargetCode}}).
{{- if eq .SourceName "Unknown"}}
The source language code may be a best guess; translate from whatever language the text is in.
{{- end}}
Reply with a single JSON object of the form {"translated_text": "..."} and nothing else.
Do not explain, transliterate or add notes.`

// builtinKey is the cache key for DefaultTranslationPrompt
const builtinKey = "builtin:translation"
