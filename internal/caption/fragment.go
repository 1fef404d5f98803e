package caption

import "strings"

// Fragment is a single caption unit: source-language text with a playback
// time range in seconds.
type Fragment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Key identifies a fragment for deduplication. Two fragments with the same
// normalized text are one translation unit regardless of timing.
type Key string

// Normalize canonicalizes raw fragment text into its deduplication key:
// trimmed, lowercased, runs of whitespace collapsed to single spaces.
// Empty or whitespace-only input normalizes to the empty key, which callers
// must reject before enqueueing.
func Normalize(text string) Key {
	return Key(strings.ToLower(strings.Join(strings.Fields(text), " ")))
}

// normalizeTranslation cleans provider output before it is stored: trimmed,
// embedded newlines collapsed to spaces.
func normalizeTranslation(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}
