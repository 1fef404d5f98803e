// Package provider contains translation backends that satisfy the caption
// engine's transport contract: one call per ordered batch, results aligned
// positionally with the input, nil entries for items the backend could not
// translate.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/caption-stream/backend/internal/caption"
)

// Named is a transport that identifies itself for registry lookups.
type Named interface {
	caption.Transport
	Name() string
}

// Selector routes every translate call to the currently configured backend.
// The choice is re-read per call so a settings change takes effect on the
// next batch without restarting anything.
type Selector struct {
	backends map[string]Named
	current  func() string
}

// NewSelector builds a selector over the given backends. current returns the
// active backend name (e.g. the "translation_provider" setting).
func NewSelector(current func() string, backends ...Named) *Selector {
	m := make(map[string]Named, len(backends))
	for _, b := range backends {
		m[b.Name()] = b
	}
	return &Selector{backends: m, current: current}
}

// Names returns the registered backend names.
func (s *Selector) Names() []string {
	names := make([]string, 0, len(s.backends))
	for name := range s.backends {
		names = append(names, name)
	}
	return names
}

func (s *Selector) Translate(ctx context.Context, texts []string, targetLang string, contextual bool) ([]*string, error) {
	name := s.current()
	backend, ok := s.backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown translation provider: %s", name)
	}
	return backend.Translate(ctx, texts, targetLang, contextual)
}

// alignResults maps raw translations onto the input length: missing or
// blank entries become nil so the engine records them as empty responses.
func alignResults(texts, translations []string) []*string {
	results := make([]*string, len(texts))
	for i := range texts {
		if i < len(translations) && strings.TrimSpace(translations[i]) != "" {
			t := translations[i]
			results[i] = &t
		}
	}
	return results
}

func langName(code string) string {
	names := map[string]string{
		"ko":   "Korean",
		"en":   "English",
		"ja":   "Japanese",
		"zh":   "Chinese",
		"es":   "Spanish",
		"fr":   "French",
		"de":   "German",
		"pt":   "Portuguese",
		"it":   "Italian",
		"ru":   "Russian",
		"fi":   "Finnish",
		"ar":   "Arabic",
		"hi":   "Hindi",
		"th":   "Thai",
		"vi":   "Vietnamese",
		"id":   "Indonesian",
		"auto": "auto-detected language",
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}

// systemPrompt is shared by the LLM-backed providers.
func systemPrompt(targetLang string, contextual bool) string {
	base := fmt.Sprintf(
		"You are a professional subtitle translator. Translate caption fragments to %s. "+
			"Keep translations concise and natural for on-screen display. "+
			"Respond with ONLY a JSON array of translated strings, same order and count as the input.",
		langName(targetLang),
	)
	if contextual {
		base += " The fragments are consecutive lines of one scene; keep phrasing consistent across them."
	}
	return base
}
