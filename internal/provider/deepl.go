package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const deeplAPIURL = "https://api-free.deepl.com/v2/translate"

// DeepL translates caption batches using the DeepL API. The API accepts
// multiple texts per request and returns them in input order, which matches
// the engine's alignment contract directly.
type DeepL struct {
	apiKey     func() string
	endpoint   string
	httpClient *http.Client
}

// NewDeepL creates the DeepL backend. apiKey is resolved per call so a key
// saved through the settings API is picked up without a restart.
func NewDeepL(apiKey func() string) *DeepL {
	return &DeepL{
		apiKey:   apiKey,
		endpoint: deeplAPIURL,
		httpClient: &http.Client{
			Timeout: 1 * time.Minute,
		},
	}
}

func (d *DeepL) Name() string {
	return "deepl"
}

func (d *DeepL) Translate(ctx context.Context, texts []string, targetLang string, contextual bool) ([]*string, error) {
	key := d.apiKey()
	if key == "" {
		return nil, fmt.Errorf("DeepL API key not configured")
	}

	form := url.Values{}
	for _, text := range texts {
		form.Add("text", text)
	}
	form.Set("target_lang", deeplLangCode(targetLang))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", d.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+key)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("DeepL API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DeepL API error (status %d): %s", resp.StatusCode, string(body))
	}

	var deeplResp struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &deeplResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	translations := make([]string, len(deeplResp.Translations))
	for i, t := range deeplResp.Translations {
		translations[i] = t.Text
	}
	return alignResults(texts, translations), nil
}

// deeplLangCode converts ISO 639-1 codes to DeepL format
func deeplLangCode(code string) string {
	mapping := map[string]string{
		"ko": "KO",
		"en": "EN",
		"ja": "JA",
		"zh": "ZH",
		"de": "DE",
		"fr": "FR",
		"es": "ES",
		"it": "IT",
		"pt": "PT-BR",
		"ru": "RU",
		"nl": "NL",
		"pl": "PL",
		"fi": "FI",
	}
	if mapped, ok := mapping[code]; ok {
		return mapped
	}
	return strings.ToUpper(code)
}
