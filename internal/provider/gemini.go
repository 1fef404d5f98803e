package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// Gemini translates caption batches using the Google Gemini API with a JSON
// array response contract.
type Gemini struct {
	apiKey     func() string
	model      func() string
	apiBase    string
	httpClient *http.Client
}

// NewGemini creates the Gemini backend. apiKey and model are resolved per
// call from settings.
func NewGemini(apiKey, model func() string) *Gemini {
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		apiBase: geminiAPIBase,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) currentModel() string {
	if g.model != nil {
		if m := g.model(); m != "" {
			return m
		}
	}
	return "gemini-2.0-flash"
}

func (g *Gemini) Translate(ctx context.Context, texts []string, targetLang string, contextual bool) ([]*string, error) {
	key := g.apiKey()
	if key == "" {
		return nil, fmt.Errorf("Gemini API key not configured")
	}

	var userPrompt strings.Builder
	userPrompt.WriteString("Translate the following caption fragments. Return ONLY a JSON array with the translated text for each fragment, maintaining the same order and count.\n\n")
	userPrompt.WriteString("Input fragments:\n")
	for i, text := range texts {
		userPrompt.WriteString(fmt.Sprintf("[%d] %s\n", i+1, text))
	}
	userPrompt.WriteString(fmt.Sprintf("\nReturn exactly %d translations as a JSON array of strings.", len(texts)))

	reqBody := map[string]interface{}{
		"system_instruction": map[string]interface{}{
			"parts": []map[string]string{
				{"text": systemPrompt(targetLang, contextual)},
			},
		},
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": userPrompt.String()},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      0.3,
			"responseMimeType": "application/json",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s:generateContent", g.apiBase, g.currentModel())
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", key)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Gemini API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Gemini API error (status %d): %s", resp.StatusCode, string(body))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		if geminiResp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("Gemini blocked: %s", geminiResp.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("empty Gemini response")
	}
	if fr := geminiResp.Candidates[0].FinishReason; fr != "" && fr != "STOP" {
		log.Printf("[gemini] WARNING: finishReason=%s", fr)
	}

	translations, err := parseJSONArray(geminiResp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}
	if len(translations) != len(texts) {
		log.Printf("[gemini] WARNING: expected %d translations, got %d", len(texts), len(translations))
	}
	return alignResults(texts, translations), nil
}

// parseJSONArray decodes a JSON string array, tolerating surrounding prose
// by extracting the outermost bracket pair when a direct decode fails.
func parseJSONArray(raw string) ([]string, error) {
	var translations []string
	if err := json.Unmarshal([]byte(raw), &translations); err != nil {
		start := strings.Index(raw, "[")
		end := strings.LastIndex(raw, "]")
		if start >= 0 && end > start {
			if err2 := json.Unmarshal([]byte(raw[start:end+1]), &translations); err2 != nil {
				return nil, fmt.Errorf("parse translations: %w (raw: %s)", err, raw)
			}
		} else {
			return nil, fmt.Errorf("parse translations: %w (raw: %s)", err, raw)
		}
	}
	return translations, nil
}
