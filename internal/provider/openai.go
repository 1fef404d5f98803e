package provider

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI translates caption batches through an OpenAI-compatible chat API
// using the same JSON array contract as the Gemini backend.
type OpenAI struct {
	apiKey  func() string
	baseURL func() string
	model   func() string
}

// NewOpenAI creates the OpenAI-compatible backend. All three parameters are
// resolved per call from settings; baseURL may return "" for the official
// endpoint.
func NewOpenAI(apiKey, baseURL, model func() string) *OpenAI {
	return &OpenAI{apiKey: apiKey, baseURL: baseURL, model: model}
}

func (o *OpenAI) Name() string {
	return "openai"
}

func (o *OpenAI) currentModel() string {
	if o.model != nil {
		if m := o.model(); m != "" {
			return m
		}
	}
	return "gpt-4o-mini"
}

func (o *OpenAI) Translate(ctx context.Context, texts []string, targetLang string, contextual bool) ([]*string, error) {
	key := o.apiKey()
	if key == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	opts := []option.RequestOption{option.WithAPIKey(key)}
	if base := o.baseURL(); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	client := openai.NewClient(opts...)

	var userPrompt strings.Builder
	userPrompt.WriteString("Translate the following caption fragments. Return ONLY a JSON array with the translated text for each fragment, maintaining the same order and count.\n\n")
	for i, text := range texts {
		userPrompt.WriteString(fmt.Sprintf("[%d] %s\n", i+1, text))
	}
	userPrompt.WriteString(fmt.Sprintf("\nReturn exactly %d translations as a JSON array of strings.", len(texts)))

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(targetLang, contextual)),
			openai.UserMessage(userPrompt.String()),
		},
		Model: o.currentModel(),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("empty completion response")
	}

	translations, err := parseJSONArray(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if len(translations) != len(texts) {
		log.Printf("[openai] WARNING: expected %d translations, got %d", len(texts), len(translations))
	}
	return alignResults(texts, translations), nil
}
