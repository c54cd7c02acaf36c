package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ContentGenerator - the one genai call the server makes; *genai.Models satisfies it
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewClient - Gemini API client for the given key. baseURL may be empty.
func NewClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("no API key provided")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	log.Debug().Msg("🔑 [Gemini] Client created")
	return client, nil
}

// NewModels - ContentGenerator backed by a fresh client
func NewModels(ctx context.Context, apiKey, baseURL string) (ContentGenerator, error) {
	client, err := NewClient(ctx, apiKey, baseURL)
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// FirstInlineImage - first part, across all candidates, carrying inline binary data
func FirstInlineImage(resp *genai.GenerateContentResponse) ([]byte, string, bool) {
	if resp == nil {
		return nil, "", false
	}

	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType, true
			}
		}
	}
	return nil, "", false
}

// IsSafetyError - error message marks a safety/policy violation
func IsSafetyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SAFETY")
}

// BlockReason - prompt block reason or the first non-stop finish reason, empty when neither is set
func BlockReason(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return string(resp.PromptFeedback.BlockReason)
	}
	for _, candidate := range resp.Candidates {
		if candidate != nil && candidate.FinishReason != "" && candidate.FinishReason != genai.FinishReasonStop {
			return string(candidate.FinishReason)
		}
	}
	return ""
}
