package portrait

import (
	"context"
	"encoding/base64"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"portrait-studio-server/modules/common/config"
	"portrait-studio-server/modules/common/gemini"
)

// ClientFactory - builds the generator for one call
type ClientFactory func(ctx context.Context, apiKey string) (gemini.ContentGenerator, error)

// Service - Image Generation Client
type Service struct {
	model     string
	apiKey    func() string
	newClient ClientFactory
}

// NewService - service reading the key from the environment on every call
func NewService(model, baseURL string) *Service {
	return &Service{
		model:  model,
		apiKey: config.APIKey,
		newClient: func(ctx context.Context, apiKey string) (gemini.ContentGenerator, error) {
			return gemini.NewModels(ctx, apiKey, baseURL)
		},
	}
}

// NewServiceWith - service with an explicit key source and client factory
func NewServiceWith(model string, apiKey func() string, newClient ClientFactory) *Service {
	return &Service{model: model, apiKey: apiKey, newClient: newClient}
}

// Generate - restyle the portrait; returns the Base64 payload of the generated image
func (s *Service) Generate(ctx context.Context, base64Image, mimeType, clothingStyle, scenery string) (string, error) {
	apiKey := s.apiKey()
	if apiKey == "" {
		log.Error().Msg("❌ [Portrait] API key not configured")
		return "", ErrConfiguration
	}

	imageData, err := base64.StdEncoding.DecodeString(base64Image)
	if err != nil {
		log.Error().Err(err).Msg("❌ [Portrait] Source image is not valid base64")
		return "", newError(KindRead, MsgRead, err)
	}

	client, err := s.newClient(ctx, apiKey)
	if err != nil {
		log.Error().Err(err).Msg("❌ [Portrait] Failed to create Gemini client")
		return "", newError(KindGeneration, MsgGeneration, err)
	}

	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(imageData, mimeType),
		genai.NewPartFromText(BuildPrompt(clothingStyle, scenery)),
	}, genai.RoleUser)

	log.Info().Msgf("🎨 [Portrait] Generating image - model: %s, source: %s %d bytes, clothing: %s, scenery: %s",
		s.model, mimeType, len(imageData), truncateString(clothingStyle, 30), truncateString(scenery, 30))

	result, err := client.GenerateContent(
		ctx,
		s.model,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{string(genai.ModalityImage)},
			ImageConfig: &genai.ImageConfig{
				AspectRatio: OutputAspectRatio,
			},
		},
	)
	if err != nil {
		log.Error().Err(err).Msg("❌ [Portrait] Gemini API error")
		if gemini.IsSafetyError(err) {
			return "", newError(KindPolicyRejection, MsgPolicyRejection, err)
		}
		return "", newError(KindGeneration, MsgGeneration, err)
	}

	data, outMime, ok := gemini.FirstInlineImage(result)
	if !ok {
		// filtered responses land here too; only a failed call is a policy rejection
		if reason := gemini.BlockReason(result); reason != "" {
			log.Warn().Msgf("⚠️ [Portrait] No image part in Gemini response (block reason: %s)", reason)
		} else {
			log.Warn().Msg("⚠️ [Portrait] No image part in Gemini response")
		}
		return "", ErrModelOutput
	}

	log.Info().Msgf("✅ [Portrait] Image generated: %s %d bytes", outMime, len(data))
	return base64.StdEncoding.EncodeToString(data), nil
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
