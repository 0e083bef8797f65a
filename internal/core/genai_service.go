package core

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAIService is the Completer backed by the google.golang.org/genai SDK.
type GenAIService struct {
	client    *genai.Client
	modelName string
}

func NewGenAIService(ctx context.Context, apiKey, modelName string) (*GenAIService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIService{client: client, modelName: modelName}, nil
}

func (s *GenAIService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: req.MaxTokens,
		Temperature:     genai.Ptr(req.Temperature),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.modelName, genai.Text(req.UserPrompt), cfg)
	if err != nil {
		return "", fmt.Errorf("genai generate content: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyCompletion
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
