package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrEmptyCompletion is returned when the model answers with no text at all.
var ErrEmptyCompletion = errors.New("completion service returned no text")

// CompletionRequest is one system+user prompt pair sent to the model.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int32
	Temperature  float32
}

// Completer is the text-in/text-out model invocation used by the assistant.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// LLMService talks to Gemini through the generative-ai-go client.
type LLMService struct {
	client    *genai.Client
	modelName string
}

func NewLLMService(ctx context.Context, apiKey, modelName string) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &LLMService{client: client, modelName: modelName}, nil
}

func (s *LLMService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *LLMService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := s.client.GenerativeModel(s.modelName)

	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}

	temp := req.Temperature
	maxTokens := req.MaxTokens
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.UserPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyCompletion
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", ErrEmptyCompletion
	}
	return text.String(), nil
}
