package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var ErrEmptyCompletion = errors.New("model returned no content")

// ChatCompleter is the part of *openai.Client the service needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type AIService struct {
	Kind     string
	BaseURL  string
	Models   []string
	Selected int
	apiKey   string
	api      ChatCompleter
	logger   *zap.Logger
}

func NewAIService(kind, baseURL, apiKey string, models []string, selected int, logger *zap.Logger) (*AIService, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("ai client %q has no models configured", baseURL)
	}
	if selected < 0 || selected >= len(models) {
		return nil, fmt.Errorf("selected model index %d out of range [0, %d)", selected, len(models))
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return newAIService(kind, baseURL, apiKey, models, selected, openai.NewClientWithConfig(config), logger), nil
}

func newAIService(kind, baseURL, apiKey string, models []string, selected int, api ChatCompleter, logger *zap.Logger) *AIService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIService{
		Kind:     kind,
		BaseURL:  baseURL,
		Models:   models,
		Selected: selected,
		apiKey:   apiKey,
		api:      api,
		logger:   logger.Named("ai"),
	}
}

func (s *AIService) SelectedModel() string {
	return s.Models[s.Selected]
}

// SelectModel switches the model used by later completions.
func (s *AIService) SelectModel(index int) error {
	if index < 0 || index >= len(s.Models) {
		return fmt.Errorf("model index %d out of range [0, %d)", index, len(s.Models))
	}
	s.Selected = index
	return nil
}

// Describe renders the client for display with the API key masked.
func (s *AIService) Describe() string {
	return fmt.Sprintf("%s: %s / %s / %v", s.Kind, s.BaseURL, maskMiddle(s.apiKey), s.Models)
}

func maskMiddle(s string) string {
	r := []rune(s)
	if len(r) <= 8 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:4]) + strings.Repeat("*", len(r)-8) + string(r[len(r)-4:])
}

// Complete sends prompt with the fixed system prompt and returns the raw
// content of the first choice.
func (s *AIService) Complete(ctx context.Context, prompt string) (string, error) {
	s.logger.Info("requesting completion", zap.String("model", s.SelectedModel()), zap.Int("prompt_chars", len(prompt)))
	resp, err := s.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.SelectedModel(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyCompletion)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyCompletion
	}
	s.logger.Debug("completion received", zap.Int("chars", len(content)))
	return content, nil
}
