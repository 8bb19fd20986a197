package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/promo-pipeline/internal/config"
	"github.com/book-expert/promo-pipeline/internal/core"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var (
	// ErrAPIKeyEmpty is returned when no text-generation key is configured.
	ErrAPIKeyEmpty = errors.New("script api key cannot be empty")
	// ErrNoChoices is returned when the completion carries no choices.
	ErrNoChoices = errors.New("completion returned no choices")
)

// Generator writes review scripts with one chat completion per item.
type Generator struct {
	client    openai.Client
	model     string
	maxTokens int64
}

var _ core.ScriptGenerator = (*Generator)(nil)

// New creates a generator. Extra options are appended after the configured
// ones, so callers can redirect the client.
func New(cfg config.ScriptConfig, opts ...option.RequestOption) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyEmpty
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}

	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}

	if cfg.TimeoutSeconds > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}

	clientOpts = append(clientOpts, opts...)

	return &Generator{
		client:    openai.NewClient(clientOpts...),
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
	}, nil
}

// Generate returns the first completion choice with surrounding whitespace
// removed.
func (g *Generator) Generate(ctx context.Context, item core.CatalogItem) (string, error) {
	prompt := BuildPrompt(item.Name, item.Category, item.Price, item.Rating, item.AffiliateLink)

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:     openai.ChatModel(g.model),
		MaxTokens: openai.Int(g.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate script for %q: %w", item.Name, err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: item %q", ErrNoChoices, item.Name)
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
