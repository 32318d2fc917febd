// Package llm provides chat-completion access to the configured model
// providers. Every provider speaks the OpenAI chat API; aliases and
// credentials come from the models configuration.
package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/errors"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

// ChatOptions tune a single completion request.
type ChatOptions struct {
	Temperature     float64
	MaxOutputTokens int
}

// Client issues chat completions against a named provider.
type Client interface {
	// Chat sends messages to the provider bound to alias and returns the
	// completion text.
	Chat(ctx context.Context, alias string, messages []Message, opts ChatOptions) (string, error)
}

// Registry resolves provider aliases and caches per-provider API clients.
type Registry struct {
	models config.ModelsConfig

	mu      sync.Mutex
	clients map[string]openai.Client
}

var _ Client = (*Registry)(nil)

// NewRegistry creates a provider registry from the models configuration.
func NewRegistry(models config.ModelsConfig) *Registry {
	return &Registry{
		models:  models,
		clients: make(map[string]openai.Client),
	}
}

// Provider returns the provider bound to alias.
func (r *Registry) Provider(alias string) (config.Provider, error) {
	p, ok := r.models.Providers[alias]
	if !ok {
		return config.Provider{}, errors.New(errors.CodeInvalidInput, "unknown provider %q", alias)
	}
	return p, nil
}

func (r *Registry) clientFor(alias string, p config.Provider) openai.Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[alias]; ok {
		return c
	}

	opts := []option.RequestOption{
		option.WithRequestTimeout(90 * time.Second),
	}
	if p.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.BaseURL))
	}
	if key := os.Getenv(p.APIKeyEnv); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}

	c := openai.NewClient(opts...)
	r.clients[alias] = c
	return c
}

// Chat sends messages to the provider bound to alias with bounded retries on
// transient failures (connection errors, timeouts, 429/5xx).
func (r *Registry) Chat(ctx context.Context, alias string, messages []Message, opts ChatOptions) (string, error) {
	provider, err := r.Provider(alias)
	if err != nil {
		return "", err
	}
	client := r.clientFor(alias, provider)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(provider.ModelID),
		Messages: toParams(messages),
	}
	params.Temperature = openai.Float(opts.Temperature)
	if opts.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxOutputTokens))
	}

	start := time.Now()
	text, err := errors.RetryWithResult(ctx, errors.DefaultRetryConfig(), func() (string, error) {
		resp, err := client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", classify(err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("provider %s returned no choices", alias)
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", err
	}

	slog.Debug("chat_completed",
		slog.String("provider", alias),
		slog.String("model", provider.ModelID),
		slog.Duration("duration", time.Since(start)))
	return text, nil
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// classify converts SDK errors into the retry layer's status representation.
func classify(err error) error {
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		return &errors.StatusError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
	}
	return err
}
