package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"fnolguard/internal/config"
	"fnolguard/internal/domain"
	"fnolguard/internal/invoker"
	"fnolguard/internal/port"
)

// Invoker implements port.ModelInvoker against any OpenAI-compatible chat
// completions server. Images are passed as presigned image_url parts;
// documents are inlined as text when enabled.
type Invoker struct {
	id              string
	model           string
	maxTokens       int
	temperature     float32
	inlineDocuments bool
	deps            invoker.Deps
	client          *openai.Client
	log             *zap.Logger
}

// New is the invoker.Factory for the "openai" kind.
func New(cfg *config.ModelConfig, deps invoker.Deps) (port.ModelInvoker, error) {
	o, err := newInvoker(cfg, deps, "")
	if err != nil {
		return nil, err
	}
	return o, nil
}

// NewWithBaseURL creates an invoker pointing at a custom server (for testing).
func NewWithBaseURL(cfg *config.ModelConfig, deps invoker.Deps, baseURL string) (*Invoker, error) {
	return newInvoker(cfg, deps, baseURL)
}

func newInvoker(cfg *config.ModelConfig, deps invoker.Deps, baseURL string) (*Invoker, error) {
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	if baseURL == "" && cfg.APIKey == "" {
		return nil, errors.New("base_url or api_key is not set")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model_name is not set")
	}
	if deps.Store == nil {
		return nil, errors.New("a blob store is required to presign image URLs")
	}
	if cfg.InlineDocuments && deps.Text == nil {
		return nil, errors.New("inline_documents requires a text extractor")
	}

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Invoker{
		id:              cfg.ID,
		model:           cfg.ModelName,
		maxTokens:       cfg.MaxTokens,
		temperature:     float32(cfg.Temperature),
		inlineDocuments: cfg.InlineDocuments,
		deps:            deps,
		client:          openai.NewClientWithConfig(clientCfg),
		log:             log,
	}, nil
}

func (o *Invoker) Invoke(ctx context.Context, input port.InvokeInput) (*domain.ModelReply, error) {
	prompt := input.Prompt
	if o.inlineDocuments {
		prompt = invoker.InlineDocuments(ctx, o.deps, prompt, input.Files)
	}

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: prompt},
	}
	for _, f := range input.Files {
		if domain.FamilyOf(f.ContentType) != domain.FamilyImage {
			continue
		}
		url, err := invoker.FileURI(ctx, o.deps, config.ReferenceModePresigned, f)
		if err != nil {
			return nil, err
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    url,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	}

	o.log.Debug("openai.Invoke: sending request",
		zap.String("model", o.id), zap.Int("parts", len(parts)), zap.Int("prompt_chars", len(prompt)))

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, o.classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}
	text := resp.Choices[0].Message.Content
	if text == "" {
		return nil, fmt.Errorf("empty response from API: no content (finish reason %s)", resp.Choices[0].FinishReason)
	}

	modelUsed := resp.Model
	if modelUsed == "" {
		modelUsed = o.model
	}
	return &domain.ModelReply{RawText: text, ModelUsed: modelUsed}, nil
}

// classify turns go-openai errors into the shared status and rate-limit errors.
func (o *Invoker) classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == 0 {
		return fmt.Errorf("calling chat completions API: %w", err)
	}
	statusErr := &invoker.StatusError{Backend: "openai", StatusCode: status, Body: err.Error()}
	if status == http.StatusTooManyRequests {
		return invoker.NewRateLimitError(o.id, statusErr, 0)
	}
	return statusErr
}
