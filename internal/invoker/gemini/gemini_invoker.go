package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"fnolguard/internal/config"
	"fnolguard/internal/domain"
	"fnolguard/internal/invoker"
	"fnolguard/internal/port"
)

const (
	apiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
)

// Invoker implements port.ModelInvoker using Gemini's generateContent API.
// The prompt goes out as one text part followed by one file_data part per
// stored file; Gemini fetches the files itself.
type Invoker struct {
	id            string
	apiKey        string
	accessToken   string
	model         string
	endpoint      string
	maxTokens     int
	temperature   float64
	referenceMode string
	deps          invoker.Deps
	client        *http.Client
	log           *zap.Logger
}

// New is the invoker.Factory for the "gemini" kind.
func New(cfg *config.ModelConfig, deps invoker.Deps) (port.ModelInvoker, error) {
	g, err := newInvoker(cfg, deps, "")
	if err != nil {
		return nil, err
	}
	return g, nil
}

// NewWithEndpoint creates an invoker pointing at a custom API endpoint (for testing).
func NewWithEndpoint(cfg *config.ModelConfig, deps invoker.Deps, endpoint string) (*Invoker, error) {
	return newInvoker(cfg, deps, endpoint)
}

func newInvoker(cfg *config.ModelConfig, deps invoker.Deps, endpoint string) (*Invoker, error) {
	if cfg.APIKey == "" && cfg.AccessToken == "" {
		return nil, errors.New("api_key or access_token is not set")
	}
	if err := invoker.ValidateReferenceMode(cfg.ReferenceMode); err != nil {
		return nil, err
	}
	model := cfg.ModelName
	if model == "" {
		model = cfg.ID
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if endpoint == "" {
		base := apiBaseURL
		if cfg.BaseURL != "" {
			base = strings.TrimRight(cfg.BaseURL, "/")
		}
		endpoint = fmt.Sprintf("%s/%s:generateContent", base, model)
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Invoker{
		id:            cfg.ID,
		apiKey:        cfg.APIKey,
		accessToken:   cfg.AccessToken,
		model:         model,
		endpoint:      endpoint,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		referenceMode: cfg.ReferenceMode,
		deps:          deps,
		client:        &http.Client{Timeout: timeout},
		log:           log,
	}, nil
}

func (g *Invoker) Invoke(ctx context.Context, input port.InvokeInput) (*domain.ModelReply, error) {
	parts := []map[string]interface{}{
		{"text": input.Prompt},
	}
	for _, f := range input.Files {
		uri, err := invoker.FileURI(ctx, g.deps, g.referenceMode, f)
		if err != nil {
			return nil, err
		}
		parts = append(parts, map[string]interface{}{
			"file_data": map[string]interface{}{
				"mime_type": f.ContentType,
				"file_uri":  uri,
			},
		})
	}

	genConfig := map[string]interface{}{
		"temperature": g.temperature,
	}
	if g.maxTokens > 0 {
		genConfig["maxOutputTokens"] = g.maxTokens
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role":  "user",
				"parts": parts,
			},
		},
		"generationConfig": genConfig,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("x-goog-api-key", g.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+g.accessToken)
	}

	g.log.Debug("gemini.Invoke: sending request",
		zap.String("model", g.id), zap.Int("files", len(input.Files)), zap.Int("prompt_chars", len(input.Prompt)))

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gemini API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, invoker.StatusFailure("gemini", g.id, resp, respBody)
	}

	text, err := parseResponse(respBody)
	if err != nil {
		return nil, err
	}
	return &domain.ModelReply{RawText: text, ModelUsed: g.model}, nil
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
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

func parseResponse(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked by API: %s", resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("empty response from API: no candidates")
	}

	candidate := resp.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from API: no parts (finish reason %s)", candidate.FinishReason)
	}

	var b strings.Builder
	for _, p := range candidate.Content.Parts {
		b.WriteString(p.Text)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("empty response from API: no text (finish reason %s)", candidate.FinishReason)
	}
	return b.String(), nil
}
