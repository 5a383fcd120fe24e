package endpoint

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

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"fnolguard/internal/config"
	"fnolguard/internal/domain"
	"fnolguard/internal/invoker"
	"fnolguard/internal/port"
)

// replyKeys are probed in order on a prediction object.
var replyKeys = []string{"generated_text", "text", "output_text", "output", "prediction"}

// Invoker implements port.ModelInvoker for a hosted prediction endpoint that
// accepts an {"instances": [...]} envelope, such as a Vertex AI endpoint
// serving Gemma or Llama.
type Invoker struct {
	id              string
	url             string
	accessToken     string
	maxTokens       int
	temperature     float64
	inlineDocuments bool
	deps            invoker.Deps
	client          *http.Client
	log             *zap.Logger
}

// New is the invoker.Factory for the "endpoint" kind.
func New(cfg *config.ModelConfig, deps invoker.Deps) (port.ModelInvoker, error) {
	e, err := newInvoker(cfg, deps, "")
	if err != nil {
		return nil, err
	}
	return e, nil
}

// NewWithEndpoint creates an invoker posting to a fixed URL (for testing).
func NewWithEndpoint(cfg *config.ModelConfig, deps invoker.Deps, url string) (*Invoker, error) {
	return newInvoker(cfg, deps, url)
}

func newInvoker(cfg *config.ModelConfig, deps invoker.Deps, url string) (*Invoker, error) {
	var missing []string
	if cfg.EndpointID == "" {
		missing = append(missing, "endpoint_id")
	}
	if cfg.Project == "" {
		missing = append(missing, "project")
	}
	if cfg.Location == "" {
		missing = append(missing, "location")
	}
	if cfg.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s not set", strings.Join(missing, ", "))
	}
	if cfg.InlineDocuments && (deps.Store == nil || deps.Text == nil) {
		return nil, errors.New("inline_documents requires a blob store and text extractor")
	}

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if url == "" {
		base := strings.TrimRight(cfg.BaseURL, "/")
		if base == "" {
			base = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", cfg.Location)
		}
		url = fmt.Sprintf("%s/projects/%s/locations/%s/endpoints/%s:predict", base, cfg.Project, cfg.Location, cfg.EndpointID)
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Invoker{
		id:              cfg.ID,
		url:             url,
		accessToken:     cfg.AccessToken,
		maxTokens:       cfg.MaxTokens,
		temperature:     cfg.Temperature,
		inlineDocuments: cfg.InlineDocuments,
		deps:            deps,
		client:          &http.Client{Timeout: timeout},
		log:             log,
	}, nil
}

type fileDescriptor struct {
	GCSURI   string `json:"gcs_uri"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename"`
}

type instance struct {
	Prompt      string           `json:"prompt"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature"`
	GCSFiles    []fileDescriptor `json:"gcs_files"`
}

func (e *Invoker) Invoke(ctx context.Context, input port.InvokeInput) (*domain.ModelReply, error) {
	prompt := input.Prompt
	if e.inlineDocuments {
		prompt = invoker.InlineDocuments(ctx, e.deps, prompt, input.Files)
	}

	files := make([]fileDescriptor, 0, len(input.Files))
	for _, f := range input.Files {
		files = append(files, fileDescriptor{
			GCSURI:   f.Location,
			MimeType: f.ContentType,
			Filename: f.OriginalName,
		})
	}

	reqBody := map[string]interface{}{
		"instances": []instance{{
			Prompt:      prompt,
			MaxTokens:   e.maxTokens,
			Temperature: e.temperature,
			GCSFiles:    files,
		}},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.accessToken)

	e.log.Debug("endpoint.Invoke: sending request",
		zap.String("model", e.id), zap.Int("files", len(files)), zap.Int("prompt_chars", len(prompt)))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling prediction endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, invoker.StatusFailure("prediction endpoint", e.id, resp, respBody)
	}

	text, err := parseResponse(respBody)
	if err != nil {
		return nil, err
	}
	return &domain.ModelReply{RawText: text, ModelUsed: e.id}, nil
}

// parseResponse takes the first prediction. A string prediction is used
// as-is; an object is probed for the usual text keys; anything else is
// returned as raw JSON so the caller still sees what the model said.
func parseResponse(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("unmarshaling response: invalid JSON")
	}
	first := gjson.GetBytes(body, "predictions.0")
	if !first.Exists() {
		return "", fmt.Errorf("empty response from endpoint: no predictions")
	}
	if first.Type == gjson.String {
		return first.String(), nil
	}
	if first.IsObject() {
		for _, key := range replyKeys {
			v := first.Get(key)
			if text, ok := textOf(v); ok {
				return text, nil
			}
		}
	}
	return first.Raw, nil
}

func textOf(v gjson.Result) (string, bool) {
	switch {
	case v.Type == gjson.String:
		return v.String(), true
	case v.IsArray():
		for _, item := range v.Array() {
			if item.Type == gjson.String {
				return item.String(), true
			}
		}
	}
	return "", false
}
