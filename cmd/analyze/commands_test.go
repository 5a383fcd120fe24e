package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fnolguard/internal/app"
	"fnolguard/internal/config"
	"fnolguard/internal/domain"
	"fnolguard/internal/invoker"
	"fnolguard/mocks"
)

func testLoader(a *app.App) loader {
	return func(context.Context, bool) (*app.App, error) { return a, nil }
}

func TestAnalyzeCmd_PrintsResult(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "bumper.jpg")
	require.NoError(t, os.WriteFile(photo, []byte{0xFF, 0xD8, 0xFF}, 0o600))

	svc := new(mocks.MockAnalysisService)
	svc.On("Analyze", mock.Anything, mock.MatchedBy(func(req domain.AnalysisRequest) bool {
		return req.Model == "gemini-2.5-flash" &&
			req.Narrative == "Rear-ended at a light" &&
			len(req.Files) == 1 &&
			req.Files[0].Filename == "bumper.jpg" &&
			req.Files[0].ContentType == "image/jpeg"
	})).Return(&domain.AnalysisResult{
		Assessment: domain.FraudAssessment{Score: domain.FraudScoreLow, Rationale: []string{"consistent"}},
		Model:      "gemini-2.5-flash",
	}, nil)

	var out bytes.Buffer
	root := newRootCmd(testLoader(&app.App{Analysis: svc}), &out)
	root.SetArgs([]string{"analyze", "--model", "gemini-2.5-flash", "--prompt", "Rear-ended at a light", photo})
	require.NoError(t, root.ExecuteContext(context.Background()))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	assert.Equal(t, "Low", body["fraudConfidenceScore"])
	assert.Equal(t, []interface{}{"consistent"}, body["rationale"])
	assert.Equal(t, []interface{}{}, body["file_processing_errors"])
	svc.AssertExpectations(t)
}

func TestAnalyzeCmd_PromptFile(t *testing.T) {
	dir := t.TempDir()
	narrative := filepath.Join(dir, "narrative.txt")
	require.NoError(t, os.WriteFile(narrative, []byte("Hail damage to roof"), 0o600))

	svc := new(mocks.MockAnalysisService)
	svc.On("Analyze", mock.Anything, mock.MatchedBy(func(req domain.AnalysisRequest) bool {
		return req.Narrative == "Hail damage to roof" && len(req.Files) == 0
	})).Return(&domain.AnalysisResult{Assessment: domain.FraudAssessment{Score: domain.FraudScoreUnknown}}, nil)

	var out bytes.Buffer
	root := newRootCmd(testLoader(&app.App{Analysis: svc}), &out)
	root.SetArgs([]string{"analyze", "-m", "llama-3.3", "--prompt-file", narrative, "--pretty"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "\n  \"fraudConfidenceScore\": \"Unknown\"")
}

func TestAnalyzeCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing model", []string{"analyze", "--prompt", "x"}, `required flag(s) "model" not set`},
		{"empty narrative", []string{"analyze", "--model", "m", "--prompt", "   "}, domain.ErrEmptyNarrative.Error()},
		{"missing file", []string{"analyze", "--model", "m", "--prompt", "x", "/nonexistent/claim.pdf"}, "reading /nonexistent/claim.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mocks.MockAnalysisService)
			root := newRootCmd(testLoader(&app.App{Analysis: svc}), &bytes.Buffer{})
			root.SetArgs(tt.args)
			err := root.ExecuteContext(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			svc.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
		})
	}
}

func TestAnalyzeCmd_ServiceError(t *testing.T) {
	svc := new(mocks.MockAnalysisService)
	svc.On("Analyze", mock.Anything, mock.Anything).
		Return(nil, &domain.ModelConfigError{Model: "nope", Reason: "not mapped", Unknown: true})

	var out bytes.Buffer
	root := newRootCmd(testLoader(&app.App{Analysis: svc}), &out)
	root.SetArgs([]string{"analyze", "--model", "nope", "--prompt", "claim"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrModelConfig))
	assert.Empty(t, out.String())
}

func TestModelsCmd(t *testing.T) {
	registry := invoker.NewRegistry([]config.ModelConfig{{ID: "llama-3.3", Kind: "endpoint"}}, invoker.Deps{})

	var out bytes.Buffer
	root := newRootCmd(testLoader(&app.App{Models: registry}), &out)
	root.SetArgs([]string{"models"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "llama-3.3")
	assert.Contains(t, out.String(), "unavailable")
}
