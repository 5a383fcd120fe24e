package service_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"fnolguard/internal/domain"
	"fnolguard/internal/port"
	"fnolguard/internal/service"
	"fnolguard/mocks"
)

type analysisFixture struct {
	models    *mocks.MockModelResolver
	invoker   *mocks.MockModelInvoker
	store     *mocks.MockBlobStore
	extractor *mocks.MockMetadataExtractor
	notifier  *mocks.MockEscalationNotifier
	svc       service.AnalysisService
}

func newAnalysisFixture(t *testing.T, cfg service.AnalysisConfig) *analysisFixture {
	f := &analysisFixture{
		models:    new(mocks.MockModelResolver),
		invoker:   new(mocks.MockModelInvoker),
		store:     new(mocks.MockBlobStore),
		extractor: new(mocks.MockMetadataExtractor),
		notifier:  new(mocks.MockEscalationNotifier),
	}
	if cfg.EscalateAt == "" {
		cfg.EscalateAt = domain.FraudScoreVeryHigh
	}
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = "SYSTEM"
	}
	f.svc = service.NewAnalysisService(f.models, f.store, f.extractor, f.notifier, cfg, zaptest.NewLogger(t))
	f.extractor.On("ResolveContentType", mock.Anything, mock.Anything).
		Return(func(data []byte, declared string) string { return declared }).Maybe()
	return f
}

func okReply(text string) *domain.ModelReply {
	return &domain.ModelReply{RawText: text, ModelUsed: "gemini-2.5-pro"}
}

func facts(kv ...string) domain.Facts {
	var out domain.Facts
	for i := 0; i+1 < len(kv); i += 2 {
		out.Add(kv[i], kv[i+1])
	}
	return out
}

func TestAnalyze_Success(t *testing.T) {
	f := newAnalysisFixture(t, service.AnalysisConfig{MaxFiles: 10, FileConcurrency: 2, KeyPrefix: "fnol_uploads"})

	f.models.On("Resolve", "gemini-2.5-pro").Return(f.invoker, nil)
	f.store.On("Put", mock.Anything, mock.MatchedBy(func(in port.PutInput) bool {
		return strings.HasPrefix(in.Key, "fnol_uploads/") && strings.HasSuffix(in.Key, "_photo.jpg") && in.Size == 4
	})).Return(&port.PutOutput{Location: "s3://bucket/fnol_uploads/1_photo.jpg"}, nil)
	f.extractor.On("Extract", []byte("jpeg"), "image/jpeg").
		Return(domain.Extraction{Facts: facts("format", "jpeg", "Camera", "Canon EOS")})

	var sentPrompt string
	f.invoker.On("Invoke", mock.Anything, mock.MatchedBy(func(in port.InvokeInput) bool {
		sentPrompt = in.Prompt
		return len(in.Files) == 1 && in.Files[0].Location == "s3://bucket/fnol_uploads/1_photo.jpg"
	})).Return(okReply("**Fraud Confidence Score:** Low\n**Rationale for Score:**\n- Consistent damage\n"), nil)

	result, err := f.svc.Analyze(context.Background(), domain.AnalysisRequest{
		Model:     "gemini-2.5-pro",
		Narrative: "Rear-end collision, minor damage",
		Files:     []domain.UploadedFile{{Filename: "photo.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")}},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.FraudScoreLow, result.Assessment.Score)
	assert.Equal(t, []string{"Consistent damage"}, result.Assessment.Rationale)
	assert.Empty(t, result.FileWarnings)
	assert.NotNil(t, result.FileWarnings)
	assert.Equal(t, "gemini-2.5-pro", result.Model)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "s3://bucket/fnol_uploads/1_photo.jpg", result.Files[0].Location())

	assert.True(t, strings.HasPrefix(sentPrompt, "SYSTEM"))
	assert.Contains(t, sentPrompt, "Rear-end collision, minor damage")
	assert.Contains(t, sentPrompt, "Location: s3://bucket/fnol_uploads/1_photo.jpg")
	assert.Contains(t, sentPrompt, "Camera=Canon EOS")

	f.notifier.AssertNotCalled(t, "NotifyEscalation", mock.Anything, mock.Anything)
	f.store.AssertExpectations(t)
	f.invoker.AssertExpectations(t)
}

func TestAnalyze_NoFiles(t *testing.T) {
	f := newAnalysisFixture(t, service.AnalysisConfig{})
	f.models.On("Resolve", "gemma-3").Return(f.invoker, nil)
	f.invoker.On("Invoke", mock.Anything, mock.MatchedBy(func(in port.InvokeInput) bool {
		return len(in.Files) == 0 && in.Files != nil
	})).Return(okReply("Fraud Confidence Score: Medium"), nil)

	result, err := f.svc.Analyze(context.Background(), domain.AnalysisRequest{Model: "gemma-3", Narrative: "Hail damage"})

	require.NoError(t, err)
	assert.Equal(t, domain.FraudScoreMedium, result.Assessment.Score)
	assert.Empty(t, result.Files)
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestAnalyze_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.AnalysisRequest
		wantErr error
	}{
		{"empty narrative", domain.AnalysisRequest{Model: "m", Narrative: "   \n"}, domain.ErrEmptyNarrative},
		{"missing model", domain.AnalysisRequest{Narrative: "x"}, domain.ErrMissingModel},
		{"too many files", domain.AnalysisRequest{Model: "m", Narrative: "x", Files: make([]domain.UploadedFile, 3)}, domain.ErrTooManyFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAnalysisFixture(t, service.AnalysisConfig{MaxFiles: 2})

			_, err := f.svc.Analyze(context.Background(), tt.req)

			assert.ErrorIs(t, err, tt.wantErr)
			f.models.AssertNotCalled(t, "Resolve", mock.Anything)
			f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
		})
	}
}

func TestAnalyze_UnknownModelMakesNoCalls(t *testing.T) {
	f := newAnalysisFixture(t, service.AnalysisConfig{})
	f.models.On("Resolve", "gpt-99").Return(nil, &domain.ModelConfigError{Model: "gpt-99", Unknown: true})

	_, err := f.svc.Analyze(context.Background(), domain.AnalysisRequest{
		Model:     "gpt-99",
		Narrative: "x",
		Files:     []domain.UploadedFile{{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte("a")}},
	})

	var cfgErr *domain.ModelConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, cfgErr.Unknown)
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	f.invoker.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestAnalyze_PartialFileFailures(t *testing.T) {
	f := newAnalysisFixture(t, service.AnalysisConfig{FileConcurrency: 3, MaxFileBytes: 10})
	f.models.On("Resolve", "gemini-2.5-flash").Return(f.invoker, nil)

	f.store.On("Put", mock.Anything, mock.MatchedBy(func(in port.PutInput) bool {
		return strings.HasSuffix(in.Key, "_good.pdf")
	})).Return(&port.PutOutput{Location: "s3://b/good.pdf"}, nil)
	f.store.On("Put", mock.Anything, mock.MatchedBy(func(in port.PutInput) bool {
		return strings.HasSuffix(in.Key, "_denied.jpg")
	})).Return(nil, &domain.StorageError{Op: "put", Err: errors.New("AccessDenied")})
	f.store.On("Put", mock.Anything, mock.MatchedBy(func(in port.PutInput) bool {
		return strings.HasSuffix(in.Key, "_broken.png")
	})).Return(&port.PutOutput{Location: "s3://b/broken.png"}, nil)

	f.extractor.On("Extract", []byte("%PDF"), "application/pdf").Return(domain.Extraction{Facts: facts("pages", "2")})
	f.extractor.On("Extract", []byte("notpng"), "image/png").
		Return(domain.Extraction{Facts: facts("size_bytes", "6"), Err: "decoding image: unknown format"})

	var sentPrompt string
	var sentFiles []domain.StoredFileRef
	f.invoker.On("Invoke", mock.Anything, mock.MatchedBy(func(in port.InvokeInput) bool {
		sentPrompt, sentFiles = in.Prompt, in.Files
		return true
	})).Return(okReply("no markers here"), nil)

	result, err := f.svc.Analyze(context.Background(), domain.AnalysisRequest{
		Model:     "gemini-2.5-flash",
		Narrative: "Kitchen fire",
		Files: []domain.UploadedFile{
			{Filename: "good.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
			{Filename: "denied.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")},
			{Filename: "empty.txt", ContentType: "text/plain", Data: nil},
			{Filename: "huge.bin", ContentType: "application/octet-stream", Data: []byte(strings.Repeat("x", 11))},
			{Filename: "broken.png", ContentType: "image/png", Data: []byte("notpng")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.FraudScoreUnknown, result.Assessment.Score)
	assert.Equal(t, "no markers here", result.Assessment.RawPreview)

	require.Len(t, result.Files, 5)
	names := make([]string, len(result.Files))
	for i, m := range result.Files {
		names[i] = m.OriginalName
	}
	assert.Equal(t, []string{"good.pdf", "denied.jpg", "empty.txt", "huge.bin", "broken.png"}, names)

	require.Len(t, result.FileWarnings, 4)
	assert.Equal(t, "denied.jpg", result.FileWarnings[0].Filename)
	assert.Contains(t, result.FileWarnings[0].Error, "upload failed: storage put")
	assert.Equal(t, "empty.txt", result.FileWarnings[1].Filename)
	assert.Contains(t, result.FileWarnings[1].Error, domain.ErrFileEmpty.Error())
	assert.Equal(t, "huge.bin", result.FileWarnings[2].Filename)
	assert.Contains(t, result.FileWarnings[2].Error, domain.ErrFileTooLarge.Error())
	assert.Equal(t, "broken.png", result.FileWarnings[3].Filename)
	assert.Contains(t, result.FileWarnings[3].Error, "metadata extraction failed")

	require.Len(t, sentFiles, 2)
	assert.Equal(t, "s3://b/good.pdf", sentFiles[0].Location)
	assert.Equal(t, "s3://b/broken.png", sentFiles[1].Location)

	assert.Equal(t, 5, strings.Count(sentPrompt, "--- End Attached File ---"))
	assert.Less(t, strings.Index(sentPrompt, "(good.pdf)"), strings.Index(sentPrompt, "(denied.jpg)"))
	assert.Less(t, strings.Index(sentPrompt, "(huge.bin)"), strings.Index(sentPrompt, "(broken.png)"))
	assert.Contains(t, sentPrompt, "Location: not stored")
	f.extractor.AssertNotCalled(t, "Extract", []byte("jpeg"), "image/jpeg")
}

func TestAnalyze_FileConcurrencyIsBounded(t *testing.T) {
	f := newAnalysisFixture(t, service.AnalysisConfig{FileConcurrency: 2})
	f.models.On("Resolve", "m").Return(f.invoker, nil)

	var inFlight, peak int32
	f.store.On("Put", mock.Anything, mock.Anything).Return(func(ctx context.Context, in port.PutInput) *port.PutOutput {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		atomic.AddInt32(&inFlight, -1)
		return &port.PutOutput{Location: "s3://b/" + in.Key}
	}, nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(domain.Extraction{})
	f.invoker.On("Invoke", mock.Anything, mock.Anything).Return(okReply("Fraud Score: High"), nil)

	files := make([]domain.UploadedFile, 8)
	for i := range files {
		files[i] = domain.UploadedFile{Filename: "f.txt", ContentType: "text/plain", Data: []byte("x")}
	}
	result, err := f.svc.Analyze(context.Background(), domain.AnalysisRequest{Model: "m", Narrative: "x", Files: files})

	require.NoError(t, err)
	assert.Len(t, result.Files, 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestAnalyze_InvocationFailure(t *testing.T) {
	f := newAnalysisFixture(t, service.AnalysisConfig{})
	f.models.On("Resolve", "m").Return(f.invoker, nil)
	f.invoker.On("Invoke", mock.Anything, mock.Anything).Return(nil, errors.New("calling gemini API: timeout"))

	result, err := f.svc.Analyze(context.Background(), domain.AnalysisRequest{Model: "m", Narrative: "x"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrModelInvocation)
	var invErr *domain.ModelInvocationError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "m", invErr.Model)
	f.notifier.AssertNotCalled(t, "NotifyEscalation", mock.Anything, mock.Anything)
}

func TestAnalyze_EscalatesVeryHigh(t *testing.T) {
	f := newAnalysisFixture(t, service.AnalysisConfig{})
	f.models.On("Resolve", "m").Return(f.invoker, nil)
	f.store.On("Put", mock.Anything, mock.Anything).Return(&port.PutOutput{Location: "s3://b/k"}, nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(domain.Extraction{})
	f.invoker.On("Invoke", mock.Anything, mock.Anything).
		Return(okReply("Fraud Confidence Score: Very High\nRationale for Score:\n- Staged photos\n"), nil)
	f.notifier.On("NotifyEscalation", mock.Anything, mock.MatchedBy(func(e port.Escalation) bool {
		return e.Model == "m" &&
			e.Score == domain.FraudScoreVeryHigh &&
			len(e.Rationale) == 1 &&
			len(e.Files) == 1 && e.Files[0] == "scene.jpg" &&
			e.NarrativeExcerpt == "Total loss claim"
	})).Return(errors.New("ses: throttled")).Once()

	result, err := f.svc.Analyze(context.Background(), domain.AnalysisRequest{
		Model:     "m",
		Narrative: "  Total loss claim  ",
		Files:     []domain.UploadedFile{{Filename: "scene.jpg", ContentType: "image/jpeg", Data: []byte("j")}},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.FraudScoreVeryHigh, result.Assessment.Score)
	f.notifier.AssertExpectations(t)
}

func TestAnalyze_UnknownScoreNeverEscalates(t *testing.T) {
	f := newAnalysisFixture(t, service.AnalysisConfig{EscalateAt: domain.FraudScoreLow})
	f.models.On("Resolve", "m").Return(f.invoker, nil)
	f.invoker.On("Invoke", mock.Anything, mock.Anything).Return(okReply("I cannot assess this claim."), nil)

	result, err := f.svc.Analyze(context.Background(), domain.AnalysisRequest{Model: "m", Narrative: "x"})

	require.NoError(t, err)
	assert.Equal(t, domain.FraudScoreUnknown, result.Assessment.Score)
	f.notifier.AssertNotCalled(t, "NotifyEscalation", mock.Anything, mock.Anything)
}

func TestAnalyze_UnnamedFileGetsPlaceholderName(t *testing.T) {
	f := newAnalysisFixture(t, service.AnalysisConfig{})
	f.models.On("Resolve", "m").Return(f.invoker, nil)
	f.store.On("Put", mock.Anything, mock.MatchedBy(func(in port.PutInput) bool {
		return strings.HasSuffix(in.Key, "_unnamed-1")
	})).Return(&port.PutOutput{Location: "s3://b/x"}, nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(domain.Extraction{})
	f.invoker.On("Invoke", mock.Anything, mock.Anything).Return(okReply("Fraud Score: Low"), nil)

	result, err := f.svc.Analyze(context.Background(), domain.AnalysisRequest{
		Model:     "m",
		Narrative: "x",
		Files:     []domain.UploadedFile{{ContentType: "text/plain", Data: []byte("x")}},
	})

	require.NoError(t, err)
	assert.Equal(t, "unnamed-1", result.Files[0].OriginalName)
	f.store.AssertExpectations(t)
}
