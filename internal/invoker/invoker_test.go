package invoker_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fnolguard/internal/config"
	"fnolguard/internal/domain"
	"fnolguard/internal/invoker"
	"fnolguard/internal/port"
	"fnolguard/mocks"
)

func init() {
	invoker.RegisterKind("test-ok", func(cfg *config.ModelConfig, deps invoker.Deps) (port.ModelInvoker, error) {
		return new(mocks.MockModelInvoker), nil
	})
	invoker.RegisterKind("test-broken", func(cfg *config.ModelConfig, deps invoker.Deps) (port.ModelInvoker, error) {
		return nil, errors.New("api_key is not set")
	})
}

func TestRegistry_Resolve(t *testing.T) {
	reg := invoker.NewRegistry([]config.ModelConfig{
		{ID: "good", Kind: "test-ok"},
		{ID: "broken", Kind: "test-broken"},
		{ID: "odd", Kind: "no-such-kind"},
	}, invoker.Deps{})

	inv, err := reg.Resolve("good")
	require.NoError(t, err)
	assert.NotNil(t, inv)

	_, err = reg.Resolve("broken")
	var cfgErr *domain.ModelConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.False(t, cfgErr.Unknown)
	assert.Contains(t, cfgErr.Reason, "api_key")
	assert.True(t, errors.Is(err, domain.ErrModelConfig))

	_, err = reg.Resolve("odd")
	require.True(t, errors.As(err, &cfgErr))
	assert.False(t, cfgErr.Unknown)
	assert.Contains(t, cfgErr.Reason, "unsupported kind")

	_, err = reg.Resolve("missing")
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, cfgErr.Unknown)
	assert.Equal(t, "invalid model key: missing", err.Error())
}

func TestRegistry_List(t *testing.T) {
	reg := invoker.NewRegistry([]config.ModelConfig{
		{ID: "zeta", Kind: "test-ok"},
		{ID: "alpha", Kind: "test-broken"},
	}, invoker.Deps{})

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].ID)
	assert.False(t, list[0].Available)
	assert.NotEmpty(t, list[0].Reason)
	assert.Equal(t, "zeta", list[1].ID)
	assert.True(t, list[1].Available)
	assert.Empty(t, list[1].Reason)
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, invoker.ParseRetryAfterHeader(""))
	assert.Equal(t, 12, invoker.ParseRetryAfterHeader("12"))
	assert.Equal(t, 0, invoker.ParseRetryAfterHeader("soon"))

	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	secs := invoker.ParseRetryAfterHeader(future)
	assert.InDelta(t, 90, secs, 2)

	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	assert.Equal(t, 0, invoker.ParseRetryAfterHeader(past))
}

func TestNewRateLimitError_Default(t *testing.T) {
	rl := invoker.NewRateLimitError("m", errors.New("x"), 0)
	assert.Equal(t, 60*time.Second, rl.RetryAfter)
	assert.Contains(t, rl.Error(), "m rate limited")
}

func TestStatusError_TruncatesBody(t *testing.T) {
	err := &invoker.StatusError{Backend: "gemini", StatusCode: 500, Body: strings.Repeat("x", 800)}
	assert.Less(t, len(err.Error()), 600)
	assert.Equal(t, "upstream returned status 500", err.PublicDetail())
}

func TestAsInvocationError(t *testing.T) {
	assert.NoError(t, invoker.AsInvocationError("m", nil))

	cfgErr := &domain.ModelConfigError{Model: "m", Reason: "r"}
	assert.Same(t, cfgErr, invoker.AsInvocationError("m", cfgErr))

	plain := fmt.Errorf("calling gemini API: %w", errors.New("dial tcp: refused"))
	err := invoker.AsInvocationError("m", plain)
	var invErr *domain.ModelInvocationError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "m", invErr.Model)
	assert.Zero(t, invErr.RetryAfter)
	assert.Equal(t, "model m did not return a usable response", invErr.Detail())

	rl := invoker.NewRateLimitError("m", &invoker.StatusError{Backend: "gemini", StatusCode: 429}, 7)
	err = invoker.AsInvocationError("m", rl)
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, 7*time.Second, invErr.RetryAfter)
	assert.Contains(t, invErr.Detail(), "rate limited")

	err = invoker.AsInvocationError("m", &invoker.StatusError{Backend: "gemini", StatusCode: 503, Body: "secret"})
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "model m: upstream returned status 503", invErr.Detail())
	assert.Same(t, err, invoker.AsInvocationError("m", err))
}

func TestFileURI(t *testing.T) {
	ref := domain.StoredFileRef{Location: "s3://b/k", ContentType: "image/png", OriginalName: "k.png"}

	uri, err := invoker.FileURI(context.Background(), invoker.Deps{}, config.ReferenceModeLocation, ref)
	require.NoError(t, err)
	assert.Equal(t, "s3://b/k", uri)

	_, err = invoker.FileURI(context.Background(), invoker.Deps{}, config.ReferenceModePresigned, ref)
	assert.ErrorIs(t, err, domain.ErrPresignUnsupported)

	store := new(mocks.MockBlobStore)
	store.On("PresignedURL", mock.Anything, "s3://b/k", invoker.DefaultPresignExpiry).Return("", errors.New("denied")).Once()
	_, err = invoker.FileURI(context.Background(), invoker.Deps{Store: store}, config.ReferenceModePresigned, ref)
	assert.ErrorContains(t, err, "presigning k.png")

	assert.NoError(t, invoker.ValidateReferenceMode(""))
	assert.NoError(t, invoker.ValidateReferenceMode(config.ReferenceModePresigned))
	assert.Error(t, invoker.ValidateReferenceMode("inline"))
}

func TestInlineDocuments(t *testing.T) {
	store := new(mocks.MockBlobStore)
	text := new(mocks.MockTextExtractor)
	store.On("Get", mock.Anything, "s3://b/a.pdf").Return([]byte("pdf"), nil)
	store.On("Get", mock.Anything, "s3://b/gone.txt").Return(nil, &domain.StorageError{Op: "get", Err: errors.New("nope")})
	store.On("Get", mock.Anything, "s3://b/scan.pdf").Return([]byte("scan"), nil)
	text.On("ExtractText", []byte("pdf"), "application/pdf", 50).Return("hello", nil)
	text.On("ExtractText", []byte("scan"), "application/pdf", 50).Return("  ", nil)

	deps := invoker.Deps{Store: store, Text: text, InlineTextLimit: 50}
	out := invoker.InlineDocuments(context.Background(), deps, "PROMPT", []domain.StoredFileRef{
		{Location: "s3://b/a.pdf", ContentType: "application/pdf", OriginalName: "a.pdf"},
		{Location: "s3://b/photo.jpg", ContentType: "image/jpeg", OriginalName: "photo.jpg"},
		{Location: "s3://b/gone.txt", ContentType: "text/plain", OriginalName: "gone.txt"},
		{Location: "s3://b/scan.pdf", ContentType: "application/pdf", OriginalName: "scan.pdf"},
	})

	assert.True(t, strings.HasPrefix(out, "PROMPT\n"))
	assert.Contains(t, out, "--- Extracted Text: a.pdf ---\nhello\n--- End Extracted Text ---\n")
	assert.Contains(t, out, "--- Extracted Text: gone.txt ---\n[text not available: file could not be read back from storage]\n")
	assert.Contains(t, out, "--- Extracted Text: scan.pdf ---\n[no text layer found]\n")
	assert.NotContains(t, out, "photo.jpg")
	store.AssertNotCalled(t, "Get", mock.Anything, "s3://b/photo.jpg")
}

func TestInlineDocuments_NoDocuments(t *testing.T) {
	out := invoker.InlineDocuments(context.Background(), invoker.Deps{}, "PROMPT", []domain.StoredFileRef{
		{Location: "s3://b/p.png", ContentType: "image/png", OriginalName: "p.png"},
	})
	assert.Equal(t, "PROMPT", out)
}
