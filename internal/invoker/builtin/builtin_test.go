package builtin_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnolguard/internal/config"
	"fnolguard/internal/invoker"
	"fnolguard/internal/invoker/builtin"
)

func TestRegister_ConcurrentCallsAreSafe(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			builtin.Register()
		}()
	}
	wg.Wait()

	registry := invoker.NewRegistry([]config.ModelConfig{
		{ID: "gemini-2.5-flash", Kind: builtin.KindGemini, ModelName: "gemini-2.5-flash", APIKey: "k"},
		{ID: "gemma-3", Kind: builtin.KindEndpoint},
		{ID: "llama-3.3", Kind: "unknown-kind"},
	}, invoker.Deps{})

	models := registry.List()
	require.Len(t, models, 3)
	assert.True(t, models[0].Available, models[0].Reason)
	assert.False(t, models[1].Available)
	assert.NotContains(t, models[1].Reason, "unsupported")
	assert.False(t, models[2].Available)
	assert.Contains(t, models[2].Reason, "unsupported")
}
