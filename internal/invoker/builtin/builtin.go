// Package builtin registers the model strategies shipped with the service.
package builtin

import (
	"sync"

	"fnolguard/internal/invoker"
	"fnolguard/internal/invoker/endpoint"
	"fnolguard/internal/invoker/gemini"
	"fnolguard/internal/invoker/openai"
)

// Kind names accepted in FNOL_MODEL_<ID>_KIND.
const (
	KindGemini   = "gemini"
	KindEndpoint = "endpoint"
	KindOpenAI   = "openai"
)

var registerOnce sync.Once

// Register adds every built-in strategy to the invoker registry. Only the
// first call has any effect.
func Register() {
	registerOnce.Do(func() {
		invoker.RegisterKind(KindGemini, gemini.New)
		invoker.RegisterKind(KindEndpoint, endpoint.New)
		invoker.RegisterKind(KindOpenAI, openai.New)
	})
}
