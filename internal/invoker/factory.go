// Package invoker maps model identities to invocation strategies.
package invoker

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"fnolguard/internal/config"
	"fnolguard/internal/domain"
	"fnolguard/internal/port"
)

// Deps are the collaborators shared by every strategy.
type Deps struct {
	Store           port.BlobStore
	Text            port.TextExtractor
	Logger          *zap.Logger
	PresignExpiry   time.Duration
	InlineTextLimit int
}

// Factory builds a ModelInvoker for one configured identity. It returns an
// error when the configuration is incomplete.
type Factory func(cfg *config.ModelConfig, deps Deps) (port.ModelInvoker, error)

// registry of strategy factories, populated explicitly via RegisterKind.
var kinds = map[string]Factory{}

// RegisterKind registers a strategy factory by kind name.
func RegisterKind(kind string, factory Factory) {
	kinds[kind] = factory
}

// ModelInfo describes one configured identity for listing.
type ModelInfo struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type entry struct {
	cfg     config.ModelConfig
	invoker port.ModelInvoker
	err     error
}

// Registry is the static identity -> strategy mapping. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	entries map[string]entry
}

// NewRegistry builds every configured model. A misconfigured identity does
// not prevent the others from being used; resolving it returns the
// configuration error instead.
func NewRegistry(models []config.ModelConfig, deps Deps) *Registry {
	r := &Registry{entries: make(map[string]entry, len(models))}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	for i := range models {
		cfg := models[i]
		e := entry{cfg: cfg}
		factory, ok := kinds[cfg.Kind]
		if !ok {
			e.err = fmt.Errorf("unsupported kind %q", cfg.Kind)
		} else {
			e.invoker, e.err = factory(&cfg, deps)
		}
		if e.err != nil {
			log.Warn("invoker.NewRegistry: model unavailable",
				zap.String("model", cfg.ID), zap.String("kind", cfg.Kind), zap.Error(e.err))
		}
		r.entries[cfg.ID] = e
	}
	return r
}

// Resolve returns the invoker for an identity, or a *domain.ModelConfigError.
// It performs no I/O.
func (r *Registry) Resolve(identity string) (port.ModelInvoker, error) {
	e, ok := r.entries[identity]
	if !ok {
		return nil, &domain.ModelConfigError{Model: identity, Reason: "not mapped", Unknown: true}
	}
	if e.err != nil {
		return nil, &domain.ModelConfigError{Model: identity, Reason: e.err.Error()}
	}
	return e.invoker, nil
}

// List returns every configured identity sorted by ID.
func (r *Registry) List() []ModelInfo {
	out := make([]ModelInfo, 0, len(r.entries))
	for id, e := range r.entries {
		info := ModelInfo{ID: id, Kind: e.cfg.Kind, Available: e.err == nil}
		if e.err != nil {
			info.Reason = e.err.Error()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
