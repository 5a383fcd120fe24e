package port

import (
	"context"

	"fnolguard/internal/domain"
)

// InvokeInput carries the assembled prompt and the stored files it refers to.
type InvokeInput struct {
	Prompt string
	Files  []domain.StoredFileRef
}

// ModelInvoker abstracts one AI backend behind a common reply contract.
type ModelInvoker interface {
	Invoke(ctx context.Context, input InvokeInput) (*domain.ModelReply, error)
}

// ModelResolver maps a model identity to its invoker without performing I/O.
type ModelResolver interface {
	Resolve(identity string) (ModelInvoker, error)
}
