package noop

import (
	"context"

	"go.uber.org/zap"

	"fnolguard/internal/port"
)

type noopNotifier struct {
	log *zap.Logger
}

// NewNoopNotifier creates an EscalationNotifier that only logs escalations.
func NewNoopNotifier(log *zap.Logger) port.EscalationNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &noopNotifier{log: log}
}

func (n *noopNotifier) NotifyEscalation(_ context.Context, e port.Escalation) error {
	n.log.Info("[NOOP EMAIL] escalation",
		zap.String("model", e.Model),
		zap.String("score", string(e.Score)),
		zap.Strings("rationale", e.Rationale),
		zap.Strings("files", e.Files))
	return nil
}
