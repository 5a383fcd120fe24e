package port

import (
	"context"

	"fnolguard/internal/domain"
)

// Escalation describes a high-risk assessment that should reach investigators.
type Escalation struct {
	Model            string
	Score            domain.FraudScore
	Rationale        []string
	Files            []string
	NarrativeExcerpt string
}

// EscalationNotifier delivers escalation notices.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, e Escalation) error
}
