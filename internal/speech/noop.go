package speech

import (
	"context"

	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/logger"
)

var _ domain.Speaker = (*NoOp)(nil)

// NoOp logs instead of speaking. Used when no synthesizer is configured.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a silent speaker.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// Speak logs the text.
func (n *NoOp) Speak(ctx context.Context, text string) error {
	n.log.Info("speech disabled, would say %q", text)
	return nil
}
