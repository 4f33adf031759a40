package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier delivers deployment events as structured log lines. It stands
// in for a real notification channel in single-operator installs.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Notify(ctx context.Context, workspaceID, event string, payload map[string]any) error {
	n.logger.Info().
		Str("workspace_id", workspaceID).
		Str("event", event).
		Fields(payload).
		Msg("deployment event")
	return nil
}
