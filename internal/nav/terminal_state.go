package nav

import (
	"context"
	"log/slog"
)

// Terminal marks the end of the graph. Executing it yields no successor
// and the run finishes.
type Terminal struct {
	baseState
}

func NewTerminal(logger *slog.Logger, id, description string) *Terminal {
	return &Terminal{baseState: newBaseState(logger, id, description)}
}

func (s *Terminal) Execute(context.Context) (string, error) {
	s.logger.Info("Reached terminal state", slog.String("state", s.id))
	return "", nil
}

func (s *Terminal) IsTerminal() bool { return true }
