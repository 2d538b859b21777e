package nav

import (
	"context"
	"log/slog"
)

// RecoveryStateID is where states route to by default when execution
// fails, see UndefinedRecovery.
const RecoveryStateID = "undefined_menu"

// State is a node in the navigation graph. Execute drives the screen
// towards the next menu and returns the successor state ID, or an empty
// string when there is nowhere to go from here.
type State interface {
	ID() string
	Description() string

	// Execute performs the state's action. A returned error routes the
	// run through OnError; an empty successor with a nil error means the
	// state finished without producing a next hop.
	Execute(ctx context.Context) (next string, err error)

	// Lifecycle hooks, invoked by the engine around Execute.
	OnEnter()
	OnExit(next string)

	// OnError maps an execution error to the state the run should
	// continue from.
	OnError(err error) string

	// CanEnterFrom guards entry from a given predecessor.
	CanEnterFrom(prev string) bool

	// ExpectedTemplates lists the template IDs this state probes for,
	// used by preflight checks and the dashboard.
	ExpectedTemplates() []string

	IsTerminal() bool
}

// baseState carries the identity and default hook behaviour shared by
// all concrete states.
type baseState struct {
	id          string
	description string
	logger      *slog.Logger
}

func newBaseState(logger *slog.Logger, id, description string) baseState {
	return baseState{id: id, description: description, logger: logger}
}

func (s *baseState) ID() string          { return s.id }
func (s *baseState) Description() string { return s.description }

func (s *baseState) OnEnter() {
	s.logger.Debug("Entering state", slog.String("state", s.id))
}

func (s *baseState) OnExit(next string) {
	if next == "" {
		next = "END"
	}
	s.logger.Debug("Exiting state", slog.String("state", s.id), slog.String("next", next))
}

func (s *baseState) OnError(err error) string {
	s.logger.Error("State execution failed, routing to recovery",
		slog.String("state", s.id),
		slog.Any("error", err),
	)
	return RecoveryStateID
}

func (s *baseState) CanEnterFrom(string) bool { return true }

func (s *baseState) ExpectedTemplates() []string { return nil }

func (s *baseState) IsTerminal() bool { return false }
