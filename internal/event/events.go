package event

import (
	"time"
)

// Event is anything worth telling the outside world about a run.
type Event interface {
	Message() string
	OccurredAt() time.Time
	RunID() string
}

// BaseEvent carries the fields shared by every event type.
type BaseEvent struct {
	message    string
	occurredAt time.Time
	runID      string
}

func (b BaseEvent) Message() string        { return b.message }
func (b BaseEvent) OccurredAt() time.Time  { return b.occurredAt }
func (b BaseEvent) RunID() string          { return b.runID }

// Text builds the common part of an event.
func Text(runID, message string) BaseEvent {
	return BaseEvent{
		message:    message,
		occurredAt: time.Now(),
		runID:      runID,
	}
}

// RunStartedEvent marks the beginning of a navigation run.
type RunStartedEvent struct {
	BaseEvent
	InitialState string
}

func RunStarted(be BaseEvent, initialState string) RunStartedEvent {
	return RunStartedEvent{BaseEvent: be, InitialState: initialState}
}

// StateEnteredEvent fires when the engine hands control to a state.
type StateEnteredEvent struct {
	BaseEvent
	State string
}

func StateEntered(be BaseEvent, state string) StateEnteredEvent {
	return StateEnteredEvent{BaseEvent: be, State: state}
}

// TransitionRecordedEvent fires once per engine iteration, after the
// transition has been appended to the histories.
type TransitionRecordedEvent struct {
	BaseEvent
	From     string
	To       string
	Outcome  string
	Duration time.Duration
}

func TransitionRecorded(be BaseEvent, from, to, outcome string, duration time.Duration) TransitionRecordedEvent {
	return TransitionRecordedEvent{BaseEvent: be, From: from, To: to, Outcome: outcome, Duration: duration}
}

// RunStuckEvent fires when the engine suspects a stuck loop and nudges.
type RunStuckEvent struct {
	BaseEvent
	State       string
	RepeatCount int
}

func RunStuck(be BaseEvent, state string, repeatCount int) RunStuckEvent {
	return RunStuckEvent{BaseEvent: be, State: state, RepeatCount: repeatCount}
}

// RunFinishedEvent carries the terminal classification of a run.
type RunFinishedEvent struct {
	BaseEvent
	Outcome     string
	Transitions int
	SuccessRate float64
}

func RunFinished(be BaseEvent, outcome string, transitions int, successRate float64) RunFinishedEvent {
	return RunFinishedEvent{BaseEvent: be, Outcome: outcome, Transitions: transitions, SuccessRate: successRate}
}
