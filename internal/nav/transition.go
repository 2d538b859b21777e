package nav

import (
	"time"
)

// Outcome classifies the execution of a single state.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeFailed     Outcome = "failed"
	OutcomeRetry      Outcome = "retry"
	OutcomeTerminated Outcome = "terminated"
)

// Transition is the immutable record of one state execution. To is empty
// when the state produced no successor (terminal or failed).
type Transition struct {
	From      string        `json:"from"`
	To        string        `json:"to,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Outcome   Outcome       `json:"outcome"`
	Error     string        `json:"error,omitempty"`
}

// Succeeded reports whether this transition counts towards the success
// rate. Reaching a terminal state is a success, not a failure.
func (t Transition) Succeeded() bool {
	return t.Outcome == OutcomeSuccess || t.Outcome == OutcomeTerminated
}

// StateStats accumulates per-state execution telemetry. Owned by the
// engine; states never touch their own numbers.
type StateStats struct {
	Executions  int           `json:"executions"`
	Successes   int           `json:"successes"`
	Failures    int           `json:"failures"`
	TotalTime   time.Duration `json:"totalTime"`
	Transitions []Transition  `json:"transitions"`
}

// AverageTime is the mean execution duration, zero before any execution.
func (s *StateStats) AverageTime() time.Duration {
	if s.Executions == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Executions)
}

func (s *StateStats) record(t Transition) {
	s.Executions++
	if t.Succeeded() {
		s.Successes++
	} else {
		s.Failures++
	}
	s.TotalTime += t.Duration
	s.Transitions = append(s.Transitions, t)
}

func (s *StateStats) snapshot() StateStats {
	out := *s
	out.Transitions = make([]Transition, len(s.Transitions))
	copy(out.Transitions, s.Transitions)
	return out
}
