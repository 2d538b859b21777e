package nav

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/salieri-auto/menunav/internal/event"
	"github.com/salieri-auto/menunav/internal/utils"
)

// RunOutcome classifies how a whole run ended.
type RunOutcome string

const (
	// RunCompleted means a state finished the run cleanly, normally by
	// reaching a terminal state.
	RunCompleted RunOutcome = "completed"
	// RunAborted means the stuck-loop breaker fired or a stop was
	// requested.
	RunAborted RunOutcome = "aborted"
	// RunInterrupted means the iteration budget ran out with the run
	// still mid-graph.
	RunInterrupted RunOutcome = "interrupted"
)

// Options carries the engine's loop tuning. Values come straight from
// config.Navigation.
type Options struct {
	InitialState    string
	MaxStopCount    int
	BreakCount      int
	FallbackKey     string
	TransitionDelay time.Duration
	MaxIterations   int
	// NudgePause is how long to wait after the nudge keystroke for the
	// screen to settle.
	NudgePause time.Duration
}

// Report summarises a finished run.
type Report struct {
	RunID      string        `json:"runId"`
	Outcome    RunOutcome    `json:"outcome"`
	Iterations int           `json:"iterations"`
	FinalState string        `json:"finalState,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Statistics is a consistent snapshot of the engine's telemetry,
// served by the dashboard and the remote bots.
type Statistics struct {
	RunID                 string                `json:"runId"`
	Running               bool                  `json:"running"`
	CurrentState          string                `json:"currentState,omitempty"`
	RepeatCount           int                   `json:"repeatCount"`
	VisitedStates         []string              `json:"visitedStates"`
	TotalTransitions      int                   `json:"totalTransitions"`
	SuccessfulTransitions int                   `json:"successfulTransitions"`
	SuccessRate           float64               `json:"successRate"`
	States                map[string]StateStats `json:"states"`
	History               []Transition          `json:"history"`
}

// Engine walks the state graph one transition at a time, watching for
// stuck loops. States are registered up front; registration is not
// run-scoped, the visit bookkeeping is.
type Engine struct {
	logger *slog.Logger
	input  Input
	events *event.Listener
	opts   Options

	mu          sync.Mutex
	states      map[string]State
	stats       map[string]*StateStats
	history     []Transition
	visited     map[string]struct{}
	current     string
	previous    string
	repeatCount int
	running     bool
	stopRequest bool
	runID       string

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) bool
}

// NewEngine builds an engine. events may be nil when nothing listens.
func NewEngine(logger *slog.Logger, input Input, events *event.Listener, opts Options) *Engine {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 100
	}
	return &Engine{
		logger: logger,
		input:  input,
		events: events,
		opts:   opts,
		states: make(map[string]State),
		stats:  make(map[string]*StateStats),
		now:    time.Now,
		wait:   utils.Wait,
	}
}

// Register adds a state, replacing any previous state with the same ID.
func (e *Engine) Register(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.states[s.ID()]; ok {
		e.logger.Warn("Replacing registered state", slog.String("state", s.ID()))
	}
	e.states[s.ID()] = s
	if _, ok := e.stats[s.ID()]; !ok {
		e.stats[s.ID()] = &StateStats{}
	}
}

// Unregister removes a state, reporting whether it was registered.
func (e *Engine) Unregister(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.states[id]
	delete(e.states, id)
	return ok
}

// State looks up a registered state by ID.
func (e *Engine) State(id string) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.states[id]
	return s, ok
}

// StateIDs lists the registered state IDs in sorted order.
func (e *Engine) StateIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.states))
	for id := range e.states {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Stop requests the current run to end after the transition in flight.
// Safe to call at any time, from any goroutine.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.stopRequest = true
		e.logger.Info("Stop requested")
	}
}

// Run walks the graph from initialState (the configured initial state
// when empty) until something ends the run. Only one run may be active
// at a time; overlapping calls fail fast with ErrAlreadyRunning.
func (e *Engine) Run(ctx context.Context, initialState string) (Report, error) {
	if initialState == "" {
		initialState = e.opts.InitialState
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return Report{}, ErrAlreadyRunning
	}
	e.running = true
	e.stopRequest = false
	e.current = initialState
	e.previous = ""
	e.visited = make(map[string]struct{})
	e.repeatCount = 0
	e.runID = uuid.NewString()
	runID := e.runID
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.logger.Info("Run starting",
		slog.String("runId", runID),
		slog.String("state", initialState),
	)
	e.emit(event.RunStarted(event.Text(runID, "Navigation run started"), initialState))

	start := e.now()
	outcome := RunCompleted
	iterations := 0

loop:
	for {
		e.mu.Lock()
		current := e.current
		stopped := e.stopRequest
		e.mu.Unlock()

		switch {
		case ctx.Err() != nil || stopped:
			outcome = RunAborted
			break loop
		case current == "":
			outcome = RunCompleted
			break loop
		case iterations >= e.opts.MaxIterations:
			e.logger.Warn("Iteration budget exhausted",
				slog.Int("iterations", iterations),
				slog.String("state", current),
			)
			outcome = RunInterrupted
			break loop
		}
		iterations++

		if !e.trackVisit(ctx, runID, current) {
			outcome = RunAborted
			break loop
		}

		tr := e.executeState(ctx, runID, current)

		e.mu.Lock()
		e.previous = current
		e.current = tr.To
		e.mu.Unlock()

		if tr.To != "" && !e.wait(ctx, e.opts.TransitionDelay) {
			outcome = RunAborted
			break loop
		}
	}

	e.mu.Lock()
	final := e.current
	transitions := len(e.history)
	successes := 0
	for _, tr := range e.history {
		if tr.Succeeded() {
			successes++
		}
	}
	e.mu.Unlock()

	rate := 0.0
	if transitions > 0 {
		rate = float64(successes) / float64(transitions)
	}

	report := Report{
		RunID:      runID,
		Outcome:    outcome,
		Iterations: iterations,
		FinalState: final,
		Duration:   e.now().Sub(start),
	}

	e.logger.Info("Run finished",
		slog.String("runId", runID),
		slog.String("outcome", string(outcome)),
		slog.Int("transitions", transitions),
		slog.Float64("successRate", rate),
	)
	e.emit(event.RunFinished(event.Text(runID, fmt.Sprintf("Navigation run %s", outcome)), string(outcome), transitions, rate))

	return report, nil
}

// trackVisit updates the revisit counter for the state about to run.
// At exactly MaxStopCount repeats it presses the fallback key once to
// nudge the screen; at BreakCount it gives up and returns false.
func (e *Engine) trackVisit(ctx context.Context, runID, id string) bool {
	e.mu.Lock()
	_, seen := e.visited[id]
	if seen {
		e.repeatCount++
	} else {
		e.repeatCount = 0
		e.visited[id] = struct{}{}
	}
	repeats := e.repeatCount
	e.mu.Unlock()

	if !seen {
		return true
	}

	e.logger.Warn("Revisiting state",
		slog.String("state", id),
		slog.Int("repeats", repeats),
	)

	if repeats >= e.opts.BreakCount {
		e.logger.Error("Stuck loop detected, aborting run",
			slog.String("state", id),
			slog.Int("repeats", repeats),
		)
		return false
	}

	if repeats == e.opts.MaxStopCount {
		e.logger.Warn("Possible stuck loop, nudging with fallback key",
			slog.String("state", id),
			slog.String("key", e.opts.FallbackKey),
		)
		e.emit(event.RunStuck(event.Text(runID, fmt.Sprintf("Stuck on %s", id)), id, repeats))
		if err := e.input.PressKey(e.opts.FallbackKey); err != nil {
			e.logger.Warn("Nudge keystroke failed", slog.Any("error", err))
		}
		e.wait(ctx, e.opts.NudgePause)
	}

	return true
}

// executeState runs one state through its lifecycle hooks, records the
// transition and returns it. Panics inside Execute are contained and
// routed through OnError like ordinary failures.
func (e *Engine) executeState(ctx context.Context, runID, id string) Transition {
	began := e.now()

	e.mu.Lock()
	st, ok := e.states[id]
	prev := e.previous
	e.mu.Unlock()

	if !ok {
		e.logger.Error("No such state registered", slog.String("state", id))
		tr := Transition{
			From:      id,
			Timestamp: began,
			Outcome:   OutcomeFailed,
			Error:     fmt.Sprintf("%v: %s", ErrUnknownState, id),
		}
		e.recordTransition(runID, tr)
		return tr
	}

	if prev != "" && !st.CanEnterFrom(prev) {
		e.logger.Error("Transition rejected by entry guard",
			slog.String("from", prev),
			slog.String("state", id),
		)
		tr := Transition{
			From:      id,
			Timestamp: began,
			Outcome:   OutcomeFailed,
			Error:     fmt.Sprintf("entry from %s rejected", prev),
		}
		e.recordTransition(runID, tr)
		return tr
	}

	st.OnEnter()
	e.emit(event.StateEntered(event.Text(runID, fmt.Sprintf("Entered %s", id)), id))

	next, err := e.safeExecute(ctx, st)
	elapsed := e.now().Sub(began)

	var tr Transition
	if err != nil {
		recovery := st.OnError(err)
		tr = Transition{
			From:      id,
			To:        recovery,
			Timestamp: began,
			Duration:  elapsed,
			Outcome:   OutcomeFailed,
			Error:     err.Error(),
		}
	} else {
		outcome := OutcomeSuccess
		if next == "" {
			if st.IsTerminal() {
				outcome = OutcomeTerminated
			} else {
				outcome = OutcomeFailed
			}
		}
		st.OnExit(next)
		tr = Transition{
			From:      id,
			To:        next,
			Timestamp: began,
			Duration:  elapsed,
			Outcome:   outcome,
		}
	}

	e.recordTransition(runID, tr)
	return tr
}

func (e *Engine) safeExecute(ctx context.Context, st State) (next string, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = ""
			err = fmt.Errorf("state %s panicked: %v", st.ID(), r)
		}
	}()
	return st.Execute(ctx)
}

// recordTransition appends to the per-state history first, then the
// global history.
func (e *Engine) recordTransition(runID string, tr Transition) {
	e.mu.Lock()
	stats, ok := e.stats[tr.From]
	if !ok {
		stats = &StateStats{}
		e.stats[tr.From] = stats
	}
	stats.record(tr)
	e.history = append(e.history, tr)
	e.mu.Unlock()

	e.emit(event.TransitionRecorded(
		event.Text(runID, fmt.Sprintf("%s -> %s (%s)", tr.From, tr.To, tr.Outcome)),
		tr.From, tr.To, string(tr.Outcome), tr.Duration,
	))
}

// Statistics returns a consistent copy of the engine's counters and
// history.
func (e *Engine) Statistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	visited := make([]string, 0, len(e.visited))
	for id := range e.visited {
		visited = append(visited, id)
	}
	sort.Strings(visited)

	states := make(map[string]StateStats, len(e.stats))
	for id, s := range e.stats {
		states[id] = s.snapshot()
	}

	history := make([]Transition, len(e.history))
	copy(history, e.history)

	successes := 0
	for _, tr := range e.history {
		if tr.Succeeded() {
			successes++
		}
	}
	rate := 0.0
	if len(e.history) > 0 {
		rate = float64(successes) / float64(len(e.history))
	}

	return Statistics{
		RunID:                 e.runID,
		Running:               e.running,
		CurrentState:          e.current,
		RepeatCount:           e.repeatCount,
		VisitedStates:         visited,
		TotalTransitions:      len(e.history),
		SuccessfulTransitions: successes,
		SuccessRate:           rate,
		States:                states,
		History:               history,
	}
}

// Reset clears run bookkeeping and accumulated telemetry. Rejected
// while a run is active.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}
	e.history = nil
	e.visited = nil
	e.current = ""
	e.previous = ""
	e.repeatCount = 0
	e.runID = ""
	for id := range e.stats {
		e.stats[id] = &StateStats{}
	}
	return nil
}

func (e *Engine) emit(ev event.Event) {
	if e.events != nil {
		e.events.Emit(ev)
	}
}
