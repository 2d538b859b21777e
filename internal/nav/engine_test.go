package nav

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeInput struct {
	mu     sync.Mutex
	moves  []image.Point
	clicks []image.Point
	keys   []string

	clickErr error
}

func (f *fakeInput) MovePointer(x, y int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, image.Pt(x, y))
}

func (f *fakeInput) Click(x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, image.Pt(x, y))
	return f.clickErr
}

func (f *fakeInput) PressKey(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeInput) pressedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// stubState walks a scripted successor list; the last entry repeats.
type stubState struct {
	baseState

	script     []string
	execErr    error
	panicMsg   string
	terminal   bool
	guard      func(prev string) bool
	executions int
}

func newStubState(id string, script ...string) *stubState {
	return &stubState{
		baseState: newBaseState(discardLogger(), id, id),
		script:    script,
	}
}

func (s *stubState) Execute(context.Context) (string, error) {
	s.executions++
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.execErr != nil {
		return "", s.execErr
	}
	if len(s.script) == 0 {
		return "", nil
	}
	next := s.script[0]
	if len(s.script) > 1 {
		s.script = s.script[1:]
	}
	return next, nil
}

func (s *stubState) IsTerminal() bool { return s.terminal }

func (s *stubState) CanEnterFrom(prev string) bool {
	if s.guard == nil {
		return true
	}
	return s.guard(prev)
}

func testOptions() Options {
	return Options{
		InitialState:  "start_menu",
		MaxStopCount:  5,
		BreakCount:    8,
		FallbackKey:   "esc",
		MaxIterations: 100,
	}
}

func TestEngineHappyPathReachesTerminal(t *testing.T) {
	input := &fakeInput{}
	e := NewEngine(discardLogger(), input, nil, testOptions())

	chain := []string{"start_menu", "solo_menu", "train_menu", "challenge_menu", "sp_challenge_menu", "level_menu"}
	for i, id := range chain {
		next := "play_menu"
		if i < len(chain)-1 {
			next = chain[i+1]
		}
		e.Register(newStubState(id, next))
	}
	e.Register(NewTerminal(discardLogger(), "play_menu", "in game"))

	report, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, RunCompleted, report.Outcome)
	assert.Equal(t, 7, report.Iterations)
	assert.Empty(t, report.FinalState)
	assert.NotEmpty(t, report.RunID)

	stats := e.Statistics()
	assert.Equal(t, 7, stats.TotalTransitions)
	assert.Equal(t, 7, stats.SuccessfulTransitions)
	assert.InDelta(t, 1.0, stats.SuccessRate, 1e-9)
	assert.Equal(t, OutcomeTerminated, stats.History[6].Outcome)
	assert.Empty(t, input.pressedKeys())
}

func TestEnginePingPongNudgesOnceThenAborts(t *testing.T) {
	input := &fakeInput{}
	e := NewEngine(discardLogger(), input, nil, testOptions())

	e.Register(newStubState("start_menu", "solo_menu"))
	e.Register(newStubState("solo_menu", "start_menu"))

	report, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, RunAborted, report.Outcome)
	// One nudge at the fifth repeat, nothing more until the breaker.
	assert.Equal(t, []string{"esc"}, input.pressedKeys())

	stats := e.Statistics()
	assert.Equal(t, 9, stats.TotalTransitions)
	assert.Equal(t, 8, stats.RepeatCount)
}

func TestEngineIterationBudgetInterrupts(t *testing.T) {
	opts := testOptions()
	opts.InitialState = "a"
	opts.MaxIterations = 3
	e := NewEngine(discardLogger(), &fakeInput{}, nil, opts)

	e.Register(newStubState("a", "b"))
	e.Register(newStubState("b", "c"))
	e.Register(newStubState("c", "d"))
	e.Register(newStubState("d", "e"))
	e.Register(newStubState("e", ""))

	report, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, RunInterrupted, report.Outcome)
	assert.Equal(t, 3, report.Iterations)
	assert.Equal(t, "d", report.FinalState)
}

func TestEngineRepeatCounterResetsOnNewState(t *testing.T) {
	opts := testOptions()
	opts.InitialState = "a"
	input := &fakeInput{}
	e := NewEngine(discardLogger(), input, nil, opts)

	// a -> b -> a -> c -> done: one revisit of a, then fresh ground.
	e.Register(newStubState("a", "b", "c"))
	e.Register(newStubState("b", "a"))
	terminal := newStubState("c")
	terminal.terminal = true
	e.Register(terminal)

	report, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, RunCompleted, report.Outcome)
	assert.Equal(t, 0, e.Statistics().RepeatCount)
	assert.Empty(t, input.pressedKeys())
}

func TestEngineErrorRoutesToRecovery(t *testing.T) {
	opts := testOptions()
	opts.InitialState = "a"
	e := NewEngine(discardLogger(), &fakeInput{}, nil, opts)

	failing := newStubState("a")
	failing.execErr = errors.New("window vanished")
	e.Register(failing)
	recovery := newStubState(RecoveryStateID)
	recovery.terminal = true
	e.Register(recovery)

	report, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, RunCompleted, report.Outcome)
	assert.Equal(t, 1, recovery.executions)

	stats := e.Statistics()
	require.Len(t, stats.History, 2)
	assert.Equal(t, OutcomeFailed, stats.History[0].Outcome)
	assert.Equal(t, RecoveryStateID, stats.History[0].To)
	assert.Equal(t, "window vanished", stats.History[0].Error)
}

func TestEnginePanicIsContained(t *testing.T) {
	opts := testOptions()
	opts.InitialState = "a"
	e := NewEngine(discardLogger(), &fakeInput{}, nil, opts)

	panicking := newStubState("a")
	panicking.panicMsg = "nil template"
	e.Register(panicking)
	recovery := newStubState(RecoveryStateID)
	recovery.terminal = true
	e.Register(recovery)

	report, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, RunCompleted, report.Outcome)
	stats := e.Statistics()
	require.NotEmpty(t, stats.History)
	assert.Equal(t, OutcomeFailed, stats.History[0].Outcome)
	assert.Contains(t, stats.History[0].Error, "panicked")
	assert.Equal(t, 1, recovery.executions)
}

func TestEngineUnknownStateFailsTransition(t *testing.T) {
	opts := testOptions()
	opts.InitialState = "a"
	e := NewEngine(discardLogger(), &fakeInput{}, nil, opts)
	e.Register(newStubState("a", "ghost"))

	report, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, RunCompleted, report.Outcome)
	stats := e.Statistics()
	require.Len(t, stats.History, 2)
	last := stats.History[1]
	assert.Equal(t, "ghost", last.From)
	assert.Equal(t, OutcomeFailed, last.Outcome)
	assert.Contains(t, last.Error, "unknown state")
}

func TestEngineEntryGuardRejects(t *testing.T) {
	opts := testOptions()
	opts.InitialState = "a"
	e := NewEngine(discardLogger(), &fakeInput{}, nil, opts)

	e.Register(newStubState("a", "b"))
	guarded := newStubState("b")
	guarded.guard = func(prev string) bool { return prev != "a" }
	e.Register(guarded)

	report, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, RunCompleted, report.Outcome)
	assert.Equal(t, 0, guarded.executions)
	stats := e.Statistics()
	require.Len(t, stats.History, 2)
	assert.Equal(t, OutcomeFailed, stats.History[1].Outcome)
	assert.Contains(t, stats.History[1].Error, "rejected")
}

type blockingState struct {
	baseState
	started chan struct{}
	once    sync.Once
}

func (s *blockingState) Execute(ctx context.Context) (string, error) {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return "", ctx.Err()
}

func TestEngineRejectsOverlappingRuns(t *testing.T) {
	opts := testOptions()
	opts.InitialState = "block"
	e := NewEngine(discardLogger(), &fakeInput{}, nil, opts)

	blocker := &blockingState{
		baseState: newBaseState(discardLogger(), "block", "block"),
		started:   make(chan struct{}),
	}
	e.Register(blocker)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Report, 1)
	go func() {
		report, _ := e.Run(ctx, "")
		done <- report
	}()

	select {
	case <-blocker.started:
	case <-time.After(5 * time.Second):
		t.Fatal("run never started")
	}

	_, err := e.Run(context.Background(), "")
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	cancel()
	select {
	case report := <-done:
		assert.Equal(t, RunAborted, report.Outcome)
	case <-time.After(5 * time.Second):
		t.Fatal("run never finished")
	}

	// With the first run over, a new one is accepted again.
	e.Register(newStubState("block"))
	report, err := e.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, report.Outcome)
}

func TestEngineStopAbortsRun(t *testing.T) {
	opts := testOptions()
	opts.InitialState = "block"
	e := NewEngine(discardLogger(), &fakeInput{}, nil, opts)

	blocker := &blockingState{
		baseState: newBaseState(discardLogger(), "block", "block"),
		started:   make(chan struct{}),
	}
	e.Register(blocker)

	// Stop only flags the run; cancel the context to release the
	// blocked state like the signal handler does.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan Report, 1)
	go func() {
		report, _ := e.Run(ctx, "")
		done <- report
	}()

	<-blocker.started
	e.Stop()
	cancel()

	select {
	case report := <-done:
		assert.Equal(t, RunAborted, report.Outcome)
	case <-time.After(5 * time.Second):
		t.Fatal("run never finished")
	}
}

func TestEngineRegistryReplaceAndUnregister(t *testing.T) {
	e := NewEngine(discardLogger(), &fakeInput{}, nil, testOptions())

	first := newStubState("a", "b")
	second := newStubState("a", "c")
	e.Register(first)
	e.Register(second)

	got, ok := e.State("a")
	require.True(t, ok)
	assert.Same(t, second, got)

	assert.True(t, e.Unregister("a"))
	assert.False(t, e.Unregister("a"))
	_, ok = e.State("a")
	assert.False(t, ok)
}

func TestEngineResetClearsTelemetry(t *testing.T) {
	opts := testOptions()
	opts.InitialState = "a"
	e := NewEngine(discardLogger(), &fakeInput{}, nil, opts)
	terminal := newStubState("a")
	terminal.terminal = true
	e.Register(terminal)

	_, err := e.Run(context.Background(), "")
	require.NoError(t, err)
	require.NotZero(t, e.Statistics().TotalTransitions)

	require.NoError(t, e.Reset())
	stats := e.Statistics()
	assert.Zero(t, stats.TotalTransitions)
	assert.Empty(t, stats.VisitedStates)
	assert.Empty(t, stats.RunID)
}
