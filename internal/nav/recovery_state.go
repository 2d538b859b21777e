package nav

import (
	"context"
	"log/slog"
	"time"

	"github.com/salieri-auto/menunav/internal/utils"
	"github.com/salieri-auto/menunav/internal/vision"
)

// Signature maps a template that is unique to one menu to the state
// handling that menu. UndefinedRecovery checks signatures in order, so
// more specific templates go first.
type Signature struct {
	Template string
	State    string
}

// UndefinedRecovery re-orients a lost run. It parks the pointer out of
// the way, probes each known menu signature with a short timeout and
// jumps to the state that owns the first match. When nothing matches it
// presses the fallback key and loops on itself until the engine's
// break counter gives up.
type UndefinedRecovery struct {
	baseState

	prober      Prober
	input       Input
	signatures  []Signature
	fallbackKey string
	probeOpts   vision.ProbeOptions
	retryPause  time.Duration

	wait func(ctx context.Context, d time.Duration) bool
}

func NewUndefinedRecovery(logger *slog.Logger, prober Prober, input Input, signatures []Signature, fallbackKey string, threshold float64) *UndefinedRecovery {
	return &UndefinedRecovery{
		baseState:   newBaseState(logger, RecoveryStateID, "Identify the current menu and re-enter the graph"),
		prober:      prober,
		input:       input,
		signatures:  signatures,
		fallbackKey: fallbackKey,
		probeOpts: vision.ProbeOptions{
			Timeout:      time.Second,
			PollInterval: 250 * time.Millisecond,
			Threshold:    threshold,
		},
		retryPause: time.Second,
		wait:       utils.Wait,
	}
}

func (s *UndefinedRecovery) Execute(ctx context.Context) (string, error) {
	// Park the pointer so it cannot sit on top of a button and skew
	// the match scores.
	s.input.MovePointer(10, 10)

	for _, sig := range s.signatures {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		res := s.prober.Probe(ctx, sig.Template, s.probeOpts)
		if res.Found {
			s.logger.Info("Menu identified",
				slog.String("template", sig.Template),
				slog.String("state", sig.State),
				slog.Float64("confidence", res.Confidence),
			)
			return sig.State, nil
		}
	}

	s.logger.Warn("No known menu on screen, pressing fallback key",
		slog.String("key", s.fallbackKey),
	)
	if err := s.input.PressKey(s.fallbackKey); err != nil {
		s.logger.Warn("Fallback keystroke failed", slog.Any("error", err))
	}
	if !s.wait(ctx, s.retryPause) {
		return "", ctx.Err()
	}

	return s.id, nil
}

func (s *UndefinedRecovery) ExpectedTemplates() []string {
	out := make([]string, 0, len(s.signatures))
	for _, sig := range s.signatures {
		out = append(out, sig.Template)
	}
	return out
}
