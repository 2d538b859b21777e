package nav

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/salieri-auto/menunav/internal/utils"
	"github.com/salieri-auto/menunav/internal/vision"
)

// Prober locates templates on the live screen. Satisfied by
// *vision.Prober.
type Prober interface {
	Probe(ctx context.Context, templateID string, opts vision.ProbeOptions) vision.MatchResult
}

// Input injects pointer and keyboard events into the game window.
type Input interface {
	MovePointer(x, y int)
	Click(x, y int) error
	PressKey(key string) error
}

// ClickOptions tunes the find-and-click retry loop.
type ClickOptions struct {
	Retries        int
	RetryDelay     time.Duration
	PostClickDelay time.Duration
	FallbackKey    string
	Probe          vision.ProbeOptions
}

// Clicker binds the prober and the input layer into the single
// operation states need: find a button, click it, or fall back to a
// keystroke.
type Clicker struct {
	prober Prober
	input  Input
	opts   ClickOptions
	logger *slog.Logger

	wait func(ctx context.Context, d time.Duration) bool
}

func NewClicker(logger *slog.Logger, prober Prober, input Input, opts ClickOptions) *Clicker {
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	return &Clicker{
		prober: prober,
		input:  input,
		opts:   opts,
		logger: logger,
		wait:   utils.Wait,
	}
}

// FindAndClick probes for the template IDs in order and clicks the
// first one found, pointer offset by clickOffset from the match centre.
// Each failed attempt, the last included, presses the fallback key
// before the next try. A non-positive timeout keeps the configured
// probe timeout.
func (c *Clicker) FindAndClick(ctx context.Context, templateIDs []string, clickOffset image.Point, timeout time.Duration) bool {
	probeOpts := c.opts.Probe
	if timeout > 0 {
		probeOpts.Timeout = timeout
	}

	for attempt := 1; attempt <= c.opts.Retries; attempt++ {
		if ctx.Err() != nil {
			return false
		}

		if c.tryOnce(ctx, templateIDs, clickOffset, probeOpts) {
			return true
		}

		c.logger.Debug("Click attempt failed, pressing fallback key",
			slog.Int("attempt", attempt),
			slog.String("key", c.opts.FallbackKey),
		)
		if err := c.input.PressKey(c.opts.FallbackKey); err != nil {
			c.logger.Warn("Fallback keystroke failed", slog.Any("error", err))
		}
		if attempt < c.opts.Retries {
			delay := c.opts.RetryDelay
			if delay > 0 {
				// Jittered so retries do not land on a fixed cadence.
				delay += utils.RandomDurationMs(0, 250)
			}
			if !c.wait(ctx, delay) {
				return false
			}
		}
	}

	return false
}

func (c *Clicker) tryOnce(ctx context.Context, templateIDs []string, clickOffset image.Point, probeOpts vision.ProbeOptions) bool {
	for _, id := range templateIDs {
		res := c.prober.Probe(ctx, id, probeOpts)
		if !res.Found {
			continue
		}

		pos := res.Position.Add(clickOffset)
		c.input.MovePointer(pos.X, pos.Y)
		if err := c.input.Click(pos.X, pos.Y); err != nil {
			c.logger.Warn("Click failed",
				slog.String("template", id),
				slog.Any("error", err),
			)
			return false
		}

		c.logger.Info("Clicked",
			slog.String("template", id),
			slog.Int("x", pos.X),
			slog.Int("y", pos.Y),
			slog.Float64("confidence", res.Confidence),
		)
		c.wait(ctx, c.opts.PostClickDelay)
		return true
	}

	return false
}
