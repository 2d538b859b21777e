package vision

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/salieri-auto/menunav/internal/utils"
)

// Capturer supplies a grayscale snapshot of the game display on demand.
type Capturer interface {
	CaptureFrame() (*image.Gray, error)
}

// Scorer returns the best position for tpl inside screen and a confidence
// in [0, 1]. It must be deterministic for identical inputs.
type Scorer func(screen, tpl *image.Gray) (image.Point, float64)

// MatchResult is the outcome of one Probe call. Position is meaningful only
// when Found is true, and Confidence is the score of the poll that
// succeeded; polls are independent, no running maximum is kept.
type MatchResult struct {
	Found        bool
	Position     image.Point
	Confidence   float64
	TemplateSize image.Point
	Elapsed      time.Duration
}

// ProbeOptions are the per-call knobs of a probe loop.
type ProbeOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	Threshold    float64
	// Region restricts the search to a sub-rectangle of the capture.
	// Positions in the result are reported in full-frame coordinates.
	Region *image.Rectangle
}

// Prober polls the capture/scorer pair until a template clears the
// confidence threshold or the timeout elapses.
type Prober struct {
	templates *TemplateStore
	capture   Capturer
	score     Scorer
	logger    *slog.Logger

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) bool
}

func NewProber(templates *TemplateStore, capture Capturer, logger *slog.Logger) *Prober {
	return &Prober{
		templates: templates,
		capture:   capture,
		score:     Score,
		logger:    logger,
		now:       time.Now,
		wait:      utils.Wait,
	}
}

// Probe looks for templateID on screen, repeating capture+score every
// PollInterval until the threshold is met (inclusive comparison) or Timeout
// elapses. A template that cannot be loaded fails immediately: that is a
// configuration problem, not a transient one, so retrying cannot help.
// Cancellation of ctx is observed between polls.
func (p *Prober) Probe(ctx context.Context, templateID string, opts ProbeOptions) MatchResult {
	start := p.now()

	tpl, err := p.templates.Load(templateID)
	if err != nil {
		p.logger.Error("Template could not be loaded", slog.String("template", templateID), slog.Any("error", err))
		return MatchResult{Found: false, Elapsed: p.now().Sub(start)}
	}

	size := tpl.Size()

	for p.now().Sub(start) < opts.Timeout {
		if ctx.Err() != nil {
			break
		}

		frame, err := p.capture.CaptureFrame()
		if err != nil {
			p.logger.Warn("Screen capture failed", slog.Any("error", err))
			if !p.wait(ctx, opts.PollInterval) {
				break
			}
			continue
		}

		offset := image.Point{}
		if opts.Region != nil {
			r := opts.Region.Intersect(frame.Bounds())
			frame = frame.SubImage(r).(*image.Gray)
			offset = r.Min
		}

		loc, confidence := p.score(frame, tpl.Gray)
		if confidence >= opts.Threshold {
			center := image.Point{
				X: loc.X + size.X/2 + offset.X,
				Y: loc.Y + size.Y/2 + offset.Y,
			}
			elapsed := p.now().Sub(start)
			p.logger.Debug("Template matched",
				slog.String("template", templateID),
				slog.Int("x", center.X), slog.Int("y", center.Y),
				slog.Float64("confidence", confidence),
				slog.Duration("elapsed", elapsed))

			return MatchResult{
				Found:        true,
				Position:     center,
				Confidence:   confidence,
				TemplateSize: size,
				Elapsed:      elapsed,
			}
		}

		if !p.wait(ctx, opts.PollInterval) {
			break
		}
	}

	elapsed := p.now().Sub(start)
	p.logger.Debug("Template not found within timeout",
		slog.String("template", templateID), slog.Duration("elapsed", elapsed))

	return MatchResult{Found: false, TemplateSize: size, Elapsed: elapsed}
}
