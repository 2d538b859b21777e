package nav

import (
	"context"
	"image"
	"log/slog"
	"time"
)

// ImageTransition clicks a template button and hands off to a fixed
// successor. When neither the primary template nor any alternative can
// be clicked, it yields no successor and lets the engine's stuck policy
// take over.
type ImageTransition struct {
	baseState

	clicker      *Clicker
	template     string
	alternatives []string
	next         string
	clickOffset  image.Point
	timeout      time.Duration
}

type ImageTransitionOption func(*ImageTransition)

// WithAlternatives adds templates probed, in order, after the primary.
func WithAlternatives(templates ...string) ImageTransitionOption {
	return func(s *ImageTransition) { s.alternatives = templates }
}

// WithClickOffset shifts the click away from the match centre.
func WithClickOffset(dx, dy int) ImageTransitionOption {
	return func(s *ImageTransition) { s.clickOffset = image.Pt(dx, dy) }
}

// WithTimeout overrides the clicker's configured probe timeout for this
// state only.
func WithTimeout(d time.Duration) ImageTransitionOption {
	return func(s *ImageTransition) { s.timeout = d }
}

func NewImageTransition(logger *slog.Logger, id, description string, clicker *Clicker, template, next string, opts ...ImageTransitionOption) *ImageTransition {
	s := &ImageTransition{
		baseState: newBaseState(logger, id, description),
		clicker:   clicker,
		template:  template,
		next:      next,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ImageTransition) Execute(ctx context.Context) (string, error) {
	if s.clicker.FindAndClick(ctx, s.ExpectedTemplates(), s.clickOffset, s.timeout) {
		return s.next, nil
	}

	s.logger.Warn("Button not found, no successor",
		slog.String("state", s.id),
		slog.String("template", s.template),
	)
	return "", nil
}

func (s *ImageTransition) ExpectedTemplates() []string {
	return append([]string{s.template}, s.alternatives...)
}
