package nav

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salieri-auto/menunav/internal/vision"
)

func TestRecoveryIdentifiesMenuBySignature(t *testing.T) {
	prober := &fakeProber{results: map[string]vision.MatchResult{
		"btn_train.png": foundAt(200, 300),
	}}
	input := &fakeInput{}
	s := NewUndefinedRecovery(discardLogger(), prober, input, DefaultSignatures(), "esc", 0.8)

	next, err := s.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "solo_menu", next)
	// Pointer parked out of the way before any probing.
	assert.Equal(t, []image.Point{image.Pt(10, 10)}, input.moves)
	assert.Empty(t, input.pressedKeys())
}

func TestRecoveryChecksSignaturesInOrder(t *testing.T) {
	prober := &fakeProber{results: map[string]vision.MatchResult{
		"btn_challenge.png": foundAt(1, 1),
		"btn_solo.png":      foundAt(2, 2),
	}}
	s := NewUndefinedRecovery(discardLogger(), prober, &fakeInput{}, DefaultSignatures(), "esc", 0.8)

	next, err := s.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "train_menu", next)
	assert.Equal(t, []string{"btn_challenge.png"}, prober.calls)
}

func TestRecoveryLoopsOnItselfWhenNothingMatches(t *testing.T) {
	prober := &fakeProber{}
	input := &fakeInput{}
	s := NewUndefinedRecovery(discardLogger(), prober, input, DefaultSignatures(), "esc", 0.8)
	s.retryPause = 0

	next, err := s.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RecoveryStateID, next)
	assert.Equal(t, []string{"esc"}, input.pressedKeys())
	assert.Len(t, prober.calls, len(DefaultSignatures()))
}

func TestImageTransitionReturnsSuccessorOnClick(t *testing.T) {
	prober := &fakeProber{results: map[string]vision.MatchResult{
		"btn_solo.png": foundAt(40, 40),
	}}
	clicker := NewClicker(discardLogger(), prober, &fakeInput{}, testClickOptions())
	s := NewImageTransition(discardLogger(), "start_menu", "landing", clicker, "btn_solo.png", "solo_menu",
		WithAlternatives("btn_solo2.png"))

	next, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "solo_menu", next)
	assert.Equal(t, []string{"btn_solo.png", "btn_solo2.png"}, s.ExpectedTemplates())
}

func TestImageTransitionYieldsNoSuccessorWhenNotFound(t *testing.T) {
	clicker := NewClicker(discardLogger(), &fakeProber{}, &fakeInput{}, testClickOptions())
	s := NewImageTransition(discardLogger(), "start_menu", "landing", clicker, "btn_solo.png", "solo_menu")

	next, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, next)
}
