package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/salieri-auto/menunav/internal/nav"
)

func TestFormatStatistics(t *testing.T) {
	got := formatStatistics(nav.Statistics{
		RunID:                 "run-3",
		Running:               true,
		CurrentState:          "train_menu",
		TotalTransitions:      4,
		SuccessfulTransitions: 3,
		SuccessRate:           0.75,
		VisitedStates:         []string{"solo_menu", "start_menu"},
	})

	assert.Contains(t, got, "run-3 in progress, state train_menu")
	assert.Contains(t, got, "4 (3 successful, rate 0.75)")
	assert.Contains(t, got, "solo_menu, start_menu")
}

func TestFormatStatisticsNoRun(t *testing.T) {
	got := formatStatistics(nav.Statistics{})
	assert.Contains(t, got, "No run yet")
}
