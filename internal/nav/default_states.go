package nav

import (
	"log/slog"
)

// DefaultSignatures is the menu identification table used by the
// recovery state. Ordered: templates unique to deeper menus come
// first, the landing screen last.
func DefaultSignatures() []Signature {
	return []Signature{
		{Template: "btn_challenge.png", State: "train_menu"},
		{Template: "btn_train.png", State: "solo_menu"},
		{Template: "btn_solo.png", State: "start_menu"},
	}
}

// DefaultStates builds the standard menu graph: landing screen through
// the solo/train/challenge menus down to the in-game terminal state.
func DefaultStates(logger *slog.Logger, clicker *Clicker, recovery *UndefinedRecovery) []State {
	return []State{
		recovery,
		NewImageTransition(logger, "start_menu", "Landing screen, pick solo play",
			clicker, "btn_solo.png", "solo_menu",
			WithAlternatives("btn_solo2.png"),
		),
		NewImageTransition(logger, "solo_menu", "Solo menu, open training",
			clicker, "btn_train.png", "train_menu"),
		NewImageTransition(logger, "train_menu", "Training menu, open challenges",
			clicker, "btn_challenge.png", "challenge_menu"),
		NewImageTransition(logger, "challenge_menu", "Challenge list, start playing",
			clicker, "btn_play.png", "sp_challenge_menu"),
		NewImageTransition(logger, "sp_challenge_menu", "Challenge setup, pick level",
			clicker, "btn_level.png", "level_menu"),
		NewImageTransition(logger, "level_menu", "Level select, launch",
			clicker, "btn_play.png", "play_menu"),
		NewTerminal(logger, "play_menu", "In game"),
	}
}
