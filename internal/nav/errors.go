package nav

import "errors"

var (
	// ErrAlreadyRunning is returned by Run when a run is in progress.
	ErrAlreadyRunning = errors.New("navigation run already in progress")

	// ErrUnknownState is reported when the run lands on a state ID that
	// was never registered.
	ErrUnknownState = errors.New("unknown state")
)
