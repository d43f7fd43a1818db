package common

import (
	"fmt"

	cdperrors "vaultchain/core/errors"
)

// PauseView reports whether an engine action is currently disabled.
type PauseView interface {
	IsPaused(action string) bool
}

// Guard rejects the call when the action is paused.
func Guard(p PauseView, action string) error {
	if p == nil || action == "" {
		return nil
	}
	if p.IsPaused(action) {
		return fmt.Errorf("%w: %s", cdperrors.ErrPaused, action)
	}
	return nil
}
