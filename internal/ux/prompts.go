package ux

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
)

// ConfirmFunc asks a yes/no question.
type ConfirmFunc func(ctx context.Context, title string, defaultYes bool) (bool, error)

// Confirm asks a yes/no question with huh. An aborted form returns false.
func Confirm(ctx context.Context, title string, defaultYes bool) (bool, error) {
	answer := defaultYes
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Affirmative("Yes").
			Negative("No").
			Value(&answer),
	))
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return answer, nil
}
