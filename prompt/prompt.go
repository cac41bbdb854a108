// Package prompt asks the user for consent before privileged operations.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrCancelled = errors.New("prompt cancelled")

// Prompter asks the user a yes/no question. It may block until the user
// answers or ctx is done.
type Prompter interface {
	Accepted(ctx context.Context, title, message string) (bool, error)
}

// Static answers every prompt the same way. Used for headless runs.
type Static bool

func (s Static) Accepted(ctx context.Context, title, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return bool(s), nil
}

// Func adapts a function to Prompter
type Func func(ctx context.Context, title, message string) (bool, error)

func (f Func) Accepted(ctx context.Context, title, message string) (bool, error) {
	return f(ctx, title, message)
}

const (
	ModeTerminal = "terminal"
	ModeAccept   = "accept"
	ModeDeny     = "deny"
)

// FromMode builds the prompter named by the config PromptMode value
func FromMode(mode string) (Prompter, error) {
	switch strings.ToLower(mode) {
	case "", ModeTerminal:
		return NewTerminal(), nil
	case ModeAccept:
		return Static(true), nil
	case ModeDeny:
		return Static(false), nil
	default:
		return nil, fmt.Errorf("unknown prompt mode %q", mode)
	}
}
