package flagcodec

import (
	"errors"
	"fmt"
)

// ErrUnrecognizedToken is matched by every *UnrecognizedTokenError.
var ErrUnrecognizedToken = errors.New("unrecognized token")

// UnrecognizedTokenError reports a token that no alias in the table matches.
type UnrecognizedTokenError struct {
	Token string // trimmed token as typed
	Input string // full input text
	Table string
}

func (e *UnrecognizedTokenError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("unrecognized token %q in %q", e.Token, e.Input)
	}
	return fmt.Sprintf("unrecognized %s token %q in %q", e.Table, e.Token, e.Input)
}

func (e *UnrecognizedTokenError) Is(target error) bool {
	return target == ErrUnrecognizedToken
}
