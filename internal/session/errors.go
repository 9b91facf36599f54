package session

import "errors"

// Command errors. Every failed command leaves the prior state unchanged;
// none of these are fatal to the session.
var (
	ErrInvalidInput       = errors.New("session: invalid input")
	ErrPlayerNotFound     = errors.New("session: player not found")
	ErrTeamNotFound       = errors.New("session: team not found")
	ErrTeamFull           = errors.New("session: team full")
	ErrColorPoolExhausted = errors.New("session: color pool exhausted")
	ErrPinMismatch        = errors.New("session: pin mismatch")
)
