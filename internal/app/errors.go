package service

import "errors"

var (
	// ErrBadState is returned for a live match state that cannot be scored.
	ErrBadState = errors.New("invalid match state")
	// ErrUnknownRole is returned for a form role other than batsman or bowler.
	ErrUnknownRole = errors.New("unknown role")
)
