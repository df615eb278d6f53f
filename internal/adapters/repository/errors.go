package repository

import "errors"

// Sentinel kinds for corpus store errors.
var (
	ErrNoForms = errors.New("no form table stored")
	ErrStore   = errors.New("corpus store failure")
)
