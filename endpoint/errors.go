package endpoint

import "errors"

var (
	// ErrNotFound indicates the name resolved through no table and live
	// discovery found nothing.
	ErrNotFound = errors.New("endpoint not found")

	// ErrNoIdentifierRule indicates no identifier-shape rule matched.
	ErrNoIdentifierRule = errors.New("no identifier rule matches")
)
