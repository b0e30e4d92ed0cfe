package rdf

import "errors"

// Sentinel errors for RDF payload handling. Callers classify with errors.Is.
var (
	// ErrParse indicates the payload could not be parsed at all.
	// Partially malformed payloads do not raise this; individual bad
	// statements are skipped and counted instead.
	ErrParse = errors.New("rdf parse failed")

	// ErrUnsupportedFormat indicates no parser is registered for the
	// payload's content type.
	ErrUnsupportedFormat = errors.New("unsupported rdf format")
)
