// Package parser provides RDF serialization parsers keyed by content type.
// Parsers return fully-resolved triples plus the prefix context declared by
// the payload; malformed statements are skipped and counted rather than
// failing the whole parse.
package parser

import (
	"fmt"
	"strings"
	"sync"

	"github.com/c360studio/semknow/rdf"
)

// Result is the output of a successful parse.
type Result struct {
	// Triples are the parsed statements with prefixed names expanded.
	Triples []rdf.Triple

	// Prefixes holds the prefix declarations found in the payload,
	// overlaid on the well-known defaults.
	Prefixes rdf.PrefixMap

	// Skipped counts statements that were malformed and dropped.
	Skipped int
}

// Parser defines the interface for RDF serialization parsers.
type Parser interface {
	// Parse parses a payload and returns resolved triples.
	Parse(source string, content []byte) (*Result, error)

	// CanParse returns true if this parser handles the given MIME type.
	CanParse(mimeType string) bool

	// MimeType returns the primary MIME type for this parser.
	MimeType() string
}

// Registry manages serialization parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser // keyed by primary MIME type
}

// NewRegistry creates a new parser registry with the default parsers.
func NewRegistry() *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
	}

	r.Register(NewTurtleParser())
	r.Register(NewNTriplesParser())

	return r
}

// Register adds a parser to the registry.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[p.MimeType()] = p
}

// GetByMimeType returns a parser for the given MIME type, or nil.
// Media type parameters (charset, q) are ignored.
func (r *Registry) GetByMimeType(mimeType string) Parser {
	mimeType = normalizeMimeType(mimeType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.parsers[mimeType]; ok {
		return p
	}
	for _, p := range r.parsers {
		if p.CanParse(mimeType) {
			return p
		}
	}
	return nil
}

// Parse parses a payload using the parser registered for its content type.
// An unregistered content type yields rdf.ErrUnsupportedFormat.
func (r *Registry) Parse(source string, content []byte, contentType string) (*Result, error) {
	p := r.GetByMimeType(contentType)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", rdf.ErrUnsupportedFormat, contentType)
	}
	return p.Parse(source, content)
}

// ListMimeTypes returns all registered primary MIME types.
func (r *Registry) ListMimeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.parsers))
	for t := range r.parsers {
		types = append(types, t)
	}
	return types
}

// normalizeMimeType lowercases a media type and strips parameters,
// e.g. "text/Turtle; charset=utf-8" -> "text/turtle".
func normalizeMimeType(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
