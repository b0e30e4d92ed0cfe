// Package rdf provides the core triple, prefix, and vocabulary types shared
// by the serialization parsers, the normalizer, and the template reasoner.
package rdf

import (
	"fmt"
	"strings"
)

// Triple represents a single RDF statement with fully-resolved terms.
// Subject and Predicate are always IRIs (blank nodes carry a skolem label
// in IRI position). Object is either an IRI or a literal value, flagged
// by IsLiteral.
type Triple struct {
	// Subject is the IRI of the resource this statement describes.
	Subject string `json:"subject"`

	// Predicate is the IRI of the property.
	Predicate string `json:"predicate"`

	// Object is the IRI of the target resource, or the lexical form of
	// a literal when IsLiteral is true.
	Object string `json:"object"`

	// IsLiteral indicates that Object is a literal value rather than an IRI.
	IsLiteral bool `json:"is_literal,omitempty"`

	// Datatype is the literal datatype IRI (e.g. xsd:integer), if any.
	Datatype string `json:"datatype,omitempty"`

	// Lang is the literal language tag (e.g. "en"), if any.
	Lang string `json:"lang,omitempty"`
}

// String renders the triple in an N-Triples-like form for logging.
func (t Triple) String() string {
	obj := "<" + t.Object + ">"
	if t.IsLiteral {
		obj = fmt.Sprintf("%q", t.Object)
		if t.Datatype != "" {
			obj += "^^<" + t.Datatype + ">"
		} else if t.Lang != "" {
			obj += "@" + t.Lang
		}
	}
	return fmt.Sprintf("<%s> <%s> %s .", t.Subject, t.Predicate, obj)
}

// LocalName extracts the local part of an IRI: the fragment after '#',
// or the last path segment when no fragment is present.
func LocalName(iri string) string {
	if i := strings.LastIndex(iri, "#"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	if i := strings.LastIndex(iri, "/"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

// NamespaceOf returns the namespace portion of an IRI: everything up to and
// including the '#' or final '/'. Returns the IRI unchanged when neither
// separator is present.
func NamespaceOf(iri string) string {
	if i := strings.LastIndex(iri, "#"); i >= 0 {
		return iri[:i+1]
	}
	if i := strings.LastIndex(iri, "/"); i >= 0 {
		return iri[:i+1]
	}
	return iri
}

// IsIRI reports whether s looks like an absolute IRI. The check is
// intentionally loose: a scheme followed by a colon.
func IsIRI(s string) bool {
	i := strings.Index(s, ":")
	if i <= 0 {
		return false
	}
	for _, r := range s[:i] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	// Require something after the scheme that distinguishes an IRI from a
	// compact name: "http://..." vs "rdfs:label".
	rest := s[i+1:]
	return strings.HasPrefix(rest, "//") || strings.Contains(rest, "/") || strings.HasPrefix(s, "urn:")
}
