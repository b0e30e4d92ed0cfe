// Package normalize converts raw RDF payloads into canonical indexed
// documents: fully expanded triples plus derived class, property, namespace,
// and relationship indices enabling O(1) vocabulary lookup.
package normalize

import (
	"github.com/c360studio/semknow/rdf"
)

// TermKind distinguishes index entries.
type TermKind string

const (
	// KindClass marks an entry in the class index.
	KindClass TermKind = "class"
	// KindProperty marks an entry in the property index.
	KindProperty TermKind = "property"
)

// TermInfo describes one indexed vocabulary term.
type TermInfo struct {
	// IRI is the fully expanded term IRI.
	IRI string `json:"iri"`

	// Types lists the rdf:type IRIs asserted for the term.
	Types []string `json:"types,omitempty"`

	// Label is the first rdfs:label / skos:prefLabel seen, if any.
	Label string `json:"label,omitempty"`

	// Comment is the first rdfs:comment seen, if any.
	Comment string `json:"comment,omitempty"`

	// DomainHint is the best-effort domain classification for the term's
	// namespace. Informational only, never asserted as fact.
	DomainHint string `json:"domain_hint,omitempty"`
}

// DomainRange pairs the rdfs:domain and rdfs:range of a property.
type DomainRange struct {
	Domain string `json:"domain,omitempty"`
	Range  string `json:"range,omitempty"`
}

// Relationships holds the derived relationship index.
type Relationships struct {
	// SubclassOf maps a parent class IRI to its direct children.
	SubclassOf map[string][]string `json:"subclass_of,omitempty"`

	// SubpropertyOf maps a parent property IRI to its direct children.
	SubpropertyOf map[string][]string `json:"subproperty_of,omitempty"`

	// DomainRange maps a property IRI to its declared domain and range.
	DomainRange map[string]DomainRange `json:"domain_range,omitempty"`

	// ConceptSchemes maps a skos:ConceptScheme IRI to its member concepts.
	ConceptSchemes map[string][]string `json:"concept_schemes,omitempty"`

	// Equivalences maps a term IRI to terms declared equivalent to it
	// (owl:sameAs, owl:equivalentClass, owl:equivalentProperty).
	Equivalences map[string][]string `json:"equivalences,omitempty"`

	// Inverses maps a property IRI to its owl:inverseOf counterpart,
	// recorded in both directions.
	Inverses map[string]string `json:"inverses,omitempty"`

	// SeeAlso maps a term IRI to its rdfs:seeAlso references.
	SeeAlso map[string][]string `json:"see_also,omitempty"`
}

// Document is the canonical indexed form of an RDF payload. The triple
// slices are immutable once produced; all indices are derived from
// Expanded and rebuildable, never authoritative.
type Document struct {
	// Source identifies where the payload came from (URL or endpoint name).
	Source string `json:"source"`

	// Raw holds the triples as delivered by the parser or query executor,
	// before name expansion.
	Raw []rdf.Triple `json:"raw_triples"`

	// Expanded holds the fully IRI-expanded triples.
	Expanded []rdf.Triple `json:"expanded_triples"`

	// Classes indexes class terms by local name.
	Classes map[string]TermInfo `json:"class_index"`

	// Properties indexes property terms by local name.
	Properties map[string]TermInfo `json:"property_index"`

	// Namespaces maps prefix to namespace IRI.
	Namespaces map[string]string `json:"namespace_index"`

	// Rels is the derived relationship index.
	Rels Relationships `json:"relationship_index"`

	// Domains is the best-effort domain classification with confidence
	// scores in (0,1]. Informational only.
	Domains map[string]float64 `json:"domains,omitempty"`

	// SizeBytes is the size of the raw payload.
	SizeBytes int `json:"size_bytes"`

	// TripleCount is len(Expanded).
	TripleCount int `json:"triple_count"`

	// SkippedStatements counts malformed fragments dropped during parse
	// or expansion.
	SkippedStatements int `json:"skipped_statements,omitempty"`

	// SafeToLoad is false when the document exceeds the configured
	// size thresholds; the navigator refuses to load it without an
	// explicit override.
	SafeToLoad bool `json:"safe_to_load"`
}

// SubclassesOf returns the direct children of the given class IRI.
func (d *Document) SubclassesOf(classIRI string) []string {
	return d.Rels.SubclassOf[classIRI]
}

// SuperclassesOf returns the direct parents of the given class IRI.
func (d *Document) SuperclassesOf(classIRI string) []string {
	var parents []string
	for parent, children := range d.Rels.SubclassOf {
		for _, child := range children {
			if child == classIRI {
				parents = append(parents, parent)
				break
			}
		}
	}
	return parents
}
