package normalize

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/c360studio/semknow/rdf"
	"github.com/c360studio/semknow/rdf/parser"
	"github.com/c360studio/semstreams/vocabulary"
)

// Default safe-to-load thresholds. Documents above either limit set
// SafeToLoad=false and require an explicit override to load in full.
const (
	DefaultMaxTriples = 5000
	DefaultMaxBytes   = 512 * 1024
)

// Options configures a Normalizer.
type Options struct {
	// MaxTriples is the safe-to-load triple threshold. Zero means default.
	MaxTriples int

	// MaxBytes is the safe-to-load payload size threshold. Zero means default.
	MaxBytes int

	// Logger receives debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// Normalizer converts raw payloads or expanded triple sets into canonical
// indexed documents. Normalization is deterministic: identical input yields
// identical indices.
type Normalizer struct {
	parsers    *parser.Registry
	maxTriples int
	maxBytes   int
	logger     *slog.Logger
}

// New creates a Normalizer with the default parser registry.
func New(opts Options) *Normalizer {
	if opts.MaxTriples == 0 {
		opts.MaxTriples = DefaultMaxTriples
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Normalizer{
		parsers:    parser.NewRegistry(),
		maxTriples: opts.MaxTriples,
		maxBytes:   opts.MaxBytes,
		logger:     opts.Logger,
	}
}

// Normalize parses a raw payload and builds the canonical document.
// Unsupported content types yield rdf.ErrUnsupportedFormat; payloads with
// no parseable statements yield rdf.ErrParse.
func (n *Normalizer) Normalize(source string, content []byte, contentType string) (*Document, error) {
	parsed, err := n.parsers.Parse(source, content, contentType)
	if err != nil {
		return nil, err
	}

	doc := n.build(source, parsed.Triples, parsed.Prefixes, parsed.Skipped)
	doc.SizeBytes = len(content)
	doc.SafeToLoad = doc.TripleCount <= n.maxTriples && doc.SizeBytes <= n.maxBytes

	n.logger.Debug("normalized payload",
		"source", source,
		"content_type", contentType,
		"triples", doc.TripleCount,
		"skipped", doc.SkippedStatements,
		"safe_to_load", doc.SafeToLoad)

	return doc, nil
}

// NormalizeTriples builds the canonical document from an already-parsed
// triple set, e.g. a query result. The prefix context is used to expand any
// compact names remaining in the input; nil means the well-known defaults.
func (n *Normalizer) NormalizeTriples(source string, triples []rdf.Triple, prefixes rdf.PrefixMap) (*Document, error) {
	if prefixes == nil {
		prefixes = rdf.WellKnownPrefixes()
	}
	doc := n.build(source, triples, prefixes, 0)
	doc.SizeBytes = approximateSize(doc.Expanded)
	doc.SafeToLoad = doc.TripleCount <= n.maxTriples && doc.SizeBytes <= n.maxBytes
	return doc, nil
}

// build expands the triples and derives all four indices in a single pass.
func (n *Normalizer) build(source string, raw []rdf.Triple, prefixes rdf.PrefixMap, skipped int) *Document {
	doc := &Document{
		Source:            source,
		Raw:               raw,
		Namespaces:        map[string]string(prefixes.Clone()),
		SkippedStatements: skipped,
		Rels: Relationships{
			SubclassOf:     make(map[string][]string),
			SubpropertyOf:  make(map[string][]string),
			DomainRange:    make(map[string]DomainRange),
			ConceptSchemes: make(map[string][]string),
			Equivalences:   make(map[string][]string),
			Inverses:       make(map[string]string),
			SeeAlso:        make(map[string][]string),
		},
	}

	expanded := make([]rdf.Triple, 0, len(raw))
	for _, t := range raw {
		et, ok := expandTriple(t, prefixes)
		if !ok {
			doc.SkippedStatements++
			continue
		}
		expanded = append(expanded, et)
	}
	doc.Expanded = expanded
	doc.TripleCount = len(expanded)

	classIRIs := make(map[string]*TermInfo)
	propertyIRIs := make(map[string]*TermInfo)

	class := func(iri string) *TermInfo {
		if isBlankLabel(iri) {
			return nil
		}
		info, ok := classIRIs[iri]
		if !ok {
			info = &TermInfo{IRI: iri}
			classIRIs[iri] = info
		}
		return info
	}
	property := func(iri string) *TermInfo {
		if isBlankLabel(iri) {
			return nil
		}
		info, ok := propertyIRIs[iri]
		if !ok {
			info = &TermInfo{IRI: iri}
			propertyIRIs[iri] = info
		}
		return info
	}

	labels := make(map[string]string)
	comments := make(map[string]string)

	// Single pass: every derived index is populated together.
	for _, t := range expanded {
		switch t.Predicate {
		case rdf.RdfType:
			switch t.Object {
			case rdf.RdfsClass, rdf.OwlClass, rdf.SkosConcept:
				if info := class(t.Subject); info != nil {
					info.Types = appendUnique(info.Types, t.Object)
				}
			case rdf.RdfProperty, rdf.OwlObjectProperty, rdf.OwlDatatypeProperty, rdf.OwlAnnotationProperty:
				if info := property(t.Subject); info != nil {
					info.Types = appendUnique(info.Types, t.Object)
				}
			case rdf.SkosConceptScheme:
				if _, ok := doc.Rels.ConceptSchemes[t.Subject]; !ok {
					doc.Rels.ConceptSchemes[t.Subject] = nil
				}
			}

		case rdf.RdfsSubClassOf:
			// Appearing in a subclass relation classifies both ends.
			class(t.Subject)
			class(t.Object)
			doc.Rels.SubclassOf[t.Object] = appendUnique(doc.Rels.SubclassOf[t.Object], t.Subject)

		case rdf.RdfsSubPropertyOf:
			property(t.Subject)
			property(t.Object)
			doc.Rels.SubpropertyOf[t.Object] = appendUnique(doc.Rels.SubpropertyOf[t.Object], t.Subject)

		case rdf.RdfsDomain:
			property(t.Subject)
			class(t.Object)
			dr := doc.Rels.DomainRange[t.Subject]
			dr.Domain = t.Object
			doc.Rels.DomainRange[t.Subject] = dr

		case rdf.RdfsRange:
			property(t.Subject)
			if !isDatatypeIRI(t.Object) {
				class(t.Object)
			}
			dr := doc.Rels.DomainRange[t.Subject]
			dr.Range = t.Object
			doc.Rels.DomainRange[t.Subject] = dr

		case rdf.OwlInverseOf:
			property(t.Subject)
			property(t.Object)
			doc.Rels.Inverses[t.Subject] = t.Object
			doc.Rels.Inverses[t.Object] = t.Subject

		case rdf.SkosInScheme:
			doc.Rels.ConceptSchemes[t.Object] = appendUnique(doc.Rels.ConceptSchemes[t.Object], t.Subject)

		case vocabulary.OwlSameAs, vocabulary.OwlEquivalentClass, vocabulary.OwlEquivalentProperty:
			doc.Rels.Equivalences[t.Subject] = appendUnique(doc.Rels.Equivalences[t.Subject], t.Object)

		case vocabulary.RdfsSeeAlso:
			doc.Rels.SeeAlso[t.Subject] = appendUnique(doc.Rels.SeeAlso[t.Subject], t.Object)

		case vocabulary.RdfsLabel, vocabulary.SkosPrefLabel:
			if t.IsLiteral {
				if _, ok := labels[t.Subject]; !ok {
					labels[t.Subject] = t.Object
				}
			}

		case vocabulary.RdfsComment:
			if t.IsLiteral {
				if _, ok := comments[t.Subject]; !ok {
					comments[t.Subject] = t.Object
				}
			}
		}
	}

	// Attach labels, comments, and domain hints, then key by local name.
	doc.Classes = finishIndex(classIRIs, labels, comments)
	doc.Properties = finishIndex(propertyIRIs, labels, comments)
	doc.Domains = classifyDomains(doc)
	applyDomainHints(doc)

	return doc
}

// expandTriple expands compact names in all three term positions. Literals
// pass through; an unresolvable subject or predicate drops the triple.
func expandTriple(t rdf.Triple, prefixes rdf.PrefixMap) (rdf.Triple, bool) {
	if t.Subject == "" || t.Predicate == "" {
		return rdf.Triple{}, false
	}
	if !isBlankLabel(t.Subject) {
		s, ok := prefixes.Expand(t.Subject)
		if !ok && !rdf.IsIRI(s) {
			return rdf.Triple{}, false
		}
		t.Subject = s
	}
	p, ok := prefixes.Expand(t.Predicate)
	if !ok && !rdf.IsIRI(p) {
		return rdf.Triple{}, false
	}
	t.Predicate = p
	if !t.IsLiteral && !isBlankLabel(t.Object) {
		// Unresolvable objects stay as-is; they may be plain strings
		// from lenient producers.
		o, _ := prefixes.Expand(t.Object)
		t.Object = o
	}
	return t, true
}

// finishIndex converts the IRI-keyed working map into the local-name-keyed
// index, sorting types for determinism. On local-name collisions the
// lexically smaller IRI wins, also for determinism.
func finishIndex(terms map[string]*TermInfo, labels, comments map[string]string) map[string]TermInfo {
	out := make(map[string]TermInfo, len(terms))
	for iri, info := range terms {
		info.Label = labels[iri]
		info.Comment = comments[iri]
		sort.Strings(info.Types)

		local := rdf.LocalName(iri)
		if existing, ok := out[local]; ok && existing.IRI <= iri {
			continue
		}
		out[local] = *info
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func isBlankLabel(s string) bool {
	return len(s) > 2 && s[0] == '_' && s[1] == ':'
}

// isDatatypeIRI reports whether an rdfs:range target is a literal datatype
// rather than a class.
func isDatatypeIRI(iri string) bool {
	return len(iri) > len(rdf.XSDNamespace) && iri[:len(rdf.XSDNamespace)] == rdf.XSDNamespace
}

func approximateSize(triples []rdf.Triple) int {
	size := 0
	for _, t := range triples {
		size += len(t.Subject) + len(t.Predicate) + len(t.Object) + len(t.Datatype) + 8
	}
	return size
}

// Validate checks the document's core invariant: every IRI referenced by an
// index appears in the expanded triples. Used by tests and by callers that
// rebuild indices from persisted documents.
func Validate(doc *Document) error {
	seen := make(map[string]bool, len(doc.Expanded)*2)
	for _, t := range doc.Expanded {
		seen[t.Subject] = true
		if !t.IsLiteral {
			seen[t.Object] = true
		}
	}
	for local, info := range doc.Classes {
		if !seen[info.IRI] {
			return fmt.Errorf("class index entry %q references IRI absent from triples: %s", local, info.IRI)
		}
	}
	for local, info := range doc.Properties {
		if !seen[info.IRI] {
			return fmt.Errorf("property index entry %q references IRI absent from triples: %s", local, info.IRI)
		}
	}
	return nil
}
