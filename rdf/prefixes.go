package rdf

import "strings"

// PrefixMap maps namespace prefixes to their base IRIs.
type PrefixMap map[string]string

// WellKnownPrefixes returns the standard namespace prefixes used as the
// default expansion context when a payload declares none of its own.
func WellKnownPrefixes() PrefixMap {
	return PrefixMap{
		"rdf":    RDFNamespace,
		"rdfs":   RDFSNamespace,
		"owl":    OWLNamespace,
		"xsd":    XSDNamespace,
		"skos":   SKOSNamespace,
		"dc":     DCTNamespace,
		"schema": SchemaNamespace,
		"foaf":   "http://xmlns.com/foaf/0.1/",
		"prov":   "http://www.w3.org/ns/prov#",
	}
}

// Clone returns a copy of the prefix map.
func (p PrefixMap) Clone() PrefixMap {
	out := make(PrefixMap, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge overlays other onto p, with other taking precedence.
func (p PrefixMap) Merge(other PrefixMap) {
	for k, v := range other {
		p[k] = v
	}
}

// Expand resolves a compact name (CURIE) such as "rdfs:label" against the
// prefix map. Absolute IRIs pass through unchanged. Names whose prefix is
// unknown are returned unchanged with ok=false so callers can count them
// as unresolved rather than failing the whole document.
func (p PrefixMap) Expand(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if IsIRI(name) {
		return name, true
	}
	i := strings.Index(name, ":")
	if i < 0 {
		return name, false
	}
	prefix, local := name[:i], name[i+1:]
	base, ok := p[prefix]
	if !ok {
		return name, false
	}
	return base + local, true
}

// Compact reverses Expand: given a full IRI it returns the shortest
// prefixed form available, or the IRI unchanged when no prefix matches.
func (p PrefixMap) Compact(iri string) string {
	best := ""
	bestPrefix := ""
	for prefix, base := range p {
		if strings.HasPrefix(iri, base) && len(base) > len(best) {
			best = base
			bestPrefix = prefix
		}
	}
	if best == "" {
		return iri
	}
	return bestPrefix + ":" + strings.TrimPrefix(iri, best)
}
