// Package endpoint resolves endpoint names to query URLs, prefix
// conventions, and vocabulary mappings through a builtin / override /
// cached-discovery / live-discovery precedence chain.
package endpoint

import (
	"regexp"

	"github.com/c360studio/semknow/rdf"
)

// Source records where a descriptor came from. Builtin entries always win
// over discovered ones, even when they conflict.
type Source string

const (
	// SourceBuiltin marks entries from the compiled-in table.
	SourceBuiltin Source = "builtin"
	// SourceOverride marks entries from the user overrides file.
	SourceOverride Source = "override"
	// SourceCached marks entries restored from the discovery cache.
	SourceCached Source = "cached"
	// SourceDiscovered marks entries found by live discovery this session.
	SourceDiscovered Source = "discovered"
)

// Role is an abstract vocabulary role used by inference templates. Each
// endpoint maps roles to its concrete predicates; an unmapped role means
// the endpoint cannot express that relation.
type Role string

const (
	// RoleSubclass is the endpoint's subclass-of predicate.
	RoleSubclass Role = "subclassRelation"
	// RoleSubproperty is the endpoint's subproperty-of predicate.
	RoleSubproperty Role = "subpropertyRelation"
	// RoleDomain is the endpoint's property-domain predicate.
	RoleDomain Role = "domainRelation"
	// RoleRange is the endpoint's property-range predicate.
	RoleRange Role = "rangeRelation"
	// RoleInverse is the endpoint's inverse-property predicate.
	RoleInverse Role = "inverseRelation"
	// RoleType is the endpoint's instance-of predicate.
	RoleType Role = "typeRelation"
	// RoleSchemaHint is the endpoint's soft domain-hint predicate, e.g.
	// schema:domainIncludes. Unlike RoleDomain it is advisory, not asserted.
	RoleSchemaHint Role = "schemaHintRelation"
)

// Mapping translates abstract roles to concrete predicate IRIs.
type Mapping map[Role]string

// Predicate returns the concrete predicate for a role, with ok=false when
// the endpoint does not support the role.
func (m Mapping) Predicate(role Role) (string, bool) {
	p, ok := m[role]
	if !ok || p == "" {
		return "", false
	}
	return p, true
}

// RDFSMapping is the mapping for plain RDFS/OWL vocabularies.
func RDFSMapping() Mapping {
	return Mapping{
		RoleSubclass:    rdf.RdfsSubClassOf,
		RoleSubproperty: rdf.RdfsSubPropertyOf,
		RoleDomain:      rdf.RdfsDomain,
		RoleRange:       rdf.RdfsRange,
		RoleInverse:     rdf.OwlInverseOf,
		RoleType:        rdf.RdfType,
	}
}

// IdentifierRule maps an identifier shape to an entity namespace template.
type IdentifierRule struct {
	// Pattern matches the identifier shape, e.g. ^Q\d+$.
	Pattern *regexp.Regexp

	// Template is the namespace template; the identifier replaces "{id}".
	Template string
}

// Descriptor describes one resolvable endpoint.
type Descriptor struct {
	// Name is the short endpoint name, lowercase.
	Name string `json:"name"`

	// BaseURL is the endpoint's query URL.
	BaseURL string `json:"base_url"`

	// Prefixes holds the endpoint's prefix conventions.
	Prefixes rdf.PrefixMap `json:"prefixes,omitempty"`

	// Hints are free-form usage notes shown to callers.
	Hints []string `json:"hints,omitempty"`

	// Source records which table resolved this descriptor.
	Source Source `json:"source"`

	// Mapping translates abstract template roles to concrete predicates.
	Mapping Mapping `json:"mapping,omitempty"`

	// IdentifierRules maps identifier shapes to entity namespaces.
	// Not serialized; rules are attached from the builtin table.
	IdentifierRules []IdentifierRule `json:"-"`

	// LocalOnly marks endpoints with no live query service: templates
	// evaluate against the cached document instead.
	LocalOnly bool `json:"local_only,omitempty"`
}

// CacheKey returns the discovery-cache key for an endpoint name.
func CacheKey(name string) string {
	return "discovery:endpoint:" + name
}

// VocabularyCacheName returns the ingest cache name that stores a document
// where VocabularyKey finds it. Ingesting under any other name leaves the
// reasoner reporting DiscoveryRequired for the endpoint.
func VocabularyCacheName(name string) string {
	return "endpoint:" + name
}

// VocabularyKey returns the cache key convention for an endpoint's cached
// vocabulary document. The reasoner's discovery guardrail checks this key.
func VocabularyKey(name string) string {
	return "rdf:" + VocabularyCacheName(name)
}
