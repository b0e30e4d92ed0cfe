package endpoint

import (
	"regexp"

	"github.com/c360studio/semknow/rdf"
)

// Wikidata property IRIs used in its vocabulary mapping. Wikidata models
// hierarchy with its own properties rather than RDFS; domain and range have
// no direct counterpart and stay unmapped.
const (
	wikidataSubclassOf    = "http://www.wikidata.org/prop/direct/P279"
	wikidataSubpropertyOf = "http://www.wikidata.org/prop/direct/P1647"
	wikidataInverseOf     = "http://www.wikidata.org/prop/direct/P1696"
	wikidataInstanceOf    = "http://www.wikidata.org/prop/direct/P31"
)

var (
	wikidataEntityPattern   = regexp.MustCompile(`^Q\d+$`)
	wikidataPropertyPattern = regexp.MustCompile(`^P\d+$`)
	wikidataLexemePattern   = regexp.MustCompile(`^L\d+$`)
	dbpediaResourcePattern  = regexp.MustCompile(`^[A-Z][A-Za-z0-9_()]*$`)
)

// builtins returns the compiled-in endpoint table. Builtin entries take
// precedence over every other source, even when a discovered entry carries
// richer data.
func builtins() map[string]Descriptor {
	return map[string]Descriptor{
		"wikidata": {
			Name:    "wikidata",
			BaseURL: "https://query.wikidata.org/sparql",
			Prefixes: rdf.PrefixMap{
				"wd":   "http://www.wikidata.org/entity/",
				"wdt":  "http://www.wikidata.org/prop/direct/",
				"p":    "http://www.wikidata.org/prop/",
				"ps":   "http://www.wikidata.org/prop/statement/",
				"rdfs": rdf.RDFSNamespace,
			},
			Hints: []string{
				"use wdt:P279 for subclass-of, wdt:P31 for instance-of",
				"label lookups need the rdfs:label service or a language filter",
			},
			Source: SourceBuiltin,
			Mapping: Mapping{
				RoleSubclass:    wikidataSubclassOf,
				RoleSubproperty: wikidataSubpropertyOf,
				RoleInverse:     wikidataInverseOf,
				RoleType:        wikidataInstanceOf,
				// RoleDomain / RoleRange intentionally unmapped: Wikidata
				// expresses them as property constraints, not predicates.
			},
			IdentifierRules: []IdentifierRule{
				{Pattern: wikidataEntityPattern, Template: "http://www.wikidata.org/entity/{id}"},
				{Pattern: wikidataPropertyPattern, Template: "http://www.wikidata.org/prop/direct/{id}"},
				{Pattern: wikidataLexemePattern, Template: "http://www.wikidata.org/entity/{id}"},
			},
		},

		"dbpedia": {
			Name:    "dbpedia",
			BaseURL: "https://dbpedia.org/sparql",
			Prefixes: rdf.PrefixMap{
				"dbo":  "http://dbpedia.org/ontology/",
				"dbr":  "http://dbpedia.org/resource/",
				"dbp":  "http://dbpedia.org/property/",
				"rdfs": rdf.RDFSNamespace,
				"owl":  rdf.OWLNamespace,
			},
			Hints: []string{
				"ontology terms live under dbo:, raw infobox data under dbp:",
			},
			Source:  SourceBuiltin,
			Mapping: RDFSMapping(),
			IdentifierRules: []IdentifierRule{
				{Pattern: dbpediaResourcePattern, Template: "http://dbpedia.org/resource/{id}"},
			},
		},

		"schemaorg": {
			Name:    "schemaorg",
			BaseURL: "https://schema.org/version/latest/schemaorg-current-https.ttl",
			Prefixes: rdf.PrefixMap{
				"schema": rdf.SchemaNamespace,
				"rdfs":   rdf.RDFSNamespace,
			},
			Hints: []string{
				"no live query service: ingest the vocabulary and reason locally",
				"domain and range use schema:domainIncludes / schema:rangeIncludes",
			},
			Source: SourceBuiltin,
			Mapping: Mapping{
				RoleSubclass:    rdf.RdfsSubClassOf,
				RoleSubproperty: rdf.RdfsSubPropertyOf,
				RoleDomain:      rdf.SchemaNamespace + "domainIncludes",
				RoleRange:       rdf.SchemaNamespace + "rangeIncludes",
				RoleInverse:     rdf.SchemaNamespace + "inverseOf",
				RoleType:        rdf.RdfType,
				RoleSchemaHint:  rdf.SchemaNamespace + "domainIncludes",
			},
			IdentifierRules: []IdentifierRule{
				{Pattern: dbpediaResourcePattern, Template: "https://schema.org/{id}"},
			},
			LocalOnly: true,
		},
	}
}

// inferenceRules is the fixed-priority table used by InferEndpoint: the
// first matching shape wins.
var inferenceRules = []struct {
	pattern  *regexp.Regexp
	endpoint string
}{
	{wikidataEntityPattern, "wikidata"},
	{wikidataPropertyPattern, "wikidata"},
	{wikidataLexemePattern, "wikidata"},
	{dbpediaResourcePattern, "dbpedia"},
}
