package parser

import (
	"testing"

	"github.com/c360studio/semknow/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTurtle = `
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix ex: <http://example.org/vocab#> .

ex:Person a owl:Class ;
    rdfs:label "Person"@en ;
    rdfs:comment "A human being" .

ex:Student rdfs:subClassOf ex:Person .

ex:age a owl:DatatypeProperty ;
    rdfs:domain ex:Person ;
    rdfs:range <http://www.w3.org/2001/XMLSchema#integer> .

ex:enrolled ex:count 42 .
`

func TestTurtleParser_Parse(t *testing.T) {
	p := NewTurtleParser()

	result, err := p.Parse("test", []byte(sampleTurtle))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Skipped)

	// Prefix declarations are captured.
	assert.Equal(t, "http://example.org/vocab#", result.Prefixes["ex"])

	byPredicate := map[string][]rdf.Triple{}
	for _, tr := range result.Triples {
		byPredicate[tr.Predicate] = append(byPredicate[tr.Predicate], tr)
	}

	// 'a' expands to rdf:type.
	types := byPredicate[rdf.RdfType]
	require.Len(t, types, 2)
	assert.Equal(t, "http://example.org/vocab#Person", types[0].Subject)
	assert.Equal(t, rdf.OwlClass, types[0].Object)

	// Language-tagged literal.
	labels := byPredicate["http://www.w3.org/2000/01/rdf-schema#label"]
	require.Len(t, labels, 1)
	assert.True(t, labels[0].IsLiteral)
	assert.Equal(t, "Person", labels[0].Object)
	assert.Equal(t, "en", labels[0].Lang)

	// subClassOf with prefixed names on both sides.
	subs := byPredicate[rdf.RdfsSubClassOf]
	require.Len(t, subs, 1)
	assert.Equal(t, "http://example.org/vocab#Student", subs[0].Subject)
	assert.Equal(t, "http://example.org/vocab#Person", subs[0].Object)

	// Bare integer literal gets an xsd datatype.
	counts := byPredicate["http://example.org/vocab#count"]
	require.Len(t, counts, 1)
	assert.Equal(t, "42", counts[0].Object)
	assert.Equal(t, rdf.XSDNamespace+"integer", counts[0].Datatype)
}

func TestTurtleParser_SkipsMalformedStatements(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
ex:a ex:p ex:b .
unknownprefix:x ex:p ex:b .
ex:c ex:p ex:d .
`
	p := NewTurtleParser()
	result, err := p.Parse("test", []byte(input))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, result.Triples, 2)
}

func TestTurtleParser_TotalFailure(t *testing.T) {
	p := NewTurtleParser()
	_, err := p.Parse("test", []byte(`this is ; not , turtle at ; all .`))
	require.Error(t, err)
	assert.ErrorIs(t, err, rdf.ErrParse)
}

func TestTurtleParser_BlankNodes(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
ex:a ex:knows [ ex:name "Anon" ] .
_:b1 ex:p ex:c .
`
	p := NewTurtleParser()
	result, err := p.Parse("test", []byte(input))
	require.NoError(t, err)
	require.Len(t, result.Triples, 3)

	// The anonymous node gets a generated label shared by both triples.
	var anonLabel string
	for _, tr := range result.Triples {
		if tr.Predicate == "http://example.org/knows" {
			anonLabel = tr.Object
		}
	}
	require.NotEmpty(t, anonLabel)
	found := false
	for _, tr := range result.Triples {
		if tr.Subject == anonLabel && tr.Object == "Anon" {
			found = true
		}
	}
	assert.True(t, found, "expected property triple for anonymous node")
}

func TestTurtleParser_SparqlStyleDirectives(t *testing.T) {
	input := `
PREFIX ex: <http://example.org/>
ex:a ex:p "v"^^ex:custom .
`
	p := NewTurtleParser()
	result, err := p.Parse("test", []byte(input))
	require.NoError(t, err)
	require.Len(t, result.Triples, 1)
	assert.Equal(t, "http://example.org/custom", result.Triples[0].Datatype)
}

func TestTurtleParser_Deterministic(t *testing.T) {
	p := NewTurtleParser()
	first, err := p.Parse("test", []byte(sampleTurtle))
	require.NoError(t, err)
	second, err := p.Parse("test", []byte(sampleTurtle))
	require.NoError(t, err)
	assert.Equal(t, first.Triples, second.Triples)
}
