package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/c360studio/semknow/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vocabTurtle = `
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix ex: <http://example.org/vocab#> .

ex:Person a owl:Class ;
    rdfs:label "Person" ;
    rdfs:comment "A human being" .

ex:Student rdfs:subClassOf ex:Person .
ex:GradStudent rdfs:subClassOf ex:Student .

ex:name a owl:DatatypeProperty ;
    rdfs:domain ex:Person ;
    rdfs:range <http://www.w3.org/2001/XMLSchema#string> .

ex:advises a owl:ObjectProperty ;
    rdfs:domain ex:Person ;
    rdfs:range ex:Student ;
    owl:inverseOf ex:advisedBy .

ex:Person owl:equivalentClass <https://schema.org/Person> .
ex:Person rdfs:seeAlso <http://example.org/docs/person> .
`

func TestNormalizer_BuildsIndices(t *testing.T) {
	n := New(Options{})

	doc, err := n.Normalize("http://example.org/vocab", []byte(vocabTurtle), "text/turtle")
	require.NoError(t, err)
	require.NoError(t, Validate(doc))

	t.Run("class index", func(t *testing.T) {
		// Typed class plus both ends of subclass relations.
		assert.Contains(t, doc.Classes, "Person")
		assert.Contains(t, doc.Classes, "Student")
		assert.Contains(t, doc.Classes, "GradStudent")

		person := doc.Classes["Person"]
		assert.Equal(t, "http://example.org/vocab#Person", person.IRI)
		assert.Contains(t, person.Types, rdf.OwlClass)
		assert.Equal(t, "Person", person.Label)
		assert.Equal(t, "A human being", person.Comment)
	})

	t.Run("property index", func(t *testing.T) {
		assert.Contains(t, doc.Properties, "name")
		assert.Contains(t, doc.Properties, "advises")
		// advisedBy is classified via the inverseOf relation.
		assert.Contains(t, doc.Properties, "advisedBy")
	})

	t.Run("relationship index", func(t *testing.T) {
		assert.Equal(t, []string{"http://example.org/vocab#Student"},
			doc.Rels.SubclassOf["http://example.org/vocab#Person"])

		dr := doc.Rels.DomainRange["http://example.org/vocab#advises"]
		assert.Equal(t, "http://example.org/vocab#Person", dr.Domain)
		assert.Equal(t, "http://example.org/vocab#Student", dr.Range)

		assert.Equal(t, "http://example.org/vocab#advisedBy",
			doc.Rels.Inverses["http://example.org/vocab#advises"])
		assert.Equal(t, "http://example.org/vocab#advises",
			doc.Rels.Inverses["http://example.org/vocab#advisedBy"])

		assert.Equal(t, []string{"https://schema.org/Person"},
			doc.Rels.Equivalences["http://example.org/vocab#Person"])
		assert.Equal(t, []string{"http://example.org/docs/person"},
			doc.Rels.SeeAlso["http://example.org/vocab#Person"])
	})

	t.Run("namespace index", func(t *testing.T) {
		assert.Equal(t, "http://example.org/vocab#", doc.Namespaces["ex"])
	})

	t.Run("counters", func(t *testing.T) {
		assert.Equal(t, len(doc.Expanded), doc.TripleCount)
		assert.Equal(t, len(vocabTurtle), doc.SizeBytes)
		assert.True(t, doc.SafeToLoad)
	})
}

func TestNormalizer_Deterministic(t *testing.T) {
	n := New(Options{})

	first, err := n.Normalize("src", []byte(vocabTurtle), "text/turtle")
	require.NoError(t, err)
	second, err := n.Normalize("src", []byte(vocabTurtle), "text/turtle")
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b), "identical input must yield byte-identical documents")
}

func TestNormalizer_TenClassesTwentyProperties(t *testing.T) {
	var b strings.Builder
	b.WriteString("@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .\n")
	b.WriteString("@prefix owl: <http://www.w3.org/2002/07/owl#> .\n")
	b.WriteString("@prefix ex: <http://example.org/v#> .\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "ex:Class%d a owl:Class .\n", i)
	}
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "ex:prop%d a owl:ObjectProperty .\n", i)
	}

	n := New(Options{})
	doc, err := n.Normalize("src", []byte(b.String()), "text/turtle")
	require.NoError(t, err)

	assert.Len(t, doc.Classes, 10)
	assert.Len(t, doc.Properties, 20)
	for _, info := range doc.Classes {
		assert.NotEmpty(t, info.IRI)
	}
}

func TestNormalizer_SafeToLoadThreshold(t *testing.T) {
	n := New(Options{MaxTriples: 2})

	doc, err := n.Normalize("src", []byte(vocabTurtle), "text/turtle")
	require.NoError(t, err)
	assert.False(t, doc.SafeToLoad)
}

func TestNormalizer_UnsupportedFormat(t *testing.T) {
	n := New(Options{})
	_, err := n.Normalize("src", []byte("<rdf/>"), "application/rdf+xml")
	assert.ErrorIs(t, err, rdf.ErrUnsupportedFormat)
}

func TestNormalizer_NormalizeTriples(t *testing.T) {
	n := New(Options{})

	triples := []rdf.Triple{
		{Subject: "ex:A", Predicate: "rdfs:subClassOf", Object: "ex:B"},
		{Subject: "badprefix:X", Predicate: "rdfs:subClassOf", Object: "ex:B"},
	}
	prefixes := rdf.WellKnownPrefixes()
	prefixes["ex"] = "http://example.org/"

	doc, err := n.NormalizeTriples("query-result", triples, prefixes)
	require.NoError(t, err)

	// One triple expanded, one dropped and counted.
	assert.Equal(t, 1, doc.TripleCount)
	assert.Equal(t, 1, doc.SkippedStatements)
	assert.Equal(t, []string{"http://example.org/A"},
		doc.Rels.SubclassOf["http://example.org/B"])
}

func TestNormalizer_DomainClassification(t *testing.T) {
	input := `
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
<http://www.wikidata.org/entity/Q5> rdfs:subClassOf <http://www.wikidata.org/entity/Q215627> .
`
	n := New(Options{})
	doc, err := n.Normalize("src", []byte(input), "text/turtle")
	require.NoError(t, err)

	score, ok := doc.Domains["general-knowledge"]
	require.True(t, ok)
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}
