package sparql

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPExecutor_Select(t *testing.T) {
	results := `{
		"head": {"vars": ["endpoint"]},
		"results": {"bindings": [
			{"endpoint": {"type": "uri", "value": "https://dbpedia.org/sparql"}}
		]}
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.Form.Get("query"), "SELECT")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(results))
	}))
	defer server.Close()

	e := NewHTTPExecutor()
	bindings, err := e.Select(context.Background(), server.URL, "SELECT ?endpoint WHERE { ?s ?p ?endpoint }")
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, "https://dbpedia.org/sparql", bindings[0]["endpoint"].Value)
	assert.Equal(t, "uri", bindings[0]["endpoint"].Type)
}

func TestHTTPExecutor_Construct(t *testing.T) {
	turtle := `@prefix ex: <http://example.org/> .
ex:A <http://www.w3.org/2000/01/rdf-schema#subClassOf> ex:C .`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/turtle")
		_, _ = w.Write([]byte(turtle))
	}))
	defer server.Close()

	e := NewHTTPExecutor()
	triples, err := e.Construct(context.Background(), server.URL, "CONSTRUCT { ?a ?p ?c } WHERE { ?a ?p ?c }")
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, "http://example.org/A", triples[0].Subject)
	assert.Equal(t, "http://example.org/C", triples[0].Object)
}

func TestHTTPExecutor_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	e := NewHTTPExecutor(WithTimeout(20 * time.Millisecond))
	_, err := e.Select(context.Background(), server.URL, "SELECT * WHERE { ?s ?p ?o }")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestHTTPExecutor_ResponseTooLarge(t *testing.T) {
	turtle := `@prefix ex: <http://example.org/> .
ex:A <http://www.w3.org/2000/01/rdf-schema#subClassOf> ex:B .
ex:B <http://www.w3.org/2000/01/rdf-schema#subClassOf> ex:C .`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/turtle")
		_, _ = w.Write([]byte(turtle))
	}))
	defer server.Close()

	// A bound below the body size must fail outright, never hand a
	// truncated-but-parseable prefix to the caller.
	e := NewHTTPExecutor(WithMaxResponseBytes(64))
	_, err := e.Construct(context.Background(), server.URL, "CONSTRUCT { ?a ?p ?c } WHERE { ?a ?p ?c }")
	assert.ErrorIs(t, err, ErrResponseTooLarge)

	big := NewHTTPExecutor(WithMaxResponseBytes(int64(len(turtle))))
	triples, err := big.Construct(context.Background(), server.URL, "CONSTRUCT { ?a ?p ?c } WHERE { ?a ?p ?c }")
	require.NoError(t, err)
	assert.Len(t, triples, 2)
}

func TestHTTPExecutor_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "malformed query", http.StatusBadRequest)
	}))
	defer server.Close()

	e := NewHTTPExecutor()
	_, err := e.Select(context.Background(), server.URL, "not sparql")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "status 400")
}

func TestTriplesFromBindings(t *testing.T) {
	bindings := []Binding{
		{
			"s": {Type: "uri", Value: "http://example.org/A"},
			"p": {Type: "uri", Value: "http://example.org/p"},
			"o": {Type: "literal", Value: "42", Datatype: "http://www.w3.org/2001/XMLSchema#integer"},
		},
		{"s": {Type: "uri", Value: "http://example.org/B"}}, // incomplete, dropped
	}

	triples := TriplesFromBindings(bindings)
	require.Len(t, triples, 1)
	assert.True(t, triples[0].IsLiteral)
	assert.Equal(t, "42", triples[0].Object)
}
