package reason

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semknow/cache"
	"github.com/c360studio/semknow/endpoint"
	"github.com/c360studio/semknow/normalize"
	"github.com/c360studio/semknow/rdf"
	"github.com/c360studio/semknow/sparql"
)

func newTestStore(t *testing.T) *cache.Store {
	t.Helper()

	opts := &natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		NoLog:     true,
		NoSigs:    true,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}
	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)
	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	store, err := cache.NewStore(context.Background(), js, nil)
	require.NoError(t, err)
	return store
}

// stubExecutor records queries and returns canned triples or an error.
type stubExecutor struct {
	triples []rdf.Triple
	err     error
	queries []string
}

func (e *stubExecutor) Select(context.Context, string, string) ([]sparql.Binding, error) {
	return nil, fmt.Errorf("select not expected")
}

func (e *stubExecutor) Construct(_ context.Context, _ string, query string) ([]rdf.Triple, error) {
	e.queries = append(e.queries, query)
	if e.err != nil {
		return nil, e.err
	}
	return e.triples, nil
}

// noCallExecutor fails the test if any query goes out.
type noCallExecutor struct{ t *testing.T }

func (e *noCallExecutor) Select(context.Context, string, string) ([]sparql.Binding, error) {
	e.t.Fatal("unexpected network query")
	return nil, nil
}

func (e *noCallExecutor) Construct(context.Context, string, string) ([]rdf.Triple, error) {
	e.t.Fatal("unexpected network query")
	return nil, nil
}

func normalizeTurtle(t *testing.T, source, content string) *normalize.Document {
	t.Helper()
	doc, err := normalize.New(normalize.Options{}).Normalize(source, []byte(content), "text/turtle")
	require.NoError(t, err)
	return doc
}

func cacheVocabulary(t *testing.T, store *cache.Store, name, turtle string) {
	t.Helper()
	doc := normalizeTurtle(t, name, turtle)
	_, err := store.Set(context.Background(), endpoint.VocabularyKey(name), doc, 0)
	require.NoError(t, err)
}

func corpRegistry(store *cache.Store) *endpoint.Registry {
	r := endpoint.NewRegistry(store)
	r.SetOverrides(map[string]endpoint.Descriptor{
		"corp": {
			Name:    "corp",
			BaseURL: "https://kb.corp.example/sparql",
			Mapping: endpoint.RDFSMapping(),
		},
	})
	return r
}

func TestApply_DiscoveryRequiredWithoutNetwork(t *testing.T) {
	store := newTestStore(t)
	reasoner := New(store, corpRegistry(store), &noCallExecutor{t: t})

	result := reasoner.Apply(context.Background(), Request{
		TemplateID: "subclass-closure",
		Endpoint:   "corp",
	})

	assert.Equal(t, StateFailed, result.State)
	require.NotNil(t, result.Failure)
	assert.Equal(t, DiscoveryRequired, result.Failure.Code)
	assert.Equal(t, "corp", result.Failure.Term)
}

func TestApply_TemplateIncompatibleForAllFocusAndLimit(t *testing.T) {
	store := newTestStore(t)
	// Wikidata models domains as constraints, not predicates, so
	// domain-entailment can never translate against it.
	cacheVocabulary(t, store, "wikidata", `@prefix ex: <http://example.org/> .
ex:A <http://www.wikidata.org/prop/direct/P279> ex:B .
`)
	reasoner := New(store, endpoint.NewRegistry(store), &noCallExecutor{t: t})

	for _, focus := range []string{"", "http://example.org/A"} {
		for _, limit := range []int{0, 10} {
			result := reasoner.Apply(context.Background(), Request{
				TemplateID: "domain-entailment",
				Endpoint:   "wikidata",
				Focus:      focus,
				Limit:      limit,
			})
			assert.Equal(t, StateFailed, result.State)
			require.NotNil(t, result.Failure)
			assert.Equal(t, TemplateIncompatible, result.Failure.Code)
			assert.Equal(t, endpoint.RoleDomain, result.Failure.Role)
		}
	}
}

func TestApply_UnknownTemplate(t *testing.T) {
	store := newTestStore(t)
	reasoner := New(store, corpRegistry(store), &noCallExecutor{t: t})

	result := reasoner.Apply(context.Background(), Request{
		TemplateID: "modus-ponens",
		Endpoint:   "corp",
	})

	assert.Equal(t, StateFailed, result.State)
	require.NotNil(t, result.Failure)
	assert.Equal(t, TemplateIncompatible, result.Failure.Code)
	assert.Equal(t, "modus-ponens", result.Failure.Term)
}

func TestApply_UnknownEndpoint(t *testing.T) {
	store := newTestStore(t)
	reasoner := New(store, endpoint.NewRegistry(store), &noCallExecutor{t: t})

	result := reasoner.Apply(context.Background(), Request{
		TemplateID: "subclass-closure",
		Endpoint:   "nowhere",
	})

	assert.Equal(t, StateFailed, result.State)
	require.NotNil(t, result.Failure)
	assert.Equal(t, EndpointNotFound, result.Failure.Code)
}

func TestApply_SubclassClosureLocal(t *testing.T) {
	store := newTestStore(t)
	// schemaorg has no query service; templates evaluate against the
	// cached document.
	cacheVocabulary(t, store, "schemaorg", `@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix ex: <http://example.org/> .
ex:A rdfs:subClassOf ex:B .
ex:B rdfs:subClassOf ex:C .
`)
	reasoner := New(store, endpoint.NewRegistry(store), &noCallExecutor{t: t})

	result := reasoner.Apply(context.Background(), Request{
		TemplateID: "subclass-closure",
		Endpoint:   "schemaorg",
	})

	require.Equal(t, StateSucceeded, result.State)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Empty(t, result.Query)
	// Exactly the one non-asserted pair: A is under C through B.
	require.Equal(t, 1, result.Count)
	assert.Equal(t, rdf.Triple{
		Subject:   "http://example.org/A",
		Predicate: rdf.RdfsSubClassOf,
		Object:    "http://example.org/C",
	}, result.Derived[0])
}

func TestApply_SubclassClosureFocusAndLimit(t *testing.T) {
	store := newTestStore(t)
	cacheVocabulary(t, store, "schemaorg", `@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix ex: <http://example.org/> .
ex:A rdfs:subClassOf ex:B .
ex:B rdfs:subClassOf ex:C .
ex:C rdfs:subClassOf ex:D .
`)
	reasoner := New(store, endpoint.NewRegistry(store), &noCallExecutor{t: t})
	ctx := context.Background()

	// Unfocused: A->C, A->D, B->D.
	all := reasoner.Apply(ctx, Request{TemplateID: "subclass-closure", Endpoint: "schemaorg"})
	require.Equal(t, StateSucceeded, all.State)
	assert.Equal(t, 3, all.Count)

	// Focused on A: only A's derived ancestors.
	focused := reasoner.Apply(ctx, Request{
		TemplateID: "subclass-closure",
		Endpoint:   "schemaorg",
		Focus:      "http://example.org/A",
	})
	require.Equal(t, StateSucceeded, focused.State)
	require.Equal(t, 2, focused.Count)
	for _, triple := range focused.Derived {
		assert.Equal(t, "http://example.org/A", triple.Subject)
	}

	limited := reasoner.Apply(ctx, Request{
		TemplateID: "subclass-closure",
		Endpoint:   "schemaorg",
		Limit:      1,
	})
	require.Equal(t, StateSucceeded, limited.State)
	assert.Equal(t, 1, limited.Count)
}

func TestApply_EmptyDerivationIsSuccess(t *testing.T) {
	store := newTestStore(t)
	cacheVocabulary(t, store, "schemaorg", `@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix ex: <http://example.org/> .
ex:A rdfs:subClassOf ex:B .
`)
	reasoner := New(store, endpoint.NewRegistry(store), &noCallExecutor{t: t})

	// A single edge has no transitive part.
	result := reasoner.Apply(context.Background(), Request{
		TemplateID: "subclass-closure",
		Endpoint:   "schemaorg",
	})

	require.Equal(t, StateSucceeded, result.State)
	assert.Nil(t, result.Failure)
	assert.Zero(t, result.Count)
}

func TestApply_SchemaDomainHintLocal(t *testing.T) {
	store := newTestStore(t)
	cacheVocabulary(t, store, "schemaorg", `@prefix schema: <https://schema.org/> .
@prefix ex: <http://example.org/> .
ex:knows schema:domainIncludes ex:Person .
ex:alice ex:knows ex:bob .
`)
	reasoner := New(store, endpoint.NewRegistry(store), &noCallExecutor{t: t})

	result := reasoner.Apply(context.Background(), Request{
		TemplateID: "schema-domain-hint",
		Endpoint:   "schemaorg",
	})

	require.Equal(t, StateSucceeded, result.State)
	assert.Equal(t, 0.6, result.Confidence)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, rdf.Triple{
		Subject:   "http://example.org/alice",
		Predicate: rdf.RdfType,
		Object:    "http://example.org/Person",
	}, result.Derived[0])
}

func TestApply_InversePropertyLocal(t *testing.T) {
	store := newTestStore(t)
	cacheVocabulary(t, store, "schemaorg", `@prefix schema: <https://schema.org/> .
@prefix ex: <http://example.org/> .
ex:parentOf schema:inverseOf ex:childOf .
ex:alice ex:parentOf ex:bob .
`)
	reasoner := New(store, endpoint.NewRegistry(store), &noCallExecutor{t: t})

	result := reasoner.Apply(context.Background(), Request{
		TemplateID: "inverse-property-entailment",
		Endpoint:   "schemaorg",
	})

	require.Equal(t, StateSucceeded, result.State)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, rdf.Triple{
		Subject:   "http://example.org/bob",
		Predicate: "http://example.org/childOf",
		Object:    "http://example.org/alice",
	}, result.Derived[0])
}

func TestApply_RemoteTranslationAndExecution(t *testing.T) {
	store := newTestStore(t)
	cacheVocabulary(t, store, "corp", `@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix ex: <http://example.org/> .
ex:A rdfs:subClassOf ex:B .
`)
	exec := &stubExecutor{triples: []rdf.Triple{
		{Subject: "http://example.org/A", Predicate: rdf.RdfsSubClassOf, Object: "http://example.org/C"},
		{Subject: "http://example.org/A", Predicate: rdf.RdfsSubClassOf, Object: "http://example.org/C"},
	}}
	reasoner := New(store, corpRegistry(store), exec)

	result := reasoner.Apply(context.Background(), Request{
		TemplateID: "subclass-closure",
		Endpoint:   "corp",
		Focus:      "http://example.org/A",
		Limit:      50,
	})

	require.Equal(t, StateSucceeded, result.State)
	// Duplicate answers collapse.
	assert.Equal(t, 1, result.Count)

	require.Len(t, exec.queries, 1)
	query := exec.queries[0]
	assert.Contains(t, query, "<"+rdf.RdfsSubClassOf+">")
	assert.Contains(t, query, "FILTER(?a = <http://example.org/A>)")
	assert.True(t, strings.HasSuffix(query, "LIMIT 50"), query)
	assert.NotContains(t, query, "{")
	assert.Equal(t, query, result.Query)
}

func TestApply_TimeoutSurfaces(t *testing.T) {
	store := newTestStore(t)
	cacheVocabulary(t, store, "corp", `@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix ex: <http://example.org/> .
ex:A rdfs:subClassOf ex:B .
`)
	exec := &stubExecutor{err: fmt.Errorf("%w: kb.corp.example", sparql.ErrTimeout)}
	reasoner := New(store, corpRegistry(store), exec)

	result := reasoner.Apply(context.Background(), Request{
		TemplateID: "subclass-closure",
		Endpoint:   "corp",
	})

	assert.Equal(t, StateFailed, result.State)
	require.NotNil(t, result.Failure)
	assert.Equal(t, Timeout, result.Failure.Code)
}

func TestApply_PersistDerivation(t *testing.T) {
	store := newTestStore(t)
	cacheVocabulary(t, store, "schemaorg", `@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix ex: <http://example.org/> .
ex:A rdfs:subClassOf ex:B .
ex:B rdfs:subClassOf ex:C .
`)
	reasoner := New(store, endpoint.NewRegistry(store), &noCallExecutor{t: t})
	ctx := context.Background()

	result := reasoner.Apply(ctx, Request{
		TemplateID: "subclass-closure",
		Endpoint:   "schemaorg",
		Persist:    true,
		TTL:        time.Hour,
	})

	require.Equal(t, StateSucceeded, result.State)
	require.True(t, strings.HasPrefix(result.CacheKey, "rdf:derived:schemaorg:subclass-closure:"), result.CacheKey)

	entry, err := store.GetWithMetadata(ctx, result.CacheKey)
	require.NoError(t, err)
	assert.Equal(t, cache.TypeVocabulary, entry.Metadata.SemanticType)
	assert.Equal(t, []string{endpoint.VocabularyKey("schemaorg")}, entry.Metadata.DependsOn)
	assert.Equal(t, map[string]float64{"subclass-closure": 1.0}, entry.Metadata.Confidence)
}

func TestTemplates_LibraryShape(t *testing.T) {
	ids := make(map[string]bool)
	for _, tmpl := range Templates() {
		assert.False(t, ids[tmpl.ID], "duplicate template %s", tmpl.ID)
		ids[tmpl.ID] = true
		assert.NotEmpty(t, tmpl.Roles, tmpl.ID)
		assert.NotEmpty(t, tmpl.FocusVar, tmpl.ID)
		assert.Greater(t, tmpl.Confidence, 0.0, tmpl.ID)
		// Every declared role appears as a placeholder in the skeleton.
		for _, role := range tmpl.Roles {
			assert.Contains(t, tmpl.Construct, "{"+string(role)+"}", tmpl.ID)
		}
	}
	assert.True(t, ids["subclass-closure"])
	assert.True(t, ids["schema-domain-hint"])
}
