package endpoint

import (
	"context"
	"errors"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semknow/cache"
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

// staticDiscoverer returns a fixed descriptor or error.
type staticDiscoverer struct {
	descriptor *Descriptor
	err        error
	calls      int
}

func (d *staticDiscoverer) Discover(_ context.Context, name string) (*Descriptor, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	out := *d.descriptor
	out.Name = name
	return &out, nil
}

func TestRegistry_ResolveBuiltin(t *testing.T) {
	r := NewRegistry(newTestStore(t))

	d, err := r.Resolve(context.Background(), "Wikidata")
	require.NoError(t, err)
	assert.Equal(t, "wikidata", d.Name)
	assert.Equal(t, SourceBuiltin, d.Source)
	assert.Equal(t, "https://query.wikidata.org/sparql", d.BaseURL)

	// Wikidata has no domain/range predicates.
	_, ok := d.Mapping.Predicate(RoleDomain)
	assert.False(t, ok)
	_, ok = d.Mapping.Predicate(RoleSubclass)
	assert.True(t, ok)
}

func TestRegistry_BuiltinAlwaysWins(t *testing.T) {
	store := newTestStore(t)
	r := NewRegistry(store)

	// An override and a cached discovery both claim "wikidata" with a
	// different URL; the builtin entry must still win.
	r.SetOverrides(map[string]Descriptor{
		"wikidata": {Name: "wikidata", BaseURL: "https://imposter.example/sparql"},
	})
	_, err := store.Set(context.Background(), CacheKey("wikidata"),
		Descriptor{Name: "wikidata", BaseURL: "https://other.example/sparql"}, time.Hour)
	require.NoError(t, err)

	d, err := r.Resolve(context.Background(), "wikidata")
	require.NoError(t, err)
	assert.Equal(t, SourceBuiltin, d.Source)
	assert.Equal(t, "https://query.wikidata.org/sparql", d.BaseURL)
}

func TestRegistry_OverridesResolve(t *testing.T) {
	r := NewRegistry(newTestStore(t))
	r.SetOverrides(map[string]Descriptor{
		"corp": {Name: "corp", BaseURL: "https://kb.corp.example/sparql", Mapping: RDFSMapping()},
	})

	d, err := r.Resolve(context.Background(), "corp")
	require.NoError(t, err)
	assert.Equal(t, SourceOverride, d.Source)
	assert.Equal(t, "https://kb.corp.example/sparql", d.BaseURL)
}

func TestRegistry_CachedDiscovery(t *testing.T) {
	store := newTestStore(t)
	r := NewRegistry(store)

	_, err := store.Set(context.Background(), CacheKey("uniprot"),
		Descriptor{Name: "uniprot", BaseURL: "https://sparql.uniprot.org/sparql"}, time.Hour)
	require.NoError(t, err)

	d, err := r.Resolve(context.Background(), "uniprot")
	require.NoError(t, err)
	assert.Equal(t, SourceCached, d.Source)
	assert.Equal(t, "https://sparql.uniprot.org/sparql", d.BaseURL)
}

func TestRegistry_LiveDiscoveryPersists(t *testing.T) {
	store := newTestStore(t)
	disc := &staticDiscoverer{descriptor: &Descriptor{
		BaseURL: "https://sparql.europa.example/sparql",
		Mapping: RDFSMapping(),
	}}
	r := NewRegistry(store, WithDiscoverer(disc))

	d, err := r.Resolve(context.Background(), "eurovoc")
	require.NoError(t, err)
	assert.Equal(t, SourceDiscovered, d.Source)
	assert.Equal(t, 1, disc.calls)

	// Second resolve hits the cache, not the discoverer.
	d2, err := r.Resolve(context.Background(), "eurovoc")
	require.NoError(t, err)
	assert.Equal(t, SourceCached, d2.Source)
	assert.Equal(t, 1, disc.calls)
}

func TestRegistry_NotFound(t *testing.T) {
	r := NewRegistry(newTestStore(t), WithDiscoverer(&staticDiscoverer{
		err: errors.New("no catalog entry"),
	}))

	_, err := r.Resolve(context.Background(), "unknownendpoint")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_EntityURI(t *testing.T) {
	r := NewRegistry(newTestStore(t))
	ctx := context.Background()

	tests := []struct {
		identifier string
		endpoint   string
		expected   string
	}{
		{"Q42", "wikidata", "http://www.wikidata.org/entity/Q42"},
		{"P279", "wikidata", "http://www.wikidata.org/prop/direct/P279"},
		{"Douglas_Adams", "dbpedia", "http://dbpedia.org/resource/Douglas_Adams"},
	}
	for _, tc := range tests {
		got, err := r.EntityURI(ctx, tc.identifier, tc.endpoint)
		require.NoError(t, err, tc.identifier)
		assert.Equal(t, tc.expected, got)
	}

	_, err := r.EntityURI(ctx, "lowercase q42", "wikidata")
	assert.ErrorIs(t, err, ErrNoIdentifierRule)
}

func TestInferEndpoint(t *testing.T) {
	assert.Equal(t, "wikidata", InferEndpoint("Q42"))
	assert.Equal(t, "wikidata", InferEndpoint("P31"))
	assert.Equal(t, "dbpedia", InferEndpoint("Douglas_Adams"))
	assert.Equal(t, "", InferEndpoint("not an identifier"))
}

// countingDiscoveryRecorder tallies discovery outcomes.
type countingDiscoveryRecorder struct {
	outcomes map[string]int
}

func (c *countingDiscoveryRecorder) RecordDiscovery(outcome string) {
	if c.outcomes == nil {
		c.outcomes = make(map[string]int)
	}
	c.outcomes[outcome]++
}

func TestRegistry_DiscoveryRecorder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &countingDiscoveryRecorder{}
	disc := &staticDiscoverer{descriptor: &Descriptor{
		BaseURL: "https://sparql.europa.example/sparql",
		Mapping: RDFSMapping(),
	}}
	r := NewRegistry(store, WithDiscoverer(disc), WithDiscoveryRecorder(rec))

	_, err := r.Resolve(ctx, "eurovoc")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.outcomes["hit"])

	// Cached resolution never reaches the discoverer again.
	_, err = r.Resolve(ctx, "eurovoc")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.outcomes["hit"])

	miss := &countingDiscoveryRecorder{}
	rMiss := NewRegistry(store, WithDiscoverer(&staticDiscoverer{err: ErrNotFound}), WithDiscoveryRecorder(miss))
	_, err = rMiss.Resolve(ctx, "unknown-service")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, miss.outcomes["miss"])

	broken := &countingDiscoveryRecorder{}
	rErr := NewRegistry(store, WithDiscoverer(&staticDiscoverer{err: errors.New("catalog down")}), WithDiscoveryRecorder(broken))
	_, err = rErr.Resolve(ctx, "another-service")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, broken.outcomes["error"])
}

func TestVocabularyCacheName(t *testing.T) {
	// Ingesting under VocabularyCacheName must land on the exact key the
	// reasoner's guardrail reads.
	assert.Equal(t, "rdf:"+VocabularyCacheName("wikidata"), VocabularyKey("wikidata"))
	assert.Equal(t, "rdf:endpoint:wikidata", VocabularyKey("wikidata"))
}
