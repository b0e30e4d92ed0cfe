// Package navigator provides in-memory browsing of cached canonical
// documents: term search, one-hop hierarchy lookup, and domain/range
// queries. It only ever reads the cache store and never reaches the
// network; transitive closure belongs to the reasoner.
package navigator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/c360studio/semknow/cache"
	"github.com/c360studio/semknow/normalize"
)

// snippetLimit caps the context snippet attached to a search hit.
const snippetLimit = 160

// Hit is one search result.
type Hit struct {
	Kind      normalize.TermKind `json:"kind"`
	LocalName string             `json:"local_name"`
	IRI       string             `json:"iri"`
	SourceKey string             `json:"source_key"`
	Snippet   string             `json:"snippet,omitempty"`
}

// Navigator browses cached documents. Decoded documents are memoized per
// cache key and invalidated when the underlying entry is rewritten, so
// repeated lookups see a consistent snapshot without re-decoding.
type Navigator struct {
	store  *cache.Store
	logger *slog.Logger

	mu   sync.RWMutex
	docs map[string]memoizedDoc
}

type memoizedDoc struct {
	doc      *normalize.Document
	cachedAt time.Time
}

// New creates a Navigator over the given store.
func New(store *cache.Store, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{
		store:  store,
		logger: logger,
		docs:   make(map[string]memoizedDoc),
	}
}

// Search matches query case-insensitively against the local names and
// labels of indexed terms across all cached documents. kind narrows the
// match to classes or properties; empty means both. Results are sorted by
// source key, kind, then local name.
func (n *Navigator) Search(ctx context.Context, query string, kind normalize.TermKind) ([]Hit, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	keys, err := n.store.ListKeys(ctx, cache.NamespaceRDF+"*")
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for _, key := range keys {
		doc, err := n.document(ctx, key)
		if err != nil {
			// Entries under rdf: that are not canonical documents (or
			// expired mid-scan) are skipped, not fatal.
			n.logger.Debug("skipping cache entry during search", "key", key, "error", err)
			continue
		}
		if kind == "" || kind == normalize.KindClass {
			hits = append(hits, matchIndex(doc.Classes, normalize.KindClass, key, needle)...)
		}
		if kind == "" || kind == normalize.KindProperty {
			hits = append(hits, matchIndex(doc.Properties, normalize.KindProperty, key, needle)...)
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].SourceKey != hits[j].SourceKey {
			return hits[i].SourceKey < hits[j].SourceKey
		}
		if hits[i].Kind != hits[j].Kind {
			return hits[i].Kind < hits[j].Kind
		}
		return hits[i].LocalName < hits[j].LocalName
	})
	return hits, nil
}

// SubclassesOf returns the direct subclasses of classIRI in the document
// cached under key. One hop only.
func (n *Navigator) SubclassesOf(ctx context.Context, key, classIRI string) ([]string, error) {
	doc, err := n.document(ctx, key)
	if err != nil {
		return nil, err
	}
	return sortedCopy(doc.SubclassesOf(classIRI)), nil
}

// SuperclassesOf returns the direct superclasses of classIRI in the
// document cached under key. One hop only.
func (n *Navigator) SuperclassesOf(ctx context.Context, key, classIRI string) ([]string, error) {
	doc, err := n.document(ctx, key)
	if err != nil {
		return nil, err
	}
	return sortedCopy(doc.SuperclassesOf(classIRI)), nil
}

// PropertiesWithDomain returns the properties whose declared rdfs:domain
// is classIRI.
func (n *Navigator) PropertiesWithDomain(ctx context.Context, key, classIRI string) ([]string, error) {
	doc, err := n.document(ctx, key)
	if err != nil {
		return nil, err
	}
	var props []string
	for prop, dr := range doc.Rels.DomainRange {
		if dr.Domain == classIRI {
			props = append(props, prop)
		}
	}
	sort.Strings(props)
	return props, nil
}

// PropertiesWithRange returns the properties whose declared rdfs:range
// is classIRI.
func (n *Navigator) PropertiesWithRange(ctx context.Context, key, classIRI string) ([]string, error) {
	doc, err := n.document(ctx, key)
	if err != nil {
		return nil, err
	}
	var props []string
	for prop, dr := range doc.Rels.DomainRange {
		if dr.Range == classIRI {
			props = append(props, prop)
		}
	}
	sort.Strings(props)
	return props, nil
}

// LoadGraph returns the full document cached under key. A document marked
// unsafe to load is refused with ErrTooLarge unless force is set.
func (n *Navigator) LoadGraph(ctx context.Context, key string, force bool) (*normalize.Document, error) {
	doc, err := n.document(ctx, key)
	if err != nil {
		return nil, err
	}
	if !doc.SafeToLoad && !force {
		return nil, fmt.Errorf("%w: %s (%d triples, %d bytes)",
			ErrTooLarge, key, doc.TripleCount, doc.SizeBytes)
	}
	return doc, nil
}

// Invalidate drops the memoized snapshot for key, if any.
func (n *Navigator) Invalidate(key string) {
	n.mu.Lock()
	delete(n.docs, key)
	n.mu.Unlock()
}

// document returns the decoded document for key, reusing the memoized
// snapshot while the cache entry is unchanged.
func (n *Navigator) document(ctx context.Context, key string) (*normalize.Document, error) {
	entry, err := n.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	n.mu.RLock()
	memo, ok := n.docs[key]
	n.mu.RUnlock()
	if ok && memo.cachedAt.Equal(entry.CachedAt) {
		return memo.doc, nil
	}

	var doc normalize.Document
	if err := json.Unmarshal(entry.Payload, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", key, err)
	}

	n.mu.Lock()
	n.docs[key] = memoizedDoc{doc: &doc, cachedAt: entry.CachedAt}
	n.mu.Unlock()
	return &doc, nil
}

func matchIndex(index map[string]normalize.TermInfo, kind normalize.TermKind, sourceKey, needle string) []Hit {
	var hits []Hit
	for localName, info := range index {
		if !strings.Contains(strings.ToLower(localName), needle) &&
			!strings.Contains(strings.ToLower(info.Label), needle) {
			continue
		}
		hits = append(hits, Hit{
			Kind:      kind,
			LocalName: localName,
			IRI:       info.IRI,
			SourceKey: sourceKey,
			Snippet:   snippet(info),
		})
	}
	return hits
}

func snippet(info normalize.TermInfo) string {
	s := info.Label
	if info.Comment != "" {
		if s != "" {
			s += ": "
		}
		s += info.Comment
	}
	if len(s) > snippetLimit {
		s = s[:snippetLimit-3] + "..."
	}
	return s
}

func sortedCopy(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
