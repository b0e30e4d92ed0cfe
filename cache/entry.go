// Package cache provides the durable knowledge cache: a TTL'd key/value
// store over a NATS JetStream KV bucket with per-entry semantic metadata
// that can be patched without touching the payload.
package cache

import (
	"encoding/json"
	"time"
)

// SemanticType classifies what kind of knowledge an entry holds.
type SemanticType string

const (
	// TypeVocabulary marks a cached vocabulary/ontology document.
	TypeVocabulary SemanticType = "vocabulary"
	// TypeServiceDescription marks a cached endpoint service description.
	TypeServiceDescription SemanticType = "serviceDescription"
	// TypeSchema marks a cached schema snapshot.
	TypeSchema SemanticType = "schema"
	// TypeUnclassified is the default for entries with no classification.
	TypeUnclassified SemanticType = "unclassified"
)

// IsValid checks the semantic type against the defined constants.
func (s SemanticType) IsValid() bool {
	switch s {
	case TypeVocabulary, TypeServiceDescription, TypeSchema, TypeUnclassified:
		return true
	default:
		return false
	}
}

// Key namespaces. Every cache key is prefixed by the kind of payload it holds.
const (
	// NamespaceRDF prefixes canonical indexed documents.
	NamespaceRDF = "rdf:"
	// NamespaceSchema prefixes schema snapshots.
	NamespaceSchema = "schema:"
	// NamespaceDiscovery prefixes discovered endpoint descriptors.
	NamespaceDiscovery = "discovery:"
)

// Metadata is the semantic classification attached to a cache entry.
// It is patched independently of the payload.
type Metadata struct {
	// SemanticType classifies the entry's payload.
	SemanticType SemanticType `json:"semantic_type"`

	// Domains lists the knowledge domains the entry covers.
	Domains []string `json:"domains,omitempty"`

	// Format is the original serialization format (e.g. "text/turtle").
	Format string `json:"format,omitempty"`

	// Purpose is a free-form note on why the entry was cached.
	Purpose string `json:"purpose,omitempty"`

	// DependsOn lists cache keys this entry was derived from.
	DependsOn []string `json:"depends_on,omitempty"`

	// Provides counts what the entry offers per kind, e.g.
	// {"classes": 10, "properties": 20}.
	Provides map[string]int `json:"provides,omitempty"`

	// Confidence holds classification confidence per domain, in (0,1].
	// Informational only; nothing gates on it.
	Confidence map[string]float64 `json:"confidence,omitempty"`

	// SizeBytes is the payload size metric recorded at classification time.
	SizeBytes int64 `json:"size_bytes,omitempty"`

	// ClassifiedAt records when the classification was produced.
	ClassifiedAt time.Time `json:"classified_at,omitempty"`

	// UsagePatterns lists observed access patterns, newest last.
	UsagePatterns []string `json:"usage_patterns,omitempty"`
}

// MetadataPatch is a partial metadata update. Nil fields are left unchanged.
type MetadataPatch struct {
	SemanticType  *SemanticType      `json:"semantic_type,omitempty"`
	Domains       []string           `json:"domains,omitempty"`
	Format        *string            `json:"format,omitempty"`
	Purpose       *string            `json:"purpose,omitempty"`
	DependsOn     []string           `json:"depends_on,omitempty"`
	Provides      map[string]int     `json:"provides,omitempty"`
	Confidence    map[string]float64 `json:"confidence,omitempty"`
	SizeBytes     *int64             `json:"size_bytes,omitempty"`
	UsagePatterns []string           `json:"usage_patterns,omitempty"`
}

// Entry is one cached item.
type Entry struct {
	// Key is the public, namespaced cache key.
	Key string `json:"key"`

	// Payload is the stored document, opaque to the cache.
	Payload json.RawMessage `json:"payload"`

	// Metadata is the semantic classification. Never nil on entries read
	// through the store; legacy rows are defaulted at the deserialization
	// boundary.
	Metadata *Metadata `json:"metadata,omitempty"`

	// CachedAt is when the payload was last written.
	CachedAt time.Time `json:"cached_at"`

	// TTL is the entry's time to live. Zero means no expiry.
	TTL time.Duration `json:"ttl"`
}

// IsExpired reports whether the entry is past its TTL at the given time.
func (e *Entry) IsExpired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.After(e.CachedAt.Add(e.TTL))
}

// envelope is the on-wire JSON form stored in the KV bucket.
type envelope struct {
	Payload    json.RawMessage `json:"payload"`
	Metadata   *Metadata       `json:"metadata,omitempty"`
	CachedAt   time.Time       `json:"cached_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
}

// defaultMetadata is the single migration point for legacy envelopes
// written before semantic metadata existed: reads never fail on a missing
// metadata block, they get this default instead.
func defaultMetadata() *Metadata {
	return &Metadata{SemanticType: TypeUnclassified}
}

// apply merges a patch into the metadata, stamping ClassifiedAt.
func (m *Metadata) apply(patch MetadataPatch, now time.Time) {
	if patch.SemanticType != nil {
		m.SemanticType = *patch.SemanticType
	}
	if patch.Domains != nil {
		m.Domains = patch.Domains
	}
	if patch.Format != nil {
		m.Format = *patch.Format
	}
	if patch.Purpose != nil {
		m.Purpose = *patch.Purpose
	}
	if patch.DependsOn != nil {
		m.DependsOn = patch.DependsOn
	}
	if patch.Provides != nil {
		m.Provides = patch.Provides
	}
	if patch.Confidence != nil {
		m.Confidence = patch.Confidence
	}
	if patch.SizeBytes != nil {
		m.SizeBytes = *patch.SizeBytes
	}
	if patch.UsagePatterns != nil {
		m.UsagePatterns = append(m.UsagePatterns, patch.UsagePatterns...)
	}
	m.ClassifiedAt = now
}
