package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/semknow/cache"
	"github.com/c360studio/semknow/normalize"
	"github.com/c360studio/semknow/rdf"
)

// Code classifies the outcome of an ingest.
type Code string

const (
	// CodeOK means the document was normalized and cached.
	CodeOK Code = "Ok"
	// CodeFetchFailed means the URL could not be retrieved.
	CodeFetchFailed Code = "FetchFailed"
	// CodeUnsupportedFormat means no parser handles the content type.
	CodeUnsupportedFormat Code = "UnsupportedFormat"
	// CodeParseFailed means the payload yielded no parseable statements.
	CodeParseFailed Code = "ParseFailed"
	// CodeStorageUnavailable means the cache rejected the write.
	CodeStorageUnavailable Code = "StorageUnavailable"
)

// Result reports one ingest.
type Result struct {
	// Code classifies the outcome.
	Code Code `json:"code"`

	// Key is the cache key the document was stored under, on success.
	Key string `json:"key,omitempty"`

	// TripleCount and SkippedStatements summarize the normalization.
	TripleCount       int `json:"triple_count,omitempty"`
	SkippedStatements int `json:"skipped_statements,omitempty"`

	// Bytes is the fetched payload size, on success.
	Bytes int `json:"bytes,omitempty"`

	// Domains is the best-effort domain classification.
	Domains []string `json:"domains,omitempty"`

	// Detail explains failures.
	Detail string `json:"detail,omitempty"`
}

// Ingester runs the fetch, parse, normalize, cache pipeline. A document is
// written only after full normalization; a failed ingest never leaves a
// partial entry behind.
type Ingester struct {
	fetcher    *Fetcher
	normalizer *normalize.Normalizer
	store      *cache.Store
	defaultTTL time.Duration
	logger     *slog.Logger
}

// IngesterOptions configures an Ingester.
type IngesterOptions struct {
	// Fetcher retrieves documents. Nil means a default fetcher.
	Fetcher *Fetcher

	// Normalizer builds canonical documents. Nil means defaults.
	Normalizer *normalize.Normalizer

	// DefaultTTL applies to ingested entries when the caller passes zero.
	DefaultTTL time.Duration

	// Logger receives progress output. Nil means slog.Default().
	Logger *slog.Logger
}

// NewIngester creates an Ingester over the given store.
func NewIngester(store *cache.Store, opts IngesterOptions) *Ingester {
	if opts.Fetcher == nil {
		opts.Fetcher = NewFetcher(FetcherOptions{})
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.New(normalize.Options{})
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Ingester{
		fetcher:    opts.Fetcher,
		normalizer: opts.Normalizer,
		store:      store,
		defaultTTL: opts.DefaultTTL,
		logger:     opts.Logger,
	}
}

// Ingest fetches the URL, normalizes the payload, and caches the canonical
// document under rdf:<name>. An empty name derives one from the URL. A
// zero TTL takes the ingester default.
func (i *Ingester) Ingest(ctx context.Context, url, name string, ttl time.Duration) *Result {
	if name == "" {
		name = CacheName(url)
	}
	if ttl == 0 {
		ttl = i.defaultTTL
	}

	fetched, err := i.fetcher.Fetch(ctx, url)
	if err != nil {
		return &Result{Code: CodeFetchFailed, Detail: err.Error()}
	}

	doc, err := i.normalizer.Normalize(url, fetched.Body, fetched.ContentType)
	if err != nil {
		code := CodeParseFailed
		if errors.Is(err, rdf.ErrUnsupportedFormat) {
			code = CodeUnsupportedFormat
		}
		return &Result{Code: code, Detail: err.Error()}
	}

	key := cache.NamespaceRDF + name
	meta := classify(doc, fetched.ContentType)
	if _, err := i.store.SetWithMetadata(ctx, key, doc, meta, ttl); err != nil {
		return &Result{Code: CodeStorageUnavailable, Detail: err.Error()}
	}

	i.logger.Info("ingested vocabulary",
		"url", url,
		"key", key,
		"triples", doc.TripleCount,
		"skipped", doc.SkippedStatements,
		"domains", meta.Domains)

	return &Result{
		Code:              CodeOK,
		Key:               key,
		TripleCount:       doc.TripleCount,
		SkippedStatements: doc.SkippedStatements,
		Bytes:             len(fetched.Body),
		Domains:           meta.Domains,
	}
}

// classify derives the entry metadata from the normalized document.
func classify(doc *normalize.Document, contentType string) *cache.Metadata {
	semanticType := cache.TypeUnclassified
	if len(doc.Classes) > 0 || len(doc.Properties) > 0 {
		semanticType = cache.TypeVocabulary
	}

	return &cache.Metadata{
		SemanticType: semanticType,
		Domains:      normalize.TopDomains(doc),
		Format:       contentType,
		Purpose:      fmt.Sprintf("ingested from %s", doc.Source),
		Provides: map[string]int{
			"classes":    len(doc.Classes),
			"properties": len(doc.Properties),
			"triples":    doc.TripleCount,
		},
		Confidence: doc.Domains,
		SizeBytes:  int64(doc.SizeBytes),
	}
}
