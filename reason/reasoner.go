package reason

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/semknow/cache"
	"github.com/c360studio/semknow/endpoint"
	"github.com/c360studio/semknow/normalize"
	"github.com/c360studio/semknow/rdf"
	"github.com/c360studio/semknow/sparql"
)

// DefaultQueryTimeout bounds remote template execution.
const DefaultQueryTimeout = 30 * time.Second

// Request describes one template application.
type Request struct {
	// TemplateID names the template to apply.
	TemplateID string

	// Endpoint is the short name of the target endpoint.
	Endpoint string

	// Focus optionally restricts the derivation to statements about one
	// IRI.
	Focus string

	// Limit optionally caps the number of derived triples. Zero means
	// unlimited.
	Limit int

	// Persist writes the derivation back into the cache.
	Persist bool

	// CacheKey is the persistence key. Empty generates one under the
	// rdf:derived: prefix.
	CacheKey string

	// TTL applies to the persisted entry. Zero means no expiry.
	TTL time.Duration
}

// Reasoner applies inference templates against cached vocabularies.
type Reasoner struct {
	store      *cache.Store
	registry   *endpoint.Registry
	executor   sparql.Executor
	normalizer *normalize.Normalizer
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Reasoner.
type Option func(*Reasoner)

// WithQueryTimeout sets the remote execution deadline.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(r *Reasoner) { r.timeout = timeout }
}

// WithLogger sets the reasoner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reasoner) { r.logger = logger }
}

// New creates a Reasoner. The executor may be nil when every endpoint in
// use is local-only.
func New(store *cache.Store, registry *endpoint.Registry, executor sparql.Executor, opts ...Option) *Reasoner {
	r := &Reasoner{
		store:      store,
		registry:   registry,
		executor:   executor,
		normalizer: normalize.New(normalize.Options{}),
		timeout:    DefaultQueryTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply runs the state machine for one request: Requested,
// VocabularyChecked, Translated, Executed, then Succeeded or Failed.
// Failures are reported on the Result, never as Go errors.
func (r *Reasoner) Apply(ctx context.Context, req Request) *Result {
	tmpl, ok := Lookup(req.TemplateID)
	if !ok {
		return failed(req.TemplateID, req.Endpoint, Failure{
			Code:   TemplateIncompatible,
			Term:   req.TemplateID,
			Detail: fmt.Sprintf("unknown template %q", req.TemplateID),
		})
	}

	desc, err := r.registry.Resolve(ctx, req.Endpoint)
	if err != nil {
		code := EndpointNotFound
		if errors.Is(err, cache.ErrStorageUnavailable) {
			code = StorageUnavailable
		}
		return failed(req.TemplateID, req.Endpoint, Failure{
			Code:   code,
			Term:   req.Endpoint,
			Detail: err.Error(),
		})
	}

	// Hard guardrail: no cached vocabulary, no reasoning. Templates applied
	// to unknown vocabulary produce meaningless output.
	vocabKey := endpoint.VocabularyKey(desc.Name)
	vocabEntry, err := r.store.Get(ctx, vocabKey)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return failed(req.TemplateID, desc.Name, Failure{
				Code:   DiscoveryRequired,
				Term:   desc.Name,
				Detail: fmt.Sprintf("no cached vocabulary under %s: ingest the endpoint's vocabulary first", vocabKey),
			})
		}
		return failed(req.TemplateID, desc.Name, Failure{
			Code:   StorageUnavailable,
			Detail: err.Error(),
		})
	}

	query, fail := translate(tmpl, desc.Mapping, req.Focus, req.Limit)
	if fail != nil {
		return failed(req.TemplateID, desc.Name, *fail)
	}

	var raw []rdf.Triple
	if desc.LocalOnly {
		var doc normalize.Document
		if err := json.Unmarshal(vocabEntry.Payload, &doc); err != nil {
			return failed(req.TemplateID, desc.Name, Failure{
				Code:   ExecutionFailed,
				Detail: fmt.Sprintf("decode cached vocabulary %s: %v", vocabKey, err),
			})
		}
		raw = evalLocal(&doc, tmpl, desc.Mapping, req.Focus, req.Limit)
		query = ""
	} else {
		execCtx, cancel := context.WithTimeout(ctx, r.timeout)
		raw, err = r.executor.Construct(execCtx, desc.BaseURL, query)
		cancel()
		if err != nil {
			code := ExecutionFailed
			if errors.Is(err, sparql.ErrTimeout) {
				code = Timeout
			}
			return failed(req.TemplateID, desc.Name, Failure{
				Code:   code,
				Detail: err.Error(),
			})
		}
		raw = dedupeSort(raw)
		if req.Limit > 0 && len(raw) > req.Limit {
			raw = raw[:req.Limit]
		}
	}

	// Normalization makes the derivation indexable and browsable like any
	// ingested document.
	source := fmt.Sprintf("%s/%s", desc.Name, tmpl.ID)
	doc, err := r.normalizer.NormalizeTriples(source, raw, desc.Prefixes)
	if err != nil {
		return failed(req.TemplateID, desc.Name, Failure{
			Code:   ExecutionFailed,
			Detail: fmt.Sprintf("normalize derived triples: %v", err),
		})
	}

	result := &Result{
		State:      StateSucceeded,
		TemplateID: tmpl.ID,
		Endpoint:   desc.Name,
		Derived:    raw,
		Count:      len(raw),
		Confidence: tmpl.Confidence,
		Query:      query,
	}

	if req.Persist {
		key, err := r.persist(ctx, req, tmpl, desc.Name, vocabKey, doc)
		if err != nil {
			return failed(req.TemplateID, desc.Name, Failure{
				Code:   StorageUnavailable,
				Detail: err.Error(),
			})
		}
		result.CacheKey = key
	}

	r.logger.Info("applied template",
		"template", tmpl.ID,
		"endpoint", desc.Name,
		"derived", result.Count,
		"confidence", tmpl.Confidence,
		"persisted", result.CacheKey != "")

	return result
}

// translate substitutes the endpoint's concrete predicates into the
// template skeleton. A missing role means the endpoint cannot express the
// template's semantics at all.
func translate(t Template, m endpoint.Mapping, focus string, limit int) (string, *Failure) {
	query := t.Construct
	for _, role := range t.Roles {
		pred, ok := m.Predicate(role)
		if !ok {
			return "", &Failure{
				Code:   TemplateIncompatible,
				Role:   role,
				Detail: fmt.Sprintf("template %s needs role %s, which the endpoint does not map", t.ID, role),
			}
		}
		query = strings.ReplaceAll(query, "{"+string(role)+"}", "<"+pred+">")
	}

	filter := ""
	if focus != "" {
		filter = fmt.Sprintf(" FILTER(?%s = <%s>)", t.FocusVar, focus)
	}
	query = strings.ReplaceAll(query, "{focus}", filter)

	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	return query, nil
}

// persist writes the normalized derivation to the cache under the request
// key, generating one when the caller left it empty.
func (r *Reasoner) persist(ctx context.Context, req Request, tmpl Template, endpointName, vocabKey string, doc *normalize.Document) (string, error) {
	key := req.CacheKey
	if key == "" {
		key = fmt.Sprintf("%sderived:%s:%s:%s", cache.NamespaceRDF, endpointName, tmpl.ID, uuid.NewString())
	}

	meta := &cache.Metadata{
		SemanticType: cache.TypeVocabulary,
		Purpose:      fmt.Sprintf("derived by template %s", tmpl.ID),
		DependsOn:    []string{vocabKey},
		Provides:     map[string]int{"triples": doc.TripleCount},
		Confidence:   map[string]float64{tmpl.ID: tmpl.Confidence},
	}
	if _, err := r.store.SetWithMetadata(ctx, key, doc, meta, req.TTL); err != nil {
		return "", err
	}
	return key, nil
}
