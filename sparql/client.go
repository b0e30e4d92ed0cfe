// Package sparql provides the query executor used by endpoint discovery and
// the template reasoner: SELECT queries returning bindings and CONSTRUCT
// queries returning triples, over the standard SPARQL HTTP protocol.
package sparql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/c360studio/semknow/rdf"
	"github.com/c360studio/semknow/rdf/parser"
)

// ErrTimeout indicates the endpoint did not answer within the configured
// deadline. Callers may retry; the executor never retries internally.
var ErrTimeout = errors.New("sparql query timeout")

// ErrResponseTooLarge indicates the response body exceeded the configured
// size bound. A truncated body must never be parsed as a complete result.
var ErrResponseTooLarge = errors.New("sparql response too large")

// DefaultTimeout bounds query execution when the caller supplies none.
const DefaultTimeout = 30 * time.Second

// defaultMaxResponseBytes caps how much of a response body is read.
const defaultMaxResponseBytes = 16 * 1024 * 1024

// Term is one RDF term in a SELECT binding.
type Term struct {
	// Type is "uri", "literal", or "bnode".
	Type string `json:"type"`

	// Value is the IRI, lexical form, or blank node label.
	Value string `json:"value"`

	// Datatype is the literal datatype IRI, if any.
	Datatype string `json:"datatype,omitempty"`

	// Lang is the literal language tag, if any.
	Lang string `json:"xml:lang,omitempty"`
}

// Binding maps SELECT variable names to terms.
type Binding map[string]Term

// Executor runs SPARQL queries against a remote endpoint.
type Executor interface {
	// Select runs a SELECT query and returns the result bindings.
	Select(ctx context.Context, endpointURL, query string) ([]Binding, error)

	// Construct runs a CONSTRUCT query and returns the produced triples.
	Construct(ctx context.Context, endpointURL, query string) ([]rdf.Triple, error)
}

// HTTPExecutor is the standard Executor over the SPARQL HTTP protocol.
type HTTPExecutor struct {
	client   *http.Client
	parsers  *parser.Registry
	maxBytes int64
	logger   *slog.Logger
}

// Option configures an HTTPExecutor.
type Option func(*HTTPExecutor)

// WithTimeout sets the per-query deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(e *HTTPExecutor) {
		e.client.Timeout = timeout
	}
}

// WithMaxResponseBytes bounds the response body size.
func WithMaxResponseBytes(n int64) Option {
	return func(e *HTTPExecutor) {
		e.maxBytes = n
	}
}

// WithLogger sets the executor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *HTTPExecutor) {
		e.logger = logger
	}
}

// NewHTTPExecutor creates an executor with the default timeout and parsers.
func NewHTTPExecutor(opts ...Option) *HTTPExecutor {
	e := &HTTPExecutor{
		client:   &http.Client{Timeout: DefaultTimeout},
		parsers:  parser.NewRegistry(),
		maxBytes: defaultMaxResponseBytes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Select runs a SELECT query, parsing the standard
// application/sparql-results+json response.
func (e *HTTPExecutor) Select(ctx context.Context, endpointURL, query string) ([]Binding, error) {
	body, _, err := e.execute(ctx, endpointURL, query, "application/sparql-results+json")
	if err != nil {
		return nil, err
	}

	var results struct {
		Results struct {
			Bindings []Binding `json:"bindings"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("decode sparql results: %w", err)
	}
	return results.Results.Bindings, nil
}

// Construct runs a CONSTRUCT query and parses the returned graph with the
// serialization parser matching the response content type.
func (e *HTTPExecutor) Construct(ctx context.Context, endpointURL, query string) ([]rdf.Triple, error) {
	accept := "text/turtle, application/n-triples;q=0.9, text/plain;q=0.5"
	body, contentType, err := e.execute(ctx, endpointURL, query, accept)
	if err != nil {
		return nil, err
	}

	result, err := e.parsers.Parse(endpointURL, body, contentType)
	if err != nil {
		return nil, fmt.Errorf("parse construct response: %w", err)
	}
	if result.Skipped > 0 {
		e.logger.Warn("construct response contained malformed statements",
			"endpoint", endpointURL, "skipped", result.Skipped)
	}
	return result.Triples, nil
}

// execute POSTs the query and returns the bounded response body.
func (e *HTTPExecutor) execute(ctx context.Context, endpointURL, query, accept string) ([]byte, string, error) {
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "semknow/0.1")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, "", fmt.Errorf("%w: %s after %s", ErrTimeout, endpointURL, time.Since(start).Round(time.Millisecond))
		}
		return nil, "", fmt.Errorf("query %s: %w", endpointURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("query %s: status %d: %s", endpointURL, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		if isTimeout(err) {
			return nil, "", fmt.Errorf("%w: %s while reading response", ErrTimeout, endpointURL)
		}
		return nil, "", fmt.Errorf("read response from %s: %w", endpointURL, err)
	}
	if int64(len(body)) > e.maxBytes {
		return nil, "", fmt.Errorf("%w: %s exceeds %d bytes", ErrResponseTooLarge, endpointURL, e.maxBytes)
	}

	e.logger.Debug("executed query",
		"endpoint", endpointURL,
		"bytes", len(body),
		"duration", time.Since(start).Round(time.Millisecond))

	return body, resp.Header.Get("Content-Type"), nil
}

// isTimeout classifies deadline and timeout failures from the HTTP stack.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}
	return false
}

// TriplesFromBindings converts SELECT bindings with ?s ?p ?o variables into
// triples, for endpoints that answer closure queries via SELECT.
func TriplesFromBindings(bindings []Binding) []rdf.Triple {
	triples := make([]rdf.Triple, 0, len(bindings))
	for _, b := range bindings {
		s, okS := b["s"]
		p, okP := b["p"]
		o, okO := b["o"]
		if !okS || !okP || !okO {
			continue
		}
		triples = append(triples, rdf.Triple{
			Subject:   s.Value,
			Predicate: p.Value,
			Object:    o.Value,
			IsLiteral: o.Type == "literal",
			Datatype:  o.Datatype,
			Lang:      o.Lang,
		})
	}
	return triples
}
