// Package ingest fetches vocabulary documents over HTTP and runs them
// through the fetch, parse, normalize, cache pipeline. Fetching carries
// SSRF protection: URL validation plus resolved-IP checks against DNS
// rebinding.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// acceptRDF is the Accept priority list for vocabulary fetches: the
// serializations we parse first, everything else as a last resort.
const acceptRDF = "text/turtle, application/n-triples;q=0.9, application/n-quads;q=0.8, text/plain;q=0.3, */*;q=0.1"

// DefaultMaxContentSize caps fetched payloads at 8 MiB.
const DefaultMaxContentSize = 8 * 1024 * 1024

// maxRedirects bounds redirect chains; each hop is re-validated.
const maxRedirects = 5

// FetchResult is the outcome of one fetch.
type FetchResult struct {
	Body        []byte
	ContentType string
	ETag        string
	StatusCode  int
}

// Fetcher retrieves vocabulary documents with security checks.
type Fetcher struct {
	client         *http.Client
	userAgent      string
	maxContentSize int64
	allowInsecure  bool
}

// FetcherOptions configures a Fetcher. Zero values take defaults.
type FetcherOptions struct {
	// Timeout bounds the whole fetch. Zero means 30s.
	Timeout time.Duration

	// UserAgent overrides the request User-Agent.
	UserAgent string

	// MaxContentSize caps the payload size. Zero means DefaultMaxContentSize.
	MaxContentSize int64

	// AllowInsecure permits plain HTTP and private addresses, for
	// development against local fixtures only.
	AllowInsecure bool
}

// NewFetcher creates a fetcher.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "semknow/0.1"
	}
	if opts.MaxContentSize == 0 {
		opts.MaxContentSize = DefaultMaxContentSize
	}

	f := &Fetcher{
		userAgent:      opts.UserAgent,
		maxContentSize: opts.MaxContentSize,
		allowInsecure:  opts.AllowInsecure,
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	// Validate resolved IPs before connecting so a hostname cannot
	// rebind to a private address after URL validation passed.
	safeDialContext := func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}

		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("DNS lookup failed: %w", err)
		}

		if !f.allowInsecure {
			for _, ipAddr := range ips {
				if IsPrivateIP(ipAddr.IP) {
					return nil, fmt.Errorf("connection to private IP %s is not allowed", ipAddr.IP)
				}
			}
		}

		for _, ipAddr := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ipAddr.IP.String(), port))
			if err == nil {
				return conn, nil
			}
		}
		return nil, fmt.Errorf("failed to connect to any resolved IP")
	}

	f.client = &http.Client{
		Transport: &http.Transport{
			DialContext:           safeDialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: opts.Timeout,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
		Timeout: opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			if err := ValidateURL(req.URL.String(), f.allowInsecure); err != nil {
				return fmt.Errorf("redirect blocked: %w", err)
			}
			return nil
		},
	}

	return f
}

// Fetch retrieves the document at the given URL.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*FetchResult, error) {
	return f.FetchWithETag(ctx, urlStr, "")
}

// FetchWithETag retrieves with conditional fetch support: when etag is set
// and the content is unchanged, the result carries StatusCode 304 and no
// body.
func (f *Fetcher) FetchWithETag(ctx context.Context, urlStr, etag string) (*FetchResult, error) {
	if err := ValidateURL(urlStr, f.allowInsecure); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptRDF)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	result := &FetchResult{
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        resp.Header.Get("ETag"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode == http.StatusNotModified {
		return result, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxContentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxContentSize {
		return nil, fmt.Errorf("content too large (exceeds %d bytes)", f.maxContentSize)
	}

	result.Body = body
	return result, nil
}
