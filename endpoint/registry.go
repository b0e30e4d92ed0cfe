package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/c360studio/semknow/cache"
)

// DefaultDiscoveryTTL bounds how long a discovered endpoint stays cached.
const DefaultDiscoveryTTL = 7 * 24 * time.Hour

// Discoverer finds an endpoint descriptor by name against a live knowledge
// source. Implemented by SPARQLDiscoverer; nil disables live discovery.
type Discoverer interface {
	Discover(ctx context.Context, name string) (*Descriptor, error)
}

// DiscoveryRecorder counts live discovery attempts by outcome. Satisfied by
// *metric.Metrics.
type DiscoveryRecorder interface {
	RecordDiscovery(outcome string)
}

// Registry resolves endpoint names. Each Registry instance owns its own
// state; independent sessions never share discovered entries through
// process globals.
type Registry struct {
	mu           sync.RWMutex
	builtin      map[string]Descriptor
	overrides    map[string]Descriptor
	store        *cache.Store
	discoverer   Discoverer
	discoveryTTL time.Duration
	logger       *slog.Logger
	metrics      DiscoveryRecorder
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDiscoverer enables live discovery.
func WithDiscoverer(d Discoverer) RegistryOption {
	return func(r *Registry) { r.discoverer = d }
}

// WithDiscoveryTTL sets the cache TTL for discovered descriptors.
func WithDiscoveryTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) { r.discoveryTTL = ttl }
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// WithDiscoveryRecorder enables live-discovery instrumentation.
func WithDiscoveryRecorder(rec DiscoveryRecorder) RegistryOption {
	return func(r *Registry) { r.metrics = rec }
}

// NewRegistry creates a Registry over the given cache store.
func NewRegistry(store *cache.Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		builtin:      builtins(),
		overrides:    make(map[string]Descriptor),
		store:        store,
		discoveryTTL: DefaultDiscoveryTTL,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the descriptor for a short endpoint name. Precedence:
// builtin, then overrides, then unexpired cached discovery, then live
// discovery (persisting a hit), then ErrNotFound. Storage failures
// propagate as cache.ErrStorageUnavailable and never fall through to
// discovery.
func (r *Registry) Resolve(ctx context.Context, name string) (*Descriptor, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrNotFound)
	}

	r.mu.RLock()
	if d, ok := r.builtin[name]; ok {
		r.mu.RUnlock()
		return &d, nil
	}
	if d, ok := r.overrides[name]; ok {
		r.mu.RUnlock()
		return &d, nil
	}
	r.mu.RUnlock()

	if d, err := r.cached(ctx, name); err == nil {
		return d, nil
	} else if !errors.Is(err, cache.ErrNotFound) {
		return nil, err
	}

	if r.discoverer != nil {
		d, err := r.discoverer.Discover(ctx, name)
		if err == nil && d != nil {
			r.recordDiscovery("hit")
			d.Name = name
			d.Source = SourceDiscovered
			if err := r.persist(ctx, d); err != nil {
				return nil, err
			}
			r.logger.Info("discovered endpoint", "name", name, "base_url", d.BaseURL)
			return d, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			r.recordDiscovery("error")
			r.logger.Debug("live discovery failed", "name", name, "error", err)
		} else {
			r.recordDiscovery("miss")
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// SetOverrides replaces the user override table. Overrides sit below the
// builtin table: a builtin name keeps winning even when overridden.
func (r *Registry) SetOverrides(overrides map[string]Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides = make(map[string]Descriptor, len(overrides))
	for name, d := range overrides {
		name = strings.ToLower(name)
		d.Name = name
		d.Source = SourceOverride
		r.overrides[name] = d
	}
}

// Names returns all names resolvable without network: builtin plus
// overrides, sorted by the caller if needed.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builtin)+len(r.overrides))
	for n := range r.builtin {
		names = append(names, n)
	}
	for n := range r.overrides {
		if _, shadowed := r.builtin[n]; !shadowed {
			names = append(names, n)
		}
	}
	return names
}

// EntityURI expands an identifier to a full IRI using the endpoint's
// identifier-shape rules.
func (r *Registry) EntityURI(ctx context.Context, identifier, endpointName string) (string, error) {
	d, err := r.Resolve(ctx, endpointName)
	if err != nil {
		return "", err
	}
	for _, rule := range d.IdentifierRules {
		if rule.Pattern.MatchString(identifier) {
			return strings.ReplaceAll(rule.Template, "{id}", identifier), nil
		}
	}
	return "", fmt.Errorf("%w: %q on endpoint %s", ErrNoIdentifierRule, identifier, endpointName)
}

// InferEndpoint guesses which endpoint an identifier belongs to using the
// fixed-priority shape table. Returns "" when nothing matches.
func InferEndpoint(identifier string) string {
	for _, rule := range inferenceRules {
		if rule.pattern.MatchString(identifier) {
			return rule.endpoint
		}
	}
	return ""
}

// recordDiscovery counts one discovery attempt when instrumentation is wired.
func (r *Registry) recordDiscovery(outcome string) {
	if r.metrics != nil {
		r.metrics.RecordDiscovery(outcome)
	}
}

// cached loads an unexpired discovered descriptor from the cache.
func (r *Registry) cached(ctx context.Context, name string) (*Descriptor, error) {
	entry, err := r.store.Get(ctx, CacheKey(name))
	if err != nil {
		return nil, err
	}
	var d Descriptor
	if err := json.Unmarshal(entry.Payload, &d); err != nil {
		return nil, fmt.Errorf("decode cached endpoint %s: %w", name, err)
	}
	d.Source = SourceCached
	return &d, nil
}

// persist writes a discovered descriptor to the cache with the discovery TTL.
func (r *Registry) persist(ctx context.Context, d *Descriptor) error {
	meta := &cache.Metadata{
		SemanticType: cache.TypeServiceDescription,
		Purpose:      "discovered endpoint descriptor",
	}
	_, err := r.store.SetWithMetadata(ctx, CacheKey(d.Name), d, meta, r.discoveryTTL)
	return err
}
