package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/nats-io/nats.go/jetstream"
)

// Bucket is the KV bucket backing the knowledge cache.
const Bucket = "SEMKNOW_CACHE"

// keyPattern is the allowed public key charset. Colons separate namespace
// segments; dots, dashes, and underscores are free-form.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9:._-]*$`)

// OpRecorder counts cache operations by op and outcome. Satisfied by
// *metric.Metrics.
type OpRecorder interface {
	RecordCacheOp(op, outcome string)
}

// Store provides TTL'd entry storage over a JetStream KV bucket. Writes are
// atomic per key; readers in other processes observe complete envelopes only.
type Store struct {
	kv      jetstream.KeyValue
	logger  *slog.Logger
	now     func() time.Time
	metrics OpRecorder
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithOpRecorder enables per-operation instrumentation.
func WithOpRecorder(rec OpRecorder) StoreOption {
	return func(s *Store) { s.metrics = rec }
}

// NewStore creates a Store over the shared cache bucket, creating the
// bucket if it does not exist.
func NewStore(ctx context.Context, js jetstream.JetStream, logger *slog.Logger, opts ...StoreOption) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	kv, err := js.KeyValue(ctx, Bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      Bucket,
			Description: "semknow knowledge cache",
			History:     1,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create bucket: %v", ErrStorageUnavailable, err)
		}
	}

	s := &Store{kv: kv, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// record counts one operation when instrumentation is wired.
func (s *Store) record(op, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCacheOp(op, outcome)
	}
}

// ValidateKey checks a public cache key against the charset and namespace
// conventions.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// kvKey maps a public key to the KV charset: NATS KV keys cannot contain
// colons, so namespace separators become slashes. Public keys cannot
// contain slashes (keyPattern), so the mapping is reversible.
func kvKey(key string) string {
	return strings.ReplaceAll(key, ":", "/")
}

// publicKey reverses kvKey.
func publicKey(kv string) string {
	return strings.ReplaceAll(kv, "/", ":")
}

// Get returns the entry for key. Expired entries are reported as absent via
// ErrNotFound; the row persists physically until overwritten or cleared.
func (s *Store) Get(ctx context.Context, key string) (*Entry, error) {
	entry, err := s.load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.record("get", "miss")
		} else {
			s.record("get", "error")
		}
		return nil, err
	}
	if entry.IsExpired(s.now()) {
		s.record("get", "miss")
		return nil, fmt.Errorf("%w: %s (expired)", ErrNotFound, key)
	}
	s.record("get", "hit")
	return entry, nil
}

// GetWithMetadata returns the entry regardless of expiry, with metadata
// defaults filled for legacy rows. Used by annotation and inspection flows
// that need to see expired rows.
func (s *Store) GetWithMetadata(ctx context.Context, key string) (*Entry, error) {
	return s.load(ctx, key)
}

// Set stores a payload under key with the given TTL, resetting CachedAt and
// replacing any previous metadata with the unclassified default.
func (s *Store) Set(ctx context.Context, key string, payload any, ttl time.Duration) (*Entry, error) {
	return s.SetWithMetadata(ctx, key, payload, nil, ttl)
}

// SetWithMetadata stores a payload with explicit metadata. A nil metadata
// stores the unclassified default.
func (s *Store) SetWithMetadata(ctx context.Context, key string, payload any, meta *Metadata, ttl time.Duration) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for %s: %w", key, err)
	}
	if meta == nil {
		meta = defaultMetadata()
	}

	env := envelope{
		Payload:    raw,
		Metadata:   meta,
		CachedAt:   s.now().UTC(),
		TTLSeconds: int64(ttl / time.Second),
	}
	if err := s.put(ctx, key, env); err != nil {
		return nil, err
	}

	s.logger.Debug("cached entry", "key", key, "ttl", ttl, "bytes", len(raw))

	return &Entry{
		Key:      key,
		Payload:  raw,
		Metadata: meta,
		CachedAt: env.CachedAt,
		TTL:      ttl,
	}, nil
}

// UpdateMetadata applies a partial metadata update in place. The payload,
// CachedAt, and TTL are never touched. Returns false with a nil error when
// the key is absent.
func (s *Store) UpdateMetadata(ctx context.Context, key string, patch MetadataPatch) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}

	kvEntry, err := s.kv.Get(ctx, kvKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: get %s: %v", ErrStorageUnavailable, key, err)
	}

	var env envelope
	if err := json.Unmarshal(kvEntry.Value(), &env); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", ErrStorageUnavailable, key, err)
	}
	if env.Metadata == nil {
		env.Metadata = defaultMetadata()
	}
	env.Metadata.apply(patch, s.now().UTC())

	if err := s.put(ctx, key, env); err != nil {
		return false, err
	}
	return true, nil
}

// ListBySemanticType returns all unexpired entries with the given type.
func (s *Store) ListBySemanticType(ctx context.Context, semanticType SemanticType) ([]*Entry, error) {
	return s.scan(ctx, func(e *Entry) bool {
		return e.Metadata.SemanticType == semanticType
	})
}

// ListByDomain returns all unexpired entries classified under the domain.
func (s *Store) ListByDomain(ctx context.Context, domain string) ([]*Entry, error) {
	return s.scan(ctx, func(e *Entry) bool {
		for _, d := range e.Metadata.Domains {
			if d == domain {
				return true
			}
		}
		return false
	})
}

// ListKeys returns the public keys matching a glob pattern, e.g. "rdf:*"
// or "discovery:endpoint:*". Expired rows are included: key listing is an
// inventory operation, not a read.
func (s *Store) ListKeys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list keys: %v", ErrStorageUnavailable, err)
	}

	var out []string
	for _, k := range keys {
		pub := publicKey(k)
		ok, err := doublestar.Match(pattern, pub)
		if err != nil {
			return nil, fmt.Errorf("bad key pattern %q: %w", pattern, err)
		}
		if ok {
			out = append(out, pub)
		}
	}
	return out, nil
}

// Clear removes every entry in the cache.
func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil
		}
		return fmt.Errorf("%w: list keys: %v", ErrStorageUnavailable, err)
	}
	for _, k := range keys {
		if err := s.kv.Purge(ctx, k); err != nil {
			return fmt.Errorf("%w: purge %s: %v", ErrStorageUnavailable, publicKey(k), err)
		}
	}
	return nil
}

// ClearItem removes a single entry. Clearing an absent key is not an error.
func (s *Store) ClearItem(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.kv.Purge(ctx, kvKey(key)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("%w: purge %s: %v", ErrStorageUnavailable, key, err)
	}
	return nil
}

// ClearPattern removes all entries whose public key matches the glob.
// Returns the number of entries removed.
func (s *Store) ClearPattern(ctx context.Context, pattern string) (int, error) {
	keys, err := s.ListKeys(ctx, pattern)
	if err != nil {
		return 0, err
	}
	for i, k := range keys {
		if err := s.kv.Purge(ctx, kvKey(k)); err != nil {
			return i, fmt.Errorf("%w: purge %s: %v", ErrStorageUnavailable, k, err)
		}
	}
	return len(keys), nil
}

// load reads and decodes an envelope, filling metadata defaults.
func (s *Store) load(ctx context.Context, key string) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	kvEntry, err := s.kv.Get(ctx, kvKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: get %s: %v", ErrStorageUnavailable, key, err)
	}

	return decodeEnvelope(key, kvEntry.Value())
}

// decodeEnvelope is the deserialization boundary: legacy rows with missing
// metadata are defaulted here and nowhere else.
func decodeEnvelope(key string, data []byte) (*Entry, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrStorageUnavailable, key, err)
	}
	meta := env.Metadata
	if meta == nil {
		meta = defaultMetadata()
	}
	if !meta.SemanticType.IsValid() {
		meta.SemanticType = TypeUnclassified
	}
	return &Entry{
		Key:      key,
		Payload:  env.Payload,
		Metadata: meta,
		CachedAt: env.CachedAt,
		TTL:      time.Duration(env.TTLSeconds) * time.Second,
	}, nil
}

func (s *Store) put(ctx context.Context, key string, env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope for %s: %w", key, err)
	}
	if _, err := s.kv.Put(ctx, kvKey(key), data); err != nil {
		s.record("put", "error")
		return fmt.Errorf("%w: put %s: %v", ErrStorageUnavailable, key, err)
	}
	s.record("put", "ok")
	return nil
}

// scan iterates all rows, skipping expired ones, and collects entries
// matching the filter.
func (s *Store) scan(ctx context.Context, match func(*Entry) bool) ([]*Entry, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list keys: %v", ErrStorageUnavailable, err)
	}

	now := s.now()
	var out []*Entry
	for _, k := range keys {
		kvEntry, err := s.kv.Get(ctx, k)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue // purged between Keys and Get
			}
			return nil, fmt.Errorf("%w: get %s: %v", ErrStorageUnavailable, publicKey(k), err)
		}
		entry, err := decodeEnvelope(publicKey(k), kvEntry.Value())
		if err != nil {
			return nil, err
		}
		if entry.IsExpired(now) {
			continue
		}
		if match(entry) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func marshalPayload(payload any) (json.RawMessage, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	if raw, ok := payload.([]byte); ok {
		return json.RawMessage(raw), nil
	}
	return json.Marshal(payload)
}
