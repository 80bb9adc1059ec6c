package content

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultNATSBucket is the KV bucket used when none is configured.
const DefaultNATSBucket = "sncontent-cache"

// NATSKVConfig configures the NATS JetStream key-value cache.
type NATSKVConfig struct {
	// URL of the NATS server. Ignored when Conn is set.
	URL string `mapstructure:"url" yaml:"url"`
	// Bucket is the KV bucket name.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	// TTL is the bucket-level maximum age of a value. Entry expiry is
	// enforced per entry regardless.
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// Conn is an existing connection to reuse.
	Conn *nats.Conn `mapstructure:"-" yaml:"-"`
}

// NATSKVCache stores entries in a NATS JetStream KV bucket so that several
// processes share authority and token lookups.
type NATSKVCache struct {
	conn    *nats.Conn
	ownConn bool
	kv      jetstream.KeyValue
	clock   func() time.Time
}

// NewNATSKVCache connects to NATS and creates or binds the KV bucket.
func NewNATSKVCache(ctx context.Context, config *NATSKVConfig) (*NATSKVCache, error) {
	if config == nil {
		return nil, ErrNATSConfigRequired
	}

	conn := config.Conn
	ownConn := false

	if conn == nil {
		url := config.URL
		if url == "" {
			url = nats.DefaultURL
		}

		var err error

		conn, err = nats.Connect(url, nats.Name("sncontent"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}

		ownConn = true
	}

	js, err := jetstream.New(conn)
	if err != nil {
		closeIf(ownConn, conn)

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = DefaultNATSBucket
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  bucket,
		TTL:     config.TTL,
		History: 1,
	})
	if err != nil {
		closeIf(ownConn, conn)

		return nil, fmt.Errorf("failed to create KV bucket %s: %w", bucket, err)
	}

	return &NATSKVCache{conn: conn, ownConn: ownConn, kv: kv, clock: time.Now}, nil
}

// Get returns the entry stored for key.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kvEntry, err := c.kv.Get(ctx, encodeNATSKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCacheKeyNotFound, key)
		}

		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(kvEntry.Value(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	if entry.ExpiredAt(c.clock()) {
		_ = c.kv.Delete(ctx, encodeNATSKey(key))

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	return &entry, nil
}

// Set stores entry under key.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if _, err := c.kv.Put(ctx, encodeNATSKey(key), data); err != nil {
		return fmt.Errorf("failed to put key %s: %w", key, err)
	}

	return nil
}

// Delete removes key.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, encodeNATSKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}

	return nil
}

// Clear purges every key in the bucket.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	lister, err := c.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil
		}

		return fmt.Errorf("failed to list keys: %w", err)
	}

	defer func() { _ = lister.Stop() }()

	for key := range lister.Keys() {
		if err := c.kv.Purge(ctx, key); err != nil {
			return fmt.Errorf("failed to purge key %s: %w", key, err)
		}
	}

	return nil
}

// Has reports whether a live entry is stored for key.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close closes the connection when the cache opened it.
func (c *NATSKVCache) Close() {
	closeIf(c.ownConn, c.conn)
}

// encodeNATSKey maps arbitrary keys such as URLs onto the KV key alphabet.
func encodeNATSKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func closeIf(own bool, conn *nats.Conn) {
	if own && conn != nil {
		conn.Close()
	}
}
