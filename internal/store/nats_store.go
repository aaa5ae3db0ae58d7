package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"buffwatch/internal/config"

	"github.com/nats-io/nats.go"
)

// NATSStore persists blobs in one JetStream KV bucket.
// Params: NATS connection and KV bucket handle.
// Returns: KV-backed store implementation.
type NATSStore struct {
	nc *nats.Conn
	kv nats.KeyValue
}

// NewNATSStore opens or creates KV bucket and returns NATS store.
// Params: store settings from config.
// Returns: initialized NATS store or setup error.
func NewNATSStore(settings config.StoreConfig) (*NATSStore, error) {
	nc, err := nats.Connect(strings.Join(settings.NATSURL, ","))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	kv, err := js.KeyValue(settings.Bucket)
	if err != nil {
		if !settings.AllowCreateBucket {
			nc.Close()
			return nil, fmt.Errorf("open bucket %q: %w", settings.Bucket, err)
		}
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:  settings.Bucket,
			History: 1,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create bucket %q: %w", settings.Bucket, err)
		}
	}

	return &NATSStore{nc: nc, kv: kv}, nil
}

// Load reads one blob from KV bucket.
// Params: blob key.
// Returns: blob body or ErrNotFound.
func (s *NATSStore) Load(_ context.Context, key string) ([]byte, error) {
	entry, err := s.kv.Get(key)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return entry.Value(), nil
}

// Save writes blob unconditionally.
// Params: blob key and body.
// Returns: put error.
func (s *NATSStore) Save(_ context.Context, key string, body []byte) error {
	if _, err := s.kv.Put(key, body); err != nil {
		return fmt.Errorf("put blob: %w", err)
	}
	return nil
}

// Close closes underlying NATS connection.
// Params: none.
// Returns: nil after connection close.
func (s *NATSStore) Close() error {
	s.nc.Close()
	return nil
}
