package store

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound indicates absent key.
var ErrNotFound = errors.New("not found")

// Store persists opaque per-character blobs.
// Params: key/value operations over JSON bodies.
// Returns: backend persistence behavior.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, body []byte) error
	Close() error
}

// Key builds a dot-joined blob key.
// Params: key parts such as "module", "tanks".
// Returns: key restricted to [a-z0-9_-] segments.
func Key(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		segments = append(segments, sanitize(part))
	}
	return strings.Join(segments, ".")
}

const (
	// SystemBlob is the global settings blob name.
	SystemBlob = "system"
	// BlacklistBlob is the zone blacklist blob name.
	BlacklistBlob = "blacklist"
)

// ModuleBlob returns blob name of one module config.
func ModuleBlob(module string) string {
	return Key("module", module)
}

// Scoped prefixes every key with one character segment.
// Params: shared backend and character name.
// Returns: character-scoped view; Close leaves backend open.
type Scoped struct {
	inner  Store
	prefix string
}

// Scope creates character-scoped store view.
func Scope(inner Store, character string) *Scoped {
	return &Scoped{inner: inner, prefix: sanitize(character) + "."}
}

// Load reads scoped key.
func (s *Scoped) Load(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Load(ctx, s.prefix+key)
}

// Save writes scoped key.
func (s *Scoped) Save(ctx context.Context, key string, body []byte) error {
	return s.inner.Save(ctx, s.prefix+key, body)
}

// Close is a no-op; backend lifecycle belongs to its creator.
func (s *Scoped) Close() error {
	return nil
}

func sanitize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "_"
	}
	var builder strings.Builder
	builder.Grow(len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteByte('_')
		}
	}
	return builder.String()
}
