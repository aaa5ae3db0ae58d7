package blacklist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"buffwatch/internal/store"
)

// Blacklist is the set of territories where evaluation is skipped.
type Blacklist struct {
	zones map[uint32]struct{}
}

type blob struct {
	Zones []uint32 `json:"zones"`
}

// New creates empty blacklist.
func New() *Blacklist {
	return &Blacklist{zones: make(map[uint32]struct{})}
}

// Contains reports whether territory is blacklisted.
func (b *Blacklist) Contains(territory uint32) bool {
	_, ok := b.zones[territory]
	return ok
}

// Add inserts territory.
// Params: territory id.
// Returns: true when set changed.
func (b *Blacklist) Add(territory uint32) bool {
	if b.Contains(territory) {
		return false
	}
	b.zones[territory] = struct{}{}
	return true
}

// Remove deletes territory.
// Params: territory id.
// Returns: true when set changed.
func (b *Blacklist) Remove(territory uint32) bool {
	if !b.Contains(territory) {
		return false
	}
	delete(b.zones, territory)
	return true
}

// List returns territories in ascending order.
func (b *Blacklist) List() []uint32 {
	out := make([]uint32, 0, len(b.zones))
	for zone := range b.zones {
		out = append(out, zone)
	}
	slices.Sort(out)
	return out
}

// Marshal encodes blacklist blob.
func (b *Blacklist) Marshal() ([]byte, error) {
	body, err := json.Marshal(blob{Zones: b.List()})
	if err != nil {
		return nil, fmt.Errorf("encode blacklist: %w", err)
	}
	return body, nil
}

// Decode replaces contents from blob.
// Params: encoded blacklist.
// Returns: decode error; set is emptied on failure.
func (b *Blacklist) Decode(body []byte) error {
	clear(b.zones)
	var decoded blob
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("decode blacklist: %w", err)
	}
	for _, zone := range decoded.Zones {
		b.zones[zone] = struct{}{}
	}
	return nil
}

// Load restores blacklist from store; absent blob yields empty set.
func (b *Blacklist) Load(ctx context.Context, st store.Store) error {
	body, err := st.Load(ctx, store.BlacklistBlob)
	if err != nil {
		clear(b.zones)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load blacklist: %w", err)
	}
	return b.Decode(body)
}

// Save persists blacklist into store.
func (b *Blacklist) Save(ctx context.Context, st store.Store) error {
	body, err := b.Marshal()
	if err != nil {
		return err
	}
	if err := st.Save(ctx, store.BlacklistBlob, body); err != nil {
		return fmt.Errorf("save blacklist: %w", err)
	}
	return nil
}
