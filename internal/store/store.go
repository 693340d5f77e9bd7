package store

import (
	"context"
	"encoding/json"
	"fmt"

	"meetingbridge/pkg/interfaces"
	"meetingbridge/pkg/types"
)

// Collection is the key-value collection holding session records
const Collection = "meetings"

// SessionStore persists one SessionRecord per content item
// ARCHITECTURAL DISCOVERY: The store only encodes and decodes; it never
// merges records. Conditional writes are handed down to the key-value
// backend so concurrent creators cannot overwrite each other
type SessionStore struct {
	kv interfaces.KeyValueStore
}

// New creates a session store over a key-value collection
func New(kv interfaces.KeyValueStore) *SessionStore {
	return &SessionStore{kv: kv}
}

// Get loads the record for key
func (s *SessionStore) Get(ctx context.Context, key string) (*types.SessionRecord, bool, error) {
	raw, found, err := s.kv.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	rec, err := decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("session record %s: %w", key, err)
	}
	return rec, true, nil
}

// Set writes the record unconditionally
func (s *SessionStore) Set(ctx context.Context, key string, rec types.SessionRecord) error {
	raw, err := encode(rec)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, raw)
}

// Create writes the record only if no record exists for key
func (s *SessionStore) Create(ctx context.Context, key string, rec types.SessionRecord) (bool, error) {
	raw, err := encode(rec)
	if err != nil {
		return false, err
	}
	return s.kv.SetIfAbsent(ctx, key, raw)
}

// Replace swaps old for new only if old is still what is stored
func (s *SessionStore) Replace(ctx context.Context, key string, old, new types.SessionRecord) (bool, error) {
	oldRaw, err := encode(old)
	if err != nil {
		return false, err
	}
	newRaw, err := encode(new)
	if err != nil {
		return false, err
	}
	return s.kv.CompareAndSwap(ctx, key, oldRaw, newRaw)
}

// Delete removes the record and reports whether one existed
func (s *SessionStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.kv.Delete(ctx, key)
}

// Has reports whether a record exists for key
func (s *SessionStore) Has(ctx context.Context, key string) (bool, error) {
	return s.kv.Has(ctx, key)
}

// TECHNICAL DISCOVERY: encoding/json output is deterministic for a struct
// value, which is what makes Replace's byte comparison sound
func encode(rec types.SessionRecord) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session record: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*types.SessionRecord, error) {
	var rec types.SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	return &rec, nil
}
