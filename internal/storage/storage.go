// internal/storage/storage.go
//
// Local key-value persistence for session flags.
//
// Context
// -------
// The app keeps a handful of flags (authenticated, onboarding seen, current
// email) in a process-wide key-value store.  KV is the port every caller
// uses.  It sits on top of a Backend that only moves raw strings, and adds
// the value rules:
//
//   - strings are stored as-is, anything else is JSON-encoded,
//   - Get never fails: a missing key, a backend read error, or a JSON decode
//     failure all yield nil, and the failure is logged,
//   - writes and removals return backend errors to the caller.
//
// There is no transaction spanning two Set calls.  A crash between them
// leaves the first write in place.
//
// Notes
// -----
//   - RemoveMany must be atomic per backend call.
//   - Oxford commas, two spaces after periods.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/forma/internal/metrics"
)

// Storage keys shared with the rest of the app.
const (
	KeyHabits            = "habits"
	KeyIsAuthenticated   = "isAuthenticated"
	KeyHasSeenOnboarding = "hasSeenOnboarding"
	KeyShouldLogout      = "shouldLogout"
	KeyUserEmail         = "userEmail"
	KeyIsPro             = "isPro"
)

// ErrNotFound is returned by Backend.Fetch for a missing key.
var ErrNotFound = errors.New("storage: key not found")

// Backend moves raw string values.  Implementations must be safe for
// concurrent use.
type Backend interface {
	Put(ctx context.Context, key, value string) error
	Fetch(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
}

// Store is the key-value port used by the credential service.
type Store interface {
	Set(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string, parseJSON bool) any
	Remove(ctx context.Context, key string) error
	RemoveMany(ctx context.Context, keys ...string) error
}

// KV implements Store over a Backend.
type KV struct {
	b Backend
}

// Compile-time assertion: *KV satisfies Store.
var _ Store = (*KV)(nil)

// New wraps b.
func New(b Backend) *KV { return &KV{b: b} }

// Set stores value under key.  Strings are written raw; other values are
// JSON-encoded.
func (kv *KV) Set(ctx context.Context, key string, value any) error {
	raw, ok := value.(string)
	if !ok {
		j, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("storage: encode %s: %w", key, err)
		}
		raw = string(j)
	}
	if err := kv.b.Put(ctx, key, raw); err != nil {
		metrics.StorageErrorsTotal.WithLabelValues("set").Inc()
		zap.S().Errorw("storage set failed", "key", key, "err", err)
		return fmt.Errorf("storage: set %s: %w", key, err)
	}
	return nil
}

// Get returns the value for key, or nil.  With parseJSON the raw value is
// decoded into an `any` (strings, float64, bool, maps, or slices); otherwise
// the raw string is returned.
func (kv *KV) Get(ctx context.Context, key string, parseJSON bool) any {
	raw, ok := kv.fetch(ctx, key)
	if !ok {
		return nil
	}
	if !parseJSON {
		return raw
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		zap.S().Warnw("storage decode failed", "key", key, "err", err)
		return nil
	}
	return v
}

// GetString returns the raw value for key.  ok is false when the key is
// missing or unreadable.
func (kv *KV) GetString(ctx context.Context, key string) (string, bool) {
	return kv.fetch(ctx, key)
}

// Remove deletes key.  Removing a missing key is not an error.
func (kv *KV) Remove(ctx context.Context, key string) error {
	if err := kv.b.Delete(ctx, key); err != nil {
		metrics.StorageErrorsTotal.WithLabelValues("remove").Inc()
		zap.S().Errorw("storage remove failed", "key", key, "err", err)
		return fmt.Errorf("storage: remove %s: %w", key, err)
	}
	return nil
}

// RemoveMany deletes every key in one backend call.
func (kv *KV) RemoveMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := kv.b.DeleteMany(ctx, keys); err != nil {
		metrics.StorageErrorsTotal.WithLabelValues("remove_many").Inc()
		zap.S().Errorw("storage remove many failed", "keys", keys, "err", err)
		return fmt.Errorf("storage: remove %v: %w", keys, err)
	}
	return nil
}

func (kv *KV) fetch(ctx context.Context, key string) (string, bool) {
	raw, err := kv.b.Fetch(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return "", false
	case err != nil:
		metrics.StorageErrorsTotal.WithLabelValues("get").Inc()
		zap.S().Errorw("storage get failed", "key", key, "err", err)
		return "", false
	}
	return raw, true
}
