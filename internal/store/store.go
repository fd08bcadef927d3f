// Package store is the contract the retail core expects from the external realtime
// database: full-subtree subscriptions, one-shot reads, atomic multi-path updates and
// single-path writes. The core never gets a read-modify-write primitive from it.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Store is implemented by every driver (memory, redis, postgres).
type Store interface {
	// Subscribe delivers the full subtree at path once, then again after every change
	// beneath it. A non-nil Event.Err is fatal; the channel is closed after it and when
	// ctx is cancelled.
	Subscribe(ctx context.Context, path string) (<-chan Event, error)
	// ReadOnce returns the value at path, or nil when nothing is stored there.
	ReadOnce(ctx context.Context, path string) (interface{}, error)
	// AtomicUpdate writes every path in updates or none of them. A nil value removes
	// the path.
	AtomicUpdate(ctx context.Context, updates map[string]interface{}) error
	Write(ctx context.Context, path string, value interface{}) error
	Remove(ctx context.Context, path string) error
	// Append stores value under a new generated key in collection and returns the key.
	Append(ctx context.Context, collection string, value map[string]interface{}) (string, error)
}

// Event is one subscription delivery.
type Event struct {
	Data map[string]interface{}
	Err  error
}

// Placeholder values are resolved by the driver at write time.
type Placeholder string

// ServerTimestamp resolves to the store clock in Unix milliseconds.
const ServerTimestamp Placeholder = ".sv:timestamp"

// Join builds a store path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Split returns the non-empty segments of path.
func Split(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// related reports whether a change at one path is visible from the other.
func related(a, b string) bool {
	return a == b || strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// NewKey returns a time-ordered key for Append.
func NewKey() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func hasPlaceholder(v interface{}) bool {
	switch t := v.(type) {
	case Placeholder:
		return true
	case map[string]interface{}:
		for _, c := range t {
			if hasPlaceholder(c) {
				return true
			}
		}
	case []interface{}:
		for _, c := range t {
			if hasPlaceholder(c) {
				return true
			}
		}
	}
	return false
}

func resolve(v interface{}, nowMillis int64) interface{} {
	switch t := v.(type) {
	case Placeholder:
		if t == ServerTimestamp {
			return nowMillis
		}
		return string(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, c := range t {
			out[k] = resolve(c, nowMillis)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, c := range t {
			out[i] = resolve(c, nowMillis)
		}
		return out
	default:
		return v
	}
}

// encode marshals a value the way every driver persists it.
func encode(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("store: encode value: %w", err)
	}
	return string(b), nil
}

// decode unmarshals a persisted value keeping numbers as json.Number.
func decode(s string) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("store: decode value: %w", err)
	}
	return v, nil
}

// normalize converts any JSON-encodable Go value into the generic JSON tree drivers hand
// back to callers.
func normalize(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	s, err := encode(v)
	if err != nil {
		return nil, err
	}
	return decode(s)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsMap returns v as a JSON object, or nil when it is anything else.
func AsMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}
