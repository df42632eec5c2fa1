// Package storage provides typed records over a contract's KV state. Values
// are stored as JSON.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

// Item is a single record under a fixed key.
type Item[T any] struct {
	key []byte
}

func NewItem[T any](key string) Item[T] {
	return Item[T]{key: []byte(key)}
}

func (i Item[T]) Key() string { return string(i.key) }

// Load fails with domain.ErrNotFound when the record is absent.
func (i Item[T]) Load(kv store.KV) (T, error) {
	v, ok, err := i.May(kv)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, fmt.Errorf("%s: %w", i.key, domain.ErrNotFound)
	}
	return v, nil
}

func (i Item[T]) May(kv store.KV) (T, bool, error) {
	var v T
	b, err := kv.Get(i.key)
	if err != nil || b == nil {
		return v, false, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", i.key, err)
	}
	return v, true, nil
}

func (i Item[T]) Save(kv store.KV, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", i.key, err)
	}
	return kv.Set(i.key, b)
}

func (i Item[T]) Remove(kv store.KV) error {
	return kv.Delete(i.key)
}

// Entry is one key/value pair of a Map.
type Entry[T any] struct {
	Key   string
	Value T
}

// Map is a namespace of records keyed by string. Keys are length-prefixed by
// namespace so that no namespace is a prefix of another.
type Map[T any] struct {
	ns     string
	prefix []byte
}

func NewMap[T any](namespace string) Map[T] {
	p := make([]byte, 2, 2+len(namespace))
	binary.BigEndian.PutUint16(p, uint16(len(namespace)))
	p = append(p, namespace...)
	return Map[T]{ns: namespace, prefix: p}
}

func (m Map[T]) Namespace() string { return m.ns }

func (m Map[T]) key(k string) []byte {
	out := make([]byte, 0, len(m.prefix)+len(k))
	out = append(out, m.prefix...)
	return append(out, k...)
}

func (m Map[T]) Load(kv store.KV, k string) (T, error) {
	v, ok, err := m.May(kv, k)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, fmt.Errorf("%s %q: %w", m.ns, k, domain.ErrNotFound)
	}
	return v, nil
}

func (m Map[T]) May(kv store.KV, k string) (T, bool, error) {
	var v T
	b, err := kv.Get(m.key(k))
	if err != nil || b == nil {
		return v, false, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, false, fmt.Errorf("decode %s %q: %w", m.ns, k, err)
	}
	return v, true, nil
}

func (m Map[T]) Has(kv store.KV, k string) (bool, error) {
	b, err := kv.Get(m.key(k))
	return b != nil, err
}

func (m Map[T]) Save(kv store.KV, k string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %q: %w", m.ns, k, err)
	}
	return kv.Set(m.key(k), b)
}

func (m Map[T]) Remove(kv store.KV, k string) error {
	return kv.Delete(m.key(k))
}

// Range returns entries in ascending key order strictly after startAfter
// (when non-nil). A limit of zero returns every entry.
func (m Map[T]) Range(kv store.KV, startAfter *string, limit int) ([]Entry[T], error) {
	start := m.prefix
	if startAfter != nil {
		start = append(m.key(*startAfter), 0)
	}
	pairs, err := kv.Scan(start, store.PrefixEnd(m.prefix))
	if err != nil {
		return nil, err
	}
	out := make([]Entry[T], 0, len(pairs))
	for _, p := range pairs {
		if limit > 0 && len(out) == limit {
			break
		}
		var v T
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", m.ns, err)
		}
		out = append(out, Entry[T]{Key: string(p.Key[len(m.prefix):]), Value: v})
	}
	return out, nil
}

// Count returns the number of entries in the namespace.
func (m Map[T]) Count(kv store.KV) (int, error) {
	pairs, err := kv.Scan(m.prefix, store.PrefixEnd(m.prefix))
	if err != nil {
		return 0, err
	}
	return len(pairs), nil
}

const (
	DefaultLimit = 10
	MaxLimit     = 30
)

// Limit clamps a caller-supplied page size.
func Limit(limit *uint32) int {
	if limit == nil || *limit == 0 {
		return DefaultLimit
	}
	if *limit > MaxLimit {
		return MaxLimit
	}
	return int(*limit)
}
