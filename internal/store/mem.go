package store

import (
	"bytes"
	"sort"
)

// MemKV is an in-memory KV. It is not safe for concurrent use; callers
// serialize access the same way the host serializes contract calls.
type MemKV struct {
	data map[string][]byte
}

func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string][]byte)}
}

func (m *MemKV) Get(key []byte) ([]byte, error) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, nil
	}
	return bytes.Clone(v), nil
}

func (m *MemKV) Set(key, value []byte) error {
	m.data[string(key)] = bytes.Clone(value)
	return nil
}

func (m *MemKV) Delete(key []byte) error {
	delete(m.data, string(key))
	return nil
}

func (m *MemKV) Scan(start, end []byte) ([]Pair, error) {
	out := make([]Pair, 0)
	for k, v := range m.data {
		if inRange([]byte(k), start, end) {
			out = append(out, Pair{Key: []byte(k), Value: bytes.Clone(v)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out, nil
}

// Clone returns a deep copy, used by the memory backend to roll back.
func (m *MemKV) Clone() *MemKV {
	cp := NewMemKV()
	for k, v := range m.data {
		cp.data[k] = bytes.Clone(v)
	}
	return cp
}

func (m *MemKV) Len() int { return len(m.data) }

// Apply writes changes in order.
func (m *MemKV) Apply(changes []Change) {
	for _, c := range changes {
		if c.Deleted {
			delete(m.data, string(c.Key))
			continue
		}
		m.data[string(c.Key)] = bytes.Clone(c.Value)
	}
}
