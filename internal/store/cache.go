package store

import (
	"bytes"
	"sort"
)

// CacheKV buffers writes over a parent KV. Reads see buffered writes first.
// Nothing reaches the parent until Write is called, so discarding a CacheKV
// discards every change made through it.
type CacheKV struct {
	parent KV
	dirty  map[string]*[]byte // nil entry marks a delete
}

func NewCacheKV(parent KV) *CacheKV {
	return &CacheKV{parent: parent, dirty: make(map[string]*[]byte)}
}

func (c *CacheKV) Get(key []byte) ([]byte, error) {
	if v, ok := c.dirty[string(key)]; ok {
		if v == nil {
			return nil, nil
		}
		return bytes.Clone(*v), nil
	}
	return c.parent.Get(key)
}

func (c *CacheKV) Set(key, value []byte) error {
	v := bytes.Clone(value)
	c.dirty[string(key)] = &v
	return nil
}

func (c *CacheKV) Delete(key []byte) error {
	c.dirty[string(key)] = nil
	return nil
}

func (c *CacheKV) Scan(start, end []byte) ([]Pair, error) {
	base, err := c.parent.Scan(start, end)
	if err != nil {
		return nil, err
	}
	merged := make(map[string][]byte, len(base))
	for _, p := range base {
		merged[string(p.Key)] = p.Value
	}
	for k, v := range c.dirty {
		if !inRange([]byte(k), start, end) {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = bytes.Clone(*v)
	}
	out := make([]Pair, 0, len(merged))
	for k, v := range merged {
		out = append(out, Pair{Key: []byte(k), Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out, nil
}

// Changes returns the number of buffered writes and deletes.
func (c *CacheKV) Changes() int { return len(c.dirty) }

// Change is one buffered write. Deleted changes carry no value.
type Change struct {
	Key     []byte
	Value   []byte
	Deleted bool
}

// Pending returns the buffered changes in ascending key order without
// flushing them.
func (c *CacheKV) Pending() []Change {
	keys := c.sortedKeys()
	out := make([]Change, 0, len(keys))
	for _, k := range keys {
		v := c.dirty[k]
		if v == nil {
			out = append(out, Change{Key: []byte(k), Deleted: true})
			continue
		}
		out = append(out, Change{Key: []byte(k), Value: bytes.Clone(*v)})
	}
	return out
}

func (c *CacheKV) sortedKeys() []string {
	keys := make([]string, 0, len(c.dirty))
	for k := range c.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Write flushes buffered changes to the parent in ascending key order and
// resets the buffer.
func (c *CacheKV) Write() error {
	for _, k := range c.sortedKeys() {
		v := c.dirty[k]
		var err error
		if v == nil {
			err = c.parent.Delete([]byte(k))
		} else {
			err = c.parent.Set([]byte(k), *v)
		}
		if err != nil {
			return err
		}
	}
	c.dirty = make(map[string]*[]byte)
	return nil
}
