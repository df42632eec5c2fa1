// Package store defines the key/value view a contract call runs against and
// the buffered view that makes a call's writes all-or-nothing.
package store

import "bytes"

// Pair is one key/value entry returned by Scan.
type Pair struct {
	Key   []byte
	Value []byte
}

// KV is the persisted state of a single contract instance.
//
// Get returns a nil value and no error for absent keys. Scan returns entries
// in ascending byte order of key, start inclusive and end exclusive; a nil
// bound is unbounded.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Scan(start, end []byte) ([]Pair, error)
}

// PrefixEnd returns the smallest key greater than every key with prefix p,
// or nil when no such key exists.
func PrefixEnd(p []byte) []byte {
	end := bytes.Clone(p)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func inRange(key, start, end []byte) bool {
	if start != nil && bytes.Compare(key, start) < 0 {
		return false
	}
	if end != nil && bytes.Compare(key, end) >= 0 {
		return false
	}
	return true
}
