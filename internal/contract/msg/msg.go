// Package msg decodes the tagged-union JSON messages contracts accept.
package msg

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/kirinyoku/seat-market/internal/domain"
)

// Empty decodes the `{}` payload of argument-less variants.
type Empty struct{}

// UnknownTagError reports a variant name the receiving union does not define.
type UnknownTagError struct {
	Tag string
}

func (e UnknownTagError) Error() string {
	return fmt.Sprintf("unknown message variant %q", e.Tag)
}

func (e UnknownTagError) Unwrap() error { return domain.ErrValidation }

// Tag splits a single-key JSON object into its key and body.
func Tag(raw json.RawMessage) (string, json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", nil, fmt.Errorf("decode message: %v: %w", err, domain.ErrValidation)
	}
	if len(obj) != 1 {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", nil, fmt.Errorf("message must carry exactly one variant, got [%s]: %w",
			strings.Join(keys, ","), domain.ErrValidation)
	}
	for k, v := range obj {
		return k, v, nil
	}
	return "", nil, nil
}

// Decode unmarshals body into dst, classifying failures as validation errors.
func Decode(body json.RawMessage, dst any) error {
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, domain.ErrValidation)
	}
	return nil
}

// DecodeUnion decodes a single-variant message into dst, a struct with one
// field per variant. Messages carrying zero or several variants, or a variant
// dst does not define, fail with a validation error.
func DecodeUnion(raw json.RawMessage, dst any) error {
	tag, _, err := Tag(raw)
	if err != nil {
		return err
	}
	if !hasVariant(dst, tag) {
		return UnknownTagError{Tag: tag}
	}
	return Decode(raw, dst)
}

func hasVariant(dst any, tag string) bool {
	t := reflect.TypeOf(dst)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == tag {
			return true
		}
	}
	return false
}

// Unknown builds the error for a message whose variant the receiver did not
// match. Malformed messages yield the decode error instead.
func Unknown(raw json.RawMessage) error {
	tag, _, err := Tag(raw)
	if err != nil {
		return err
	}
	return UnknownTagError{Tag: tag}
}
