package domain

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/cosmos/btcutil/bech32"
)

// AddressValidator is the host API used to check caller-supplied addresses.
type AddressValidator interface {
	Validate(s string) (Addr, error)
}

// Bech32Validator accepts lowercase bech32 addresses. An empty Prefix accepts
// any human-readable part.
type Bech32Validator struct {
	Prefix string
}

func (v Bech32Validator) Validate(s string) (Addr, error) {
	if s == "" {
		return "", fmt.Errorf("empty address: %w", ErrValidation)
	}
	if strings.ToLower(s) != s {
		return "", fmt.Errorf("address %q is not normalized: %w", s, ErrValidation)
	}
	hrp, data, err := bech32.Decode(s, 1023)
	if err != nil {
		return "", fmt.Errorf("address %q: %v: %w", s, err, ErrValidation)
	}
	if v.Prefix != "" && hrp != v.Prefix {
		return "", fmt.Errorf("address %q: expected prefix %q: %w", s, v.Prefix, ErrValidation)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("address %q: %v: %w", s, err, ErrValidation)
	}
	if len(raw) == 0 || len(raw) > 255 {
		return "", fmt.Errorf("address %q: bad length %d: %w", s, len(raw), ErrValidation)
	}
	return Addr(s), nil
}

// EncodeAddress renders raw bytes as a bech32 address with the given prefix.
func EncodeAddress(prefix string, raw []byte) (Addr, error) {
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	s, err := bech32.Encode(prefix, conv)
	if err != nil {
		return "", err
	}
	return Addr(s), nil
}

// DeriveAddress hashes the seed parts into a 32-byte bech32 address.
func DeriveAddress(prefix string, parts ...string) (Addr, error) {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return EncodeAddress(prefix, h.Sum(nil))
}
