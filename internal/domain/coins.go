package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	sdkmath "cosmossdk.io/math"
)

var denomRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9/:._-]{1,127}$`)

// Coin is a single denominated amount.
type Coin struct {
	Denom  string       `json:"denom"`
	Amount sdkmath.Uint `json:"amount"`
}

func NewCoin(amount uint64, denom string) Coin {
	return Coin{Denom: denom, Amount: sdkmath.NewUint(amount)}
}

func (c Coin) amount() sdkmath.Uint {
	if c.Amount.IsNil() {
		return sdkmath.ZeroUint()
	}
	return c.Amount
}

func (c Coin) String() string {
	return c.amount().String() + c.Denom
}

// Coins is a set of coins. Operations treat it as a multiset keyed by denom;
// Normalize produces the canonical form (sorted, merged, no zero amounts).
type Coins []Coin

func NewCoins(coins ...Coin) Coins {
	return Coins(coins).Normalize()
}

func (cs Coins) Normalize() Coins {
	sums := make(map[string]sdkmath.Uint, len(cs))
	for _, c := range cs {
		cur, ok := sums[c.Denom]
		if !ok {
			cur = sdkmath.ZeroUint()
		}
		sums[c.Denom] = cur.Add(c.amount())
	}
	out := make(Coins, 0, len(sums))
	for denom, amt := range sums {
		if amt.IsZero() {
			continue
		}
		out = append(out, Coin{Denom: denom, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out
}

// Validate checks denominations and requires at least one positive amount.
func (cs Coins) Validate() error {
	if len(cs) == 0 {
		return fmt.Errorf("empty coin set: %w", ErrValidation)
	}
	seen := make(map[string]struct{}, len(cs))
	for _, c := range cs {
		if !denomRe.MatchString(c.Denom) {
			return fmt.Errorf("invalid denom %q: %w", c.Denom, ErrValidation)
		}
		if _, dup := seen[c.Denom]; dup {
			return fmt.Errorf("duplicate denom %q: %w", c.Denom, ErrValidation)
		}
		seen[c.Denom] = struct{}{}
		if c.amount().IsZero() {
			return fmt.Errorf("zero amount for %q: %w", c.Denom, ErrValidation)
		}
	}
	return nil
}

func (cs Coins) AmountOf(denom string) sdkmath.Uint {
	total := sdkmath.ZeroUint()
	for _, c := range cs {
		if c.Denom == denom {
			total = total.Add(c.amount())
		}
	}
	return total
}

// Covers reports whether cs holds at least the amount of every denom in price.
func (cs Coins) Covers(price Coins) bool {
	for _, p := range price.Normalize() {
		if cs.AmountOf(p.Denom).LT(p.amount()) {
			return false
		}
	}
	return true
}

func (cs Coins) Equal(other Coins) bool {
	a, b := cs.Normalize(), other.Normalize()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Denom != b[i].Denom || !a[i].Amount.Equal(b[i].Amount) {
			return false
		}
	}
	return true
}

// Sub returns cs minus other. It fails with ErrInsufficientFunds when cs does
// not cover other.
func (cs Coins) Sub(other Coins) (Coins, error) {
	if !cs.Covers(other) {
		return nil, fmt.Errorf("%s < %s: %w", cs, other, ErrInsufficientFunds)
	}
	out := make(Coins, 0, len(cs))
	for _, c := range cs.Normalize() {
		out = append(out, Coin{Denom: c.Denom, Amount: c.Amount.Sub(other.AmountOf(c.Denom))})
	}
	return out.Normalize(), nil
}

func (cs Coins) IsZero() bool {
	return len(cs.Normalize()) == 0
}

func (cs Coins) String() string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ",")
}
