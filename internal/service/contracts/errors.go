package contracts

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/seat-market/internal/domain"
)

var (
	ErrContractNotFound = errors.New("contract not found")
	ErrUnknownKind      = errors.New("unknown contract kind")
	ErrRateLimited      = errors.New("rate limited")
)

type ContractNotFoundError struct {
	Address domain.Addr
}

func (e ContractNotFoundError) Error() string {
	return fmt.Sprintf("contract not found: %s", e.Address)
}

func (e ContractNotFoundError) Unwrap() error { return ErrContractNotFound }

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e RateLimitedError) Unwrap() error { return ErrRateLimited }
