// Package repository declares the persistence ports the contract host runs
// against. Every backend executes a call inside one transaction so state
// writes and outbox rows commit together.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrRetryable marks a transaction aborted by a concurrent writer. The
	// whole unit of work may be run again.
	ErrRetryable = errors.New("retryable transaction failure")
)

type TxOptions struct {
	ReadOnly bool
}

type Instances interface {
	// Create fails with ErrConflict when the address is taken.
	Create(ctx context.Context, inst domain.Instance) error
	// Get fails with ErrNotFound for an unknown address.
	Get(ctx context.Context, addr domain.Addr) (*domain.Instance, error)
	// Touch records a committed call at the given height.
	Touch(ctx context.Context, addr domain.Addr, height uint64, at time.Time) error
}

type State interface {
	// View returns the contract's key/value state as seen by the transaction.
	View(ctx context.Context, addr domain.Addr) store.KV
	Apply(ctx context.Context, addr domain.Addr, changes []store.Change) error
}

type Outbox interface {
	Add(ctx context.Context, msgs ...domain.OutboxMessage) error
	// Pending returns unsent messages oldest first.
	Pending(ctx context.Context, limit int) ([]domain.OutboxMessage, error)
	MarkSent(ctx context.Context, ids ...uuid.UUID) error
}

// Tx is the set of repositories bound to one transaction.
type Tx interface {
	Instances() Instances
	State() State
	Outbox() Outbox
}

type TxRunner interface {
	RunTx(ctx context.Context, opts *TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
