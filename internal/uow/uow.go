package uow

import (
	"context"
	"errors"

	"github.com/kirinyoku/seat-market/internal/repository"
)

// DefaultAttempts is how many times a unit of work runs before a retryable
// failure is returned to the caller.
const DefaultAttempts = 3

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work.
type UoW struct {
	runner   repository.TxRunner
	attempts int
}

func NewUoW(runner repository.TxRunner) *UoW {
	return &UoW{runner: runner, attempts: DefaultAttempts}
}

// WithAttempts returns a copy that tries a unit of work up to n times.
func (u *UoW) WithAttempts(n int) *UoW {
	cp := *u
	if n < 1 {
		n = 1
	}
	cp.attempts = n
	return &cp
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts runs fn inside the transaction with the given options. After a
// successful commit, it executes all after-commit hooks. A run that fails
// with repository.ErrRetryable is discarded together with its hooks and
// started again.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *repository.TxOptions,
	fn func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error,
) error {
	var (
		hooks []AfterCommit
		err   error
	)

	for attempt := 0; attempt < u.attempts; attempt++ {
		hooks = hooks[:0]

		err = u.runner.RunTx(ctx, opts, func(ctx context.Context, tx repository.Tx) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil || !errors.Is(err, repository.ErrRetryable) || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
