// Package outbox relays messages committed by contract calls to the broker.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/repository"
	"github.com/kirinyoku/seat-market/internal/uow"
)

type Publisher interface {
	Publish(ctx context.Context, m domain.OutboxMessage) error
}

type Config struct {
	Interval  time.Duration
	BatchSize int
}

type Relay struct {
	uow       *uow.UoW
	publisher Publisher
	logger    *slog.Logger
	cfg       Config
	wake      chan struct{}
}

func New(runner repository.TxRunner, publisher Publisher, logger *slog.Logger, cfg Config) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	return &Relay{
		uow:       uow.NewUoW(runner),
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		wake:      make(chan struct{}, 1),
	}
}

// Notify asks the relay to run a pass now. It never blocks.
func (r *Relay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run relays pending messages until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-r.wake:
		}

		for {
			n, err := r.Flush(ctx)
			if err != nil {
				r.logger.Error("outbox relay failed", "error", err)
				break
			}
			if n < r.cfg.BatchSize {
				break
			}
		}
	}
}

// Flush publishes one batch of pending messages and marks the published
// ones as sent.
//
// Parameters:
//   - ctx: request-scoped context.
//
// Returns:
//   - int: the number of messages published.
//   - error: the first publish or repository failure; messages published
//     before it are still marked sent.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	const op = "service.outbox.Flush"

	var (
		sent   int
		pubErr error
	)

	err := r.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Tx,
		_ func(uow.AfterCommit),
	) error {
		pending, err := tx.Outbox().Pending(ctx, r.cfg.BatchSize)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(pending))
		pubErr = nil
		for _, m := range pending {
			if err := r.publisher.Publish(ctx, m); err != nil {
				pubErr = err
				break
			}
			ids = append(ids, m.ID)
		}

		if err := tx.Outbox().MarkSent(ctx, ids...); err != nil {
			return err
		}

		sent = len(ids)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	if pubErr != nil {
		return sent, fmt.Errorf("%s:%w", op, pubErr)
	}

	return sent, nil
}
