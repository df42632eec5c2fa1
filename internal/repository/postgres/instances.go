package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/repository"
)

type InstanceRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *InstanceRepo) With(db DB) *InstanceRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *InstanceRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create registers a new contract instance.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - inst: the instance record; Height is stored as given.
//
// Returns:
//   - error: repository.ErrConflict if the address is already taken.
func (r *InstanceRepo) Create(ctx context.Context, inst domain.Instance) error {
	const op = "postgres.InstanceRepo.Create"

	_, err := r.handle().Exec(ctx,
		`INSERT INTO contracts (address, kind, creator, height, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		string(inst.Address), inst.Kind, string(inst.Creator), int64(inst.Height), inst.CreatedAt, inst.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Get retrieves a contract instance by address.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - addr: address of the contract.
//
// Returns:
//   - *domain.Instance: the instance when found.
//   - error: repository.ErrNotFound if no contract has that address.
func (r *InstanceRepo) Get(ctx context.Context, addr domain.Addr) (*domain.Instance, error) {
	const op = "postgres.InstanceRepo.Get"

	var (
		inst    domain.Instance
		address string
		creator string
		height  int64
	)
	err := r.handle().QueryRow(ctx,
		`SELECT address, kind, creator, height, created_at, updated_at
		 FROM contracts WHERE address = $1`,
		string(addr),
	).Scan(&address, &inst.Kind, &creator, &height, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	inst.Address = domain.Addr(address)
	inst.Creator = domain.Addr(creator)
	inst.Height = uint64(height)

	return &inst, nil
}

func (r *InstanceRepo) Touch(ctx context.Context, addr domain.Addr, height uint64, at time.Time) error {
	const op = "postgres.InstanceRepo.Touch"

	tag, err := r.handle().Exec(ctx,
		`UPDATE contracts SET height = $2, updated_at = $3 WHERE address = $1`,
		string(addr), int64(height), at,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
