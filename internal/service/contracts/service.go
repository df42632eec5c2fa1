package contracts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seat-market/internal/contract"
	"github.com/kirinyoku/seat-market/internal/contract/hub"
	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/contract/seat"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/repository"
	"github.com/kirinyoku/seat-market/internal/store"
	"github.com/kirinyoku/seat-market/internal/uow"
)

const DefaultAddressPrefix = "burnt"

const (
	ActionInstantiate = "instantiate"
	ActionExecute     = "execute"
	ActionMigrate     = "migrate"
)

// QueryCache caches query results per contract until the contract changes.
type QueryCache interface {
	GetOrSetQuery(
		ctx context.Context,
		addr domain.Addr,
		key string,
		ttl time.Duration,
		loader func(ctx context.Context) (json.RawMessage, error),
	) (json.RawMessage, error)
	InvalidateContract(ctx context.Context, addr domain.Addr) error
}

// EventPublisher fans out committed contract changes.
type EventPublisher interface {
	PublishContractChanged(ctx context.Context, addr domain.Addr, height uint64, action string, events []response.Event) error
}

type Limiter interface {
	Allow(ctx context.Context, suffix string) (allowed bool, current int64, retryAfter time.Duration, err error)
}

// Notifier is woken after a commit that queued outbound messages.
type Notifier interface {
	Notify()
}

type Config struct {
	ChainID       string
	AddressPrefix string
	QueryTTL      time.Duration
	// Now is the host clock used for block time. Defaults to time.Now.
	Now func() time.Time
}

// Result is what a committed call hands back to the caller.
type Result struct {
	Contract domain.Addr        `json:"contract"`
	Height   uint64             `json:"height"`
	Response *response.Response `json:"response"`
}

type Service struct {
	uow     *uow.UoW
	kinds   map[string]contract.Contract
	api     domain.AddressValidator
	cache   QueryCache
	events  EventPublisher
	limiter Limiter
	relay   Notifier
	cfg     Config
}

func New(
	runner repository.TxRunner,
	cache QueryCache,
	events EventPublisher,
	limiter Limiter,
	relay Notifier,
	cfg Config,
) *Service {
	if cfg.ChainID == "" {
		cfg.ChainID = "seat-market"
	}

	if cfg.AddressPrefix == "" {
		cfg.AddressPrefix = DefaultAddressPrefix
	}

	if cfg.QueryTTL <= 0 {
		cfg.QueryTTL = 30 * time.Second
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		uow: uow.NewUoW(runner),
		kinds: map[string]contract.Contract{
			domain.KindSeat: seat.New(),
			domain.KindHub:  hub.New(),
		},
		api:     domain.Bech32Validator{Prefix: cfg.AddressPrefix},
		cache:   cache,
		events:  events,
		limiter: limiter,
		relay:   relay,
		cfg:     cfg,
	}
}

// Instantiate creates a new contract of the given kind at a fresh address.
//
// Parameters:
//   - ctx: request-scoped context.
//   - kind: contract kind, domain.KindSeat or domain.KindHub.
//   - sender: address of the instantiating account.
//   - funds: coins attached to the call.
//   - msg: the contract's instantiate message.
//
// Returns:
//   - *Result: the new contract address and the merged response.
//   - error: contracts.ErrUnknownKind if the kind is not supported.
//   - error: a domain error kind if the contract rejects the message.
func (s *Service) Instantiate(
	ctx context.Context,
	kind string,
	sender domain.Addr,
	funds domain.Coins,
	msg json.RawMessage,
) (*Result, error) {
	const op = "service.contracts.Instantiate"

	c, ok := s.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrUnknownKind)
	}

	info, err := s.messageInfo(sender, funds)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	addr, err := domain.DeriveAddress(s.cfg.AddressPrefix, kind, string(sender), uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var result *Result

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Tx,
		after func(uow.AfterCommit),
	) error {
		now := s.cfg.Now()
		inst := domain.Instance{
			Address:   addr,
			Kind:      kind,
			Creator:   info.Sender,
			Height:    1,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := tx.Instances().Create(ctx, inst); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		res, err := s.run(ctx, tx, inst, now, func(deps contract.Deps, env domain.Env) (*response.Response, error) {
			return c.Instantiate(deps, env, info, msg)
		})
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		result = &Result{Contract: addr, Height: inst.Height, Response: res}
		s.afterCommit(after, addr, inst.Height, ActionInstantiate, res)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Execute runs an execute message against an existing contract.
//
// Parameters:
//   - ctx: request-scoped context.
//   - addr: address of the contract.
//   - sender: address of the calling account.
//   - funds: coins attached to the call.
//   - msg: the contract's execute message.
//
// Returns:
//   - *Result: the height the call committed at and the merged response.
//   - error: contracts.ErrContractNotFound if no contract has that address.
//   - error: contracts.ErrRateLimited if the sender exceeded the rate limit.
//   - error: a domain error kind if the contract rejects the message.
func (s *Service) Execute(
	ctx context.Context,
	addr domain.Addr,
	sender domain.Addr,
	funds domain.Coins,
	msg json.RawMessage,
) (*Result, error) {
	const op = "service.contracts.Execute"

	info, err := s.messageInfo(sender, funds)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if s.limiter != nil {
		ok, _, retry, err := s.limiter.Allow(ctx, string(info.Sender))
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w", op, RateLimitedError{RetryAfter: retry})
		}
	}

	return s.mutate(ctx, op, addr, ActionExecute, func(c contract.Contract, deps contract.Deps, env domain.Env) (*response.Response, error) {
		return c.Execute(deps, env, info, msg)
	})
}

// Migrate upgrades a contract's stored version to the running code and
// rewrites its owner.
//
// Parameters:
//   - ctx: request-scoped context.
//   - addr: address of the contract.
//   - msg: the migrate message carrying the new owner.
//
// Returns:
//   - *Result: the height the migration committed at.
//   - error: contracts.ErrContractNotFound if no contract has that address.
//   - error: domain.ErrInvalidState if the stored version is not older.
func (s *Service) Migrate(ctx context.Context, addr domain.Addr, msg json.RawMessage) (*Result, error) {
	const op = "service.contracts.Migrate"

	return s.mutate(ctx, op, addr, ActionMigrate, func(c contract.Contract, deps contract.Deps, env domain.Env) (*response.Response, error) {
		return c.Migrate(deps, env, msg)
	})
}

// Query runs a read-only query, utilizing the query cache when configured.
// Queries answered from block time are always evaluated fresh.
//
// Parameters:
//   - ctx: request-scoped context.
//   - addr: address of the contract.
//   - msg: the contract's query message.
//
// Returns:
//   - json.RawMessage: the encoded query result.
//   - error: contracts.ErrContractNotFound if no contract has that address.
//   - error: a domain error kind if the contract rejects the query.
func (s *Service) Query(ctx context.Context, addr domain.Addr, msg json.RawMessage) (json.RawMessage, error) {
	const op = "service.contracts.Query"

	load := func(ctx context.Context) (json.RawMessage, error) {
		var out json.RawMessage

		err := s.uow.DoWithOpts(ctx, &repository.TxOptions{ReadOnly: true}, func(
			ctx context.Context,
			tx repository.Tx,
			_ func(uow.AfterCommit),
		) error {
			inst, c, err := s.load(ctx, tx, addr)
			if err != nil {
				return err
			}

			deps := contract.Deps{Storage: tx.State().View(ctx, addr), API: s.api}
			out, err = c.Query(deps, s.env(inst.Address, inst.Height, s.cfg.Now()), msg)
			return err
		})

		return out, err
	}

	var (
		out json.RawMessage
		err error
	)
	if s.cache != nil && !s.usesBlockTime(msg) {
		out, err = s.cache.GetOrSetQuery(ctx, addr, QueryKey(msg), s.cfg.QueryTTL, load)
	} else {
		out, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Get returns the host record of a contract.
//
// Returns:
//   - error: contracts.ErrContractNotFound if no contract has that address.
func (s *Service) Get(ctx context.Context, addr domain.Addr) (*domain.Instance, error) {
	const op = "service.contracts.Get"

	var inst *domain.Instance

	err := s.uow.DoWithOpts(ctx, &repository.TxOptions{ReadOnly: true}, func(
		ctx context.Context,
		tx repository.Tx,
		_ func(uow.AfterCommit),
	) error {
		var err error
		inst, _, err = s.load(ctx, tx, addr)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return inst, nil
}

// usesBlockTime reports whether any contract kind answers msg from block
// time. Such answers go stale without a commit, so they bypass the cache.
func (s *Service) usesBlockTime(msg json.RawMessage) bool {
	for _, c := range s.kinds {
		if q, ok := c.(contract.BlockTimeQuerier); ok && q.QueryUsesBlockTime(msg) {
			return true
		}
	}
	return false
}

// QueryKey identifies a query message in the cache.
func QueryKey(msg json.RawMessage) string {
	sum := sha256.Sum256(msg)
	return hex.EncodeToString(sum[:])
}

func (s *Service) mutate(
	ctx context.Context,
	op string,
	addr domain.Addr,
	action string,
	call func(c contract.Contract, deps contract.Deps, env domain.Env) (*response.Response, error),
) (*Result, error) {
	var result *Result

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Tx,
		after func(uow.AfterCommit),
	) error {
		inst, c, err := s.load(ctx, tx, addr)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		inst.Height++
		now := s.cfg.Now()

		res, err := s.run(ctx, tx, *inst, now, func(deps contract.Deps, env domain.Env) (*response.Response, error) {
			return call(c, deps, env)
		})
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := tx.Instances().Touch(ctx, addr, inst.Height, now); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		result = &Result{Contract: addr, Height: inst.Height, Response: res}
		s.afterCommit(after, addr, inst.Height, action, res)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// run executes one contract call over a buffered view of the contract's
// state. Writes and outbound messages reach the transaction only if the call
// succeeds.
func (s *Service) run(
	ctx context.Context,
	tx repository.Tx,
	inst domain.Instance,
	now time.Time,
	call func(deps contract.Deps, env domain.Env) (*response.Response, error),
) (*response.Response, error) {
	buf := store.NewCacheKV(tx.State().View(ctx, inst.Address))

	res, err := call(contract.Deps{Storage: buf, API: s.api}, s.env(inst.Address, inst.Height, now))
	if err != nil {
		return nil, err
	}

	if err := tx.State().Apply(ctx, inst.Address, buf.Pending()); err != nil {
		return nil, err
	}

	msgs, err := outboxMessages(inst.Address, inst.Height, now, res.Messages)
	if err != nil {
		return nil, err
	}

	if err := tx.Outbox().Add(ctx, msgs...); err != nil {
		return nil, err
	}

	return res, nil
}

func (s *Service) load(ctx context.Context, tx repository.Tx, addr domain.Addr) (*domain.Instance, contract.Contract, error) {
	inst, err := tx.Instances().Get(ctx, addr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ContractNotFoundError{Address: addr}
		}
		return nil, nil, err
	}

	c, ok := s.kinds[inst.Kind]
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", inst.Kind, ErrUnknownKind)
	}

	return inst, c, nil
}

func (s *Service) afterCommit(after func(uow.AfterCommit), addr domain.Addr, height uint64, action string, res *response.Response) {
	after(func(ctx context.Context) {
		if s.cache != nil {
			_ = s.cache.InvalidateContract(ctx, addr)
		}
		if s.events != nil {
			_ = s.events.PublishContractChanged(ctx, addr, height, action, res.Events)
		}
		if s.relay != nil && len(res.Messages) > 0 {
			s.relay.Notify()
		}
	})
}

func (s *Service) messageInfo(sender domain.Addr, funds domain.Coins) (domain.MessageInfo, error) {
	addr, err := s.api.Validate(string(sender))
	if err != nil {
		return domain.MessageInfo{}, err
	}

	funds = funds.Normalize()
	if len(funds) > 0 {
		if err := funds.Validate(); err != nil {
			return domain.MessageInfo{}, err
		}
	}

	return domain.MessageInfo{Sender: addr, Funds: funds}, nil
}

func (s *Service) env(addr domain.Addr, height uint64, now time.Time) domain.Env {
	return domain.Env{
		Block: domain.BlockInfo{
			Height:  height,
			Time:    domain.TimestampFromTime(now),
			ChainID: s.cfg.ChainID,
		},
		Contract: domain.ContractInfo{Address: addr},
	}
}

func outboxMessages(addr domain.Addr, height uint64, now time.Time, msgs []response.Msg) ([]domain.OutboxMessage, error) {
	out := make([]domain.OutboxMessage, 0, len(msgs))
	for _, m := range msgs {
		payload, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.OutboxMessage{
			ID:        uuid.New(),
			Contract:  addr,
			Height:    height,
			Kind:      m.Kind(),
			Payload:   payload,
			CreatedAt: now,
		})
	}
	return out, nil
}
