// Package memory is an in-process repository backend. A transaction works
// on a private copy of the data and swaps it in on success, so a failed call
// leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/repository"
	"github.com/kirinyoku/seat-market/internal/store"
)

type data struct {
	instances map[domain.Addr]domain.Instance
	state     map[domain.Addr]*store.MemKV
	outbox    map[uuid.UUID]outboxRow
}

type outboxRow struct {
	msg  domain.OutboxMessage
	seq  uint64
	sent bool
}

func (d *data) clone() *data {
	cp := &data{
		instances: make(map[domain.Addr]domain.Instance, len(d.instances)),
		state:     make(map[domain.Addr]*store.MemKV, len(d.state)),
		outbox:    make(map[uuid.UUID]outboxRow, len(d.outbox)),
	}
	for k, v := range d.instances {
		cp.instances[k] = v
	}
	for k, v := range d.state {
		cp.state[k] = v.Clone()
	}
	for k, v := range d.outbox {
		cp.outbox[k] = v
	}
	return cp
}

// Backend implements repository.TxRunner. Writers are serialized; readers
// share a consistent snapshot.
type Backend struct {
	mu   sync.RWMutex
	data *data
	seq  uint64
}

func New() *Backend {
	return &Backend{data: &data{
		instances: make(map[domain.Addr]domain.Instance),
		state:     make(map[domain.Addr]*store.MemKV),
		outbox:    make(map[uuid.UUID]outboxRow),
	}}
}

func (b *Backend) RunTx(
	ctx context.Context,
	opts *repository.TxOptions,
	fn func(ctx context.Context, tx repository.Tx) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if opts != nil && opts.ReadOnly {
		b.mu.RLock()
		defer b.mu.RUnlock()

		return fn(ctx, &tx{data: b.data.clone(), seq: b.seq, readOnly: true})
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t := &tx{data: b.data.clone(), seq: b.seq}
	if err := fn(ctx, t); err != nil {
		return err
	}

	b.data = t.data
	b.seq = t.seq

	return nil
}

// Unsent reports how many outbox messages have not been marked sent.
func (b *Backend) Unsent() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, r := range b.data.outbox {
		if !r.sent {
			n++
		}
	}
	return n
}

type tx struct {
	data     *data
	seq      uint64
	readOnly bool
}

func (t *tx) Instances() repository.Instances { return instances{t} }
func (t *tx) State() repository.State         { return state{t} }
func (t *tx) Outbox() repository.Outbox       { return outbox{t} }

func (t *tx) writable(op string) error {
	if t.readOnly {
		return fmt.Errorf("%s: read-only transaction", op)
	}
	return nil
}

type instances struct{ t *tx }

func (r instances) Create(_ context.Context, inst domain.Instance) error {
	const op = "memory.Instances.Create"

	if err := r.t.writable(op); err != nil {
		return err
	}
	if _, ok := r.t.data.instances[inst.Address]; ok {
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}
	r.t.data.instances[inst.Address] = inst
	return nil
}

func (r instances) Get(_ context.Context, addr domain.Addr) (*domain.Instance, error) {
	const op = "memory.Instances.Get"

	inst, ok := r.t.data.instances[addr]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	return &inst, nil
}

func (r instances) Touch(_ context.Context, addr domain.Addr, height uint64, at time.Time) error {
	const op = "memory.Instances.Touch"

	if err := r.t.writable(op); err != nil {
		return err
	}
	inst, ok := r.t.data.instances[addr]
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	inst.Height = height
	inst.UpdatedAt = at
	r.t.data.instances[addr] = inst
	return nil
}

type state struct{ t *tx }

func (r state) View(_ context.Context, addr domain.Addr) store.KV {
	kv, ok := r.t.data.state[addr]
	if !ok {
		kv = store.NewMemKV()
		r.t.data.state[addr] = kv
	}
	return kv
}

func (r state) Apply(_ context.Context, addr domain.Addr, changes []store.Change) error {
	const op = "memory.State.Apply"

	if err := r.t.writable(op); err != nil {
		return err
	}
	if _, ok := r.t.data.instances[addr]; !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	kv, ok := r.t.data.state[addr]
	if !ok {
		kv = store.NewMemKV()
		r.t.data.state[addr] = kv
	}
	kv.Apply(changes)
	return nil
}

type outbox struct{ t *tx }

func (r outbox) Add(_ context.Context, msgs ...domain.OutboxMessage) error {
	const op = "memory.Outbox.Add"

	if err := r.t.writable(op); err != nil {
		return err
	}
	for _, m := range msgs {
		if _, ok := r.t.data.outbox[m.ID]; ok {
			return fmt.Errorf("%s:%w", op, repository.ErrConflict)
		}
		r.t.seq++
		r.t.data.outbox[m.ID] = outboxRow{msg: m, seq: r.t.seq}
	}
	return nil
}

func (r outbox) Pending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	rows := make([]outboxRow, 0)
	for _, row := range r.t.data.outbox {
		if !row.sent {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]domain.OutboxMessage, len(rows))
	for i, row := range rows {
		out[i] = row.msg
	}
	return out, nil
}

func (r outbox) MarkSent(_ context.Context, ids ...uuid.UUID) error {
	const op = "memory.Outbox.MarkSent"

	if err := r.t.writable(op); err != nil {
		return err
	}
	for _, id := range ids {
		row, ok := r.t.data.outbox[id]
		if !ok {
			continue
		}
		row.sent = true
		r.t.data.outbox[id] = row
	}
	return nil
}
