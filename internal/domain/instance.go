package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Contract kinds the host knows how to run.
const (
	KindSeat = "seat"
	KindHub  = "hub"
)

// Instance is the host record of one instantiated contract. Height counts
// committed calls and doubles as the block height handed to the contract.
type Instance struct {
	Address   Addr      `json:"address"`
	Kind      string    `json:"kind"`
	Creator   Addr      `json:"creator"`
	Height    uint64    `json:"height"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OutboxMessage is an outbound message a committed call emitted. It is
// stored in the same transaction as the state change and relayed later.
type OutboxMessage struct {
	ID        uuid.UUID       `json:"id"`
	Contract  Addr            `json:"contract"`
	Height    uint64          `json:"height"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
