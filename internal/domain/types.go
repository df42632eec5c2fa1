package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Addr is a validated account or contract address.
type Addr string

func (a Addr) String() string { return string(a) }

// Timestamp is a block time in whole seconds since the Unix epoch.
// It encodes as a decimal string and accepts either a string or a number.
type Timestamp uint64

func TimestampFromTime(t time.Time) Timestamp {
	if t.Unix() < 0 {
		return 0
	}
	return Timestamp(t.Unix())
}

func (t Timestamp) Seconds() uint64 { return uint64(t) }

func (t Timestamp) Time() time.Time { return time.Unix(int64(t), 0).UTC() }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(t), 10))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n uint64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("timestamp: %w", ErrValidation)
		}
		*t = Timestamp(n)
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, ErrValidation)
	}
	*t = Timestamp(n)
	return nil
}

type BlockInfo struct {
	Height  uint64    `json:"height"`
	Time    Timestamp `json:"time"`
	ChainID string    `json:"chain_id"`
}

type ContractInfo struct {
	Address Addr `json:"address"`
}

// Env is the host-supplied execution environment of one call. Block time is
// the only clock the contract core observes.
type Env struct {
	Block    BlockInfo    `json:"block"`
	Contract ContractInfo `json:"contract"`
}

// MessageInfo carries the caller and the funds attached to an execute call.
type MessageInfo struct {
	Sender Addr  `json:"sender"`
	Funds  Coins `json:"funds"`
}
