package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/redis/go-redis/v9"
)

type EventsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewEventsPubSub(rdb *redis.Client) *EventsPubSub {
	return &EventsPubSub{
		rdb:     rdb,
		channel: ChannelContractsChanged(),
	}
}

// ContractChanged is the message published after a contract call commits.
type ContractChanged struct {
	Type     string           `json:"type"`
	Contract domain.Addr      `json:"contract"`
	Height   uint64           `json:"height"`
	Action   string           `json:"action"`
	Events   []response.Event `json:"events"`
	TsUnix   int64            `json:"ts_unix"`
}

func (p *EventsPubSub) PublishContractChanged(
	ctx context.Context,
	addr domain.Addr,
	height uint64,
	action string,
	events []response.Event,
) error {
	msg := ContractChanged{
		Type:     "contract_changed",
		Contract: addr,
		Height:   height,
		Action:   action,
		Events:   events,
		TsUnix:   time.Now().Unix(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *EventsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, ev ContractChanged)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev ContractChanged
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.Contract != "" {
				handler(ctx, ev)
			}
		}
	}
}
