package service

import (
	"log/slog"

	"github.com/kirinyoku/seat-market/internal/repository"
	redisrepo "github.com/kirinyoku/seat-market/internal/repository/redis"
	"github.com/kirinyoku/seat-market/internal/service/contracts"
	"github.com/kirinyoku/seat-market/internal/service/outbox"
)

type Services struct {
	Contracts *contracts.Service
	Outbox    *outbox.Relay
}

type Config struct {
	Contracts contracts.Config
	Outbox    outbox.Config
}

func NewServices(
	runner repository.TxRunner,
	cache *redisrepo.Cache,
	pubsub *redisrepo.EventsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	publisher outbox.Publisher,
	logger *slog.Logger,
	cfg Config,
) *Services {
	relay := outbox.New(runner, publisher, logger, cfg.Outbox)

	return &Services{
		Contracts: contracts.New(runner, cache, pubsub, limiter, relay, cfg.Contracts),
		Outbox:    relay,
	}
}
