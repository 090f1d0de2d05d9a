package redemption

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard enforces at-most-once redemption of workflow continuation tokens.
// The workflow engine rejects a second completion of the same token anyway,
// but the guard lets the event handler stay idempotent on redelivered
// status events without a round trip to the engine.
type Guard struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewGuard(rdb *redis.Client, ttl time.Duration) *Guard {
	return &Guard{
		rdb: rdb,
		ttl: ttl,
		log: slog.With("component", "redemption-guard"),
	}
}

// Reserve claims the token for the calling handler. It returns false when
// the token has already been redeemed.
func (g *Guard) Reserve(ctx context.Context, token []byte) (bool, error) {
	sum := sha256.Sum256(token)
	key := "vault-creator:redeemed:" + hex.EncodeToString(sum[:])

	reserved, err := g.rdb.SetNX(ctx, key, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve continuation token: %w", err)
	}

	if !reserved {
		g.log.Info("continuation token already redeemed", "key", key)
	}

	return reserved, nil
}
