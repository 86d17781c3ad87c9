package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"finanzas/internal/domain/ledger"
)

const keyPrefix = "finanzas:settle:"

// releaseScript deletes the lock only if it still holds this holder's token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Guard is a ledger.Guard shared by every API instance using the same Redis.
// A lock expires after ttl even if its holder never releases it.
type Guard struct {
	client goredis.Cmdable
	ttl    time.Duration
}

func NewGuard(client goredis.Cmdable, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Guard{client: client, ttl: ttl}
}

func (g *Guard) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, keyPrefix+key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: acquire settlement lock: %w", ledger.ErrConnection, err)
	}
	if !ok {
		return nil, ledger.ErrSettlementInFlight
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release even when the request context is already done.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()

			err := releaseScript.Run(ctx, g.client, []string{keyPrefix + key}, token).Err()
			if err != nil && !errors.Is(err, goredis.Nil) {
				log.Printf("Failed to release settlement lock for %s: %v", key, err)
			}
		})
	}, nil
}

var _ ledger.Guard = (*Guard)(nil)
