package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Rrens/voice-companion/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const turnLockPrefix = "turnlock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// TurnLocker serializes turns on one thread across server instances.
// The TTL bounds how long a crashed holder can block the thread.
type TurnLocker struct {
	client *Client
	ttl    time.Duration
}

// NewTurnLocker creates a new turn locker
func NewTurnLocker(client *Client, ttl time.Duration) *TurnLocker {
	return &TurnLocker{client: client, ttl: ttl}
}

// Acquire takes the lock for threadID. It returns domain.ErrTurnInProgress
// when another holder has it. The returned func releases the lock only if it
// is still owned by this caller.
func (l *TurnLocker) Acquire(ctx context.Context, threadID string) (func(), error) {
	key := turnLockPrefix + threadID
	token := uuid.NewString()

	ok, err := l.client.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire turn lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrTurnInProgress
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		releaseScript.Run(ctx, l.client.rdb, []string{key}, token)
	}
	return release, nil
}
