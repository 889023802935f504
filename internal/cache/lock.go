package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshLockKey guards catalog refreshes across processes sharing one Redis.
const RefreshLockKey = KeyPrefix + "lock:refresh"

// ErrLocked is returned by Acquire when another holder owns the lock.
var ErrLocked = errors.New("lock is already held")

// releaseScript deletes the key only while it still carries our token, so an
// expired holder cannot release a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lock is a held lock. It expires on its own after the TTL given to Acquire.
type Lock struct {
	r     *Redis
	key   string
	token string
}

// Acquire takes key with SET NX PX for ttl.
func Acquire(ctx context.Context, r *Redis, key string, ttl time.Duration) (*Lock, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{r: r, key: key, token: token}, nil
}

// Release frees the lock if it is still ours. It uses its own context so a
// cancelled request still releases.
func (l *Lock) Release() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.r.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("cache unlock %s: %w", l.key, err)
	}
	return nil
}

// Held reports whether anyone holds key.
func Held(ctx context.Context, r *Redis, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
