package lock

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "filmrental:lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a lease lock shared by every API instance. A lease expires after ttl so a
// crashed holder cannot block allocation forever; while held it is renewed every
// ttl/3.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{client: client, ttl: ttl, retry: 25 * time.Millisecond}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := redisKeyPrefix + key
	token := uuid.NewString()
	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			stop := make(chan struct{})
			done := make(chan struct{})
			go r.keepAlive(k, token, stop, done)

			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					<-done
					r.release(k, token)
				})
			}, nil
		}

		timer := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Redis) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
			n, err := refreshScript.Run(ctx, r.client, []string{key}, token, r.ttl.Milliseconds()).Int()
			cancel()
			switch {
			case err != nil:
				log.Printf("[WARN] lock: refresh %s: %v", key, err)
			case n == 0:
				log.Printf("[ERROR] lock: lease on %s lost before release", key)
				return
			}
		}
	}
}

func (r *Redis) release(key, token string) {
	n, err := releaseScript.Run(context.Background(), r.client, []string{key}, token).Int()
	switch {
	case err != nil:
		log.Printf("[WARN] lock: release %s: %v", key, err)
	case n == 0:
		log.Printf("[ERROR] lock: lease on %s had expired at release", key)
	}
}
