package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// incrWindow increments the counter and starts its expiry on the first hit,
// so the window is anchored at the first attempt like Memory's.
var incrWindow = goredis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Redis is a fixed-window limiter whose counters live in Redis, shared by
// every instance pointed at the same server.
type Redis struct {
	rdb    goredis.Scripter
	prefix string
	max    int
	period time.Duration
}

func NewRedis(rdb goredis.Scripter, prefix string, max int, period time.Duration) *Redis {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &Redis{rdb: rdb, prefix: prefix, max: max, period: period}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	n, err := incrWindow.Run(ctx, r.rdb, []string{r.prefix + key}, r.period.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis incr: %w", err)
	}
	return n <= int64(r.max), nil
}
