package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const RateLimitPrefix = "ratelimit"

// 固定窗口：首次计数时设置过期
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`)

type RateLimiter struct {
	RDB *redis.Client
}

// Allow 窗口内第 limit+1 次起拒绝
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	n, err := incrScript.Run(ctx, l.RDB, []string{RateLimitPrefix + ":" + key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= int64(limit), nil
}
