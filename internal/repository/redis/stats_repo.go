package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
)

const (
	StatsTTL       = 10 * time.Minute
	LockTTL        = 300 * time.Millisecond
	StatsKeyPrefix = "stats:content"      // 内容聚合计数 hash
	LockKeyPrefix  = "lock:stats:content" // 重建缓存的分布式锁
)

// StatsCacheRepository 内容计数缓存，数据库为准，缓存只读路径使用
type StatsCacheRepository struct {
	RDB *redis.Client
	TTL time.Duration
}

type DistLock struct {
	RDB *redis.Client
}

func NewStatsCacheRepository(rdb *redis.Client, ttl time.Duration) *StatsCacheRepository {
	if ttl <= 0 {
		ttl = StatsTTL
	}
	return &StatsCacheRepository{RDB: rdb, TTL: ttl}
}

func statsKey(t model.ContentType, id uint64) string {
	return fmt.Sprintf("%s:%s:%d", StatsKeyPrefix, t, id)
}

// Get 命中返回 ok=true
func (r *StatsCacheRepository) Get(ctx context.Context, t model.ContentType, id uint64) (model.Stats, bool, error) {
	vals, err := r.RDB.HGetAll(ctx, statsKey(t, id)).Result()
	if err != nil {
		return model.Stats{}, false, err
	}
	if len(vals) == 0 {
		return model.Stats{}, false, nil
	}
	field := func(name string) int64 {
		n, _ := strconv.ParseInt(vals[name], 10, 64)
		return n
	}
	return model.Stats{
		Likes:    field("likes"),
		Saves:    field("saves"),
		Shares:   field("shares"),
		Comments: field("comments"),
		Views:    field("views"),
	}, true, nil
}

// Set 回填
func (r *StatsCacheRepository) Set(ctx context.Context, t model.ContentType, id uint64, s model.Stats) error {
	key := statsKey(t, id)
	_, err := r.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"likes", s.Likes,
			"saves", s.Saves,
			"shares", s.Shares,
			"comments", s.Comments,
			"views", s.Views,
		)
		p.Expire(ctx, key, r.TTL)
		return nil
	})
	return err
}

// Delete 立即删除；delay>0 时后台再删一次，抵消并发回填窗口
func (r *StatsCacheRepository) Delete(ctx context.Context, t model.ContentType, id uint64, delay time.Duration) error {
	key := statsKey(t, id)
	if err := r.RDB.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if delay > 0 {
		go func() {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			<-timer.C
			_ = r.RDB.Del(context.Background(), key).Err()
		}()
	}
	return nil
}

func lockKey(t model.ContentType, id uint64) string {
	return fmt.Sprintf("%s:%s:%d", LockKeyPrefix, t, id)
}

// Acquire 请求加分布式锁
func (l *DistLock) Acquire(ctx context.Context, t model.ContentType, id uint64, token string) (bool, error) {
	return l.RDB.SetNX(ctx, lockKey(t, id), token, LockTTL).Result()
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Release 只释放自己持有的锁，用 lua 保证原子性
func (l *DistLock) Release(ctx context.Context, t model.ContentType, id uint64, token string) error {
	return releaseScript.Run(ctx, l.RDB, []string{lockKey(t, id)}, token).Err()
}
