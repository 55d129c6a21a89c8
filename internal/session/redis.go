package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rook-computer/captcha/internal/render"
)

const (
	redisKeyPrefix = "captcha:"
	redisOpTimeout = 2 * time.Second
)

// getDelScript is the GETDEL fallback for servers older than 6.2.
const getDelScript = `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`

// RedisStore is a Store shared by every process pointing at the same server,
// so challenges survive load balancing between replicas.
type RedisStore struct {
	Client redis.UniversalClient
	TTL    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{Client: client, TTL: ttl}
}

// NewRedisClient dials lazily; the first command reports connection errors.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: redisOpTimeout,
	})
}

func (s *RedisStore) key(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Set(id string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.Client.Set(ctx, s.key(id), value, s.TTL).Err()
}

// Get returns "" for missing ids and on any redis error.
func (s *RedisStore) Get(id string, clear bool) string {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	key := s.key(id)
	if !clear {
		v, err := s.Client.Get(ctx, key).Result()
		if err != nil {
			return ""
		}
		return v
	}

	v, err := s.Client.GetDel(ctx, key).Result()
	if err == nil {
		return v
	}
	if err == redis.Nil || ctx.Err() != nil {
		return ""
	}
	res, err := s.Client.Eval(ctx, getDelScript, []string{key}).Result()
	if err != nil {
		return ""
	}
	str, _ := res.(string)
	return str
}

func (s *RedisStore) Verify(id, answer string, clear bool) bool {
	return render.VerifyCode(s.Get(id, clear), answer)
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}
