package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis transport failures. It also matches [ErrStoreUnavailable].
var ErrRedisUnavailable = fmt.Errorf("%w: redis", ErrStoreUnavailable)

const minRecordTTL = time.Second

const compareAndSwapScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
local sep = string.find(current, ":", 1, true)
if not sep then
  return 0
end
if string.sub(current, 1, sep - 1) ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

var compareAndSwapLua = redis.NewScript(compareAndSwapScript)

// RedisStore keeps one string key per owner ("<prefix>:<owner>") holding the record
// text form, with a PX expiry matching the record's ExpiresAt.
//
//	Performance: Get, Set, Remove are 1 command each; CompareAndSwap is 1 EVALSHA.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a [RedisStore] using prefix as the key namespace.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "gs"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock overrides the clock used to derive key TTLs from record expiries.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *RedisStore) key(ownerID string) string {
	return s.prefix + ":" + ownerID
}

// ttl never returns less than minRecordTTL so a just-expired record still lands
// and is then rejected by the freshness check instead of vanishing mid-write.
func (s *RedisStore) ttl(rec Record) time.Duration {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl < minRecordTTL {
		return minRecordTTL
	}
	return ttl
}

func (s *RedisStore) Get(ctx context.Context, ownerID string) (Record, bool, error) {
	if ownerID == "" {
		return Record{}, false, ErrInvalidOwner
	}
	data, err := s.redis.Get(ctx, s.key(ownerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	rec, err := DecodeRecord(ownerID, data)
	if err != nil {
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *RedisStore) Set(ctx context.Context, rec Record) error {
	if rec.OwnerID == "" {
		return ErrInvalidOwner
	}
	if err := s.redis.Set(ctx, s.key(rec.OwnerID), EncodeRecord(rec), s.ttl(rec)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return ErrInvalidOwner
	}
	if err := s.redis.Del(ctx, s.key(ownerID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// List scans the prefix namespace. This is an O(n) admin operation used by the
// sweeper and must not be called on request paths.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	pattern := s.prefix + ":*"
	var (
		cursor uint64
		owners []string
	)

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		for _, k := range keys {
			owners = append(owners, strings.TrimPrefix(k, s.prefix+":"))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return owners, nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, ownerID, expectedKey string, next Record) (bool, error) {
	if ownerID == "" {
		return false, ErrInvalidOwner
	}
	if expectedKey == "" {
		return false, nil
	}
	next.OwnerID = ownerID

	res, err := compareAndSwapLua.Run(
		ctx,
		s.redis,
		[]string{s.key(ownerID)},
		expectedKey,
		EncodeRecord(next),
		strconv.FormatInt(s.ttl(next).Milliseconds(), 10),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return res == 1, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
