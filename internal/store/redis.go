package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/transport"
)

const scanBatchSize = 100

// RedisStore is a Store backed by a redis server, sharing the transaction
// keyspace with the original server deployment: records live under
// <prefix>:<threeDSServerTransID> as JSON values and expire through redis TTLs.
type RedisStore[V Keyed] struct {
	client *redis.Client
	srz    transport.Serializer
	ttl    time.Duration
	prefix string
}

// NewRedisStore connects to the redis server at url (redis:// or rediss://
// scheme) and returns a RedisStore expiring records after ttl.
func NewRedisStore[V Keyed](ctx context.Context, url, prefix string, ttl time.Duration) (*RedisStore[V], error) {
	if ttl <= 0 {
		return nil, newError("invalid ttl %v", ttl)
	}
	opts, err := redis.ParseURL(url)
	if nil != err {
		return nil, wrapError(err, "invalid redis url")
	}

	client := redis.NewClient(opts)
	err = client.Ping(ctx).Err()
	if nil != err {
		client.Close()
		return nil, wrapError(err, "failed connecting to redis")
	}

	return &RedisStore[V]{
		client: client,
		srz:    transport.WrapInSafeSerializer(transport.JSONSerializer{}),
		ttl:    ttl,
		prefix: prefix,
	}, nil
}

// Save implements Store.
func (self *RedisStore[V]) Save(ctx context.Context, v V) error {
	data, err := self.srz.Marshal(v)
	if nil != err {
		return wrapError(err, "failed serializing record")
	}
	err = self.client.Set(ctx, self.key(v.Key()), data, self.ttl).Err()
	return wrapError(err, "failed redis SET") // nil if err is nil
}

// Update implements Store. The record TTL is preserved, redis SET XX KEEPTTL.
func (self *RedisStore[V]) Update(ctx context.Context, v V) error {
	data, err := self.srz.Marshal(v)
	if nil != err {
		return wrapError(err, "failed serializing record")
	}
	set, err := self.client.SetArgs(ctx, self.key(v.Key()), data, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Result()
	if nil != err && !errors.Is(err, redis.Nil) {
		return wrapError(err, "failed redis SET XX")
	}
	if "OK" != set {
		return flagError(ErrNotFound, "no live record under %s", v.Key())
	}
	return nil
}

// Load implements Store.
func (self *RedisStore[V]) Load(ctx context.Context, key uuid.UUID) (V, error) {
	var zero V

	data, err := self.client.Get(ctx, self.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, flagError(ErrNotFound, "no live record under %s", key)
	}
	if nil != err {
		return zero, wrapError(err, "failed redis GET")
	}

	var v V
	err = self.srz.Unmarshal(data, &v)
	if nil != err {
		return zero, wrapError(err, "failed deserializing record")
	}
	return v, nil
}

// FindByACSKey implements Store. Records carry no redis side index for the
// acsTransID, the store walks its keyspace with SCAN and inspects candidates.
// Acceptable for a mock server, a production deployment would maintain an
// index key per acsTransID.
func (self *RedisStore[V]) FindByACSKey(ctx context.Context, acsKey uuid.UUID) (V, error) {
	var zero V

	iter := self.client.Scan(ctx, 0, self.prefix+":*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		data, err := self.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// expired between SCAN and GET
			continue
		}
		if nil != err {
			return zero, wrapError(err, "failed redis GET")
		}

		var v V
		err = self.srz.Unmarshal(data, &v)
		if nil != err {
			return zero, wrapError(err, "failed deserializing record")
		}
		if acsKey == v.ACSKey() {
			return v, nil
		}
	}
	if err := iter.Err(); nil != err {
		return zero, wrapError(err, "failed redis SCAN")
	}

	return zero, flagError(ErrNotFound, "no record indexed under %s", acsKey)
}

// Close implements Store.
func (self *RedisStore[V]) Close() error {
	return self.client.Close()
}

func (self *RedisStore[V]) key(id uuid.UUID) string {
	return self.prefix + ":" + id.String()
}
