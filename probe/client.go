// SPDX-License-Identifier: GPL-3.0-or-later

package probe

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// redisClient is the slice of go-redis the probe consumes; tests provide a
// mock implementation.
type redisClient interface {
	Info(ctx context.Context, section ...string) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
	HLen(ctx context.Context, key string) *redis.IntCmd
	SCard(ctx context.Context, key string) *redis.IntCmd
	ZCard(ctx context.Context, key string) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HExists(ctx context.Context, key, field string) *redis.BoolCmd
	SIsMember(ctx context.Context, key string, member any) *redis.BoolCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	ZRangeByScoreWithScores(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.ZSliceCmd
	Close() error
}

func (p *Probe) initRedisClient() (*redis.Client, error) {
	opts, err := redis.ParseURL(p.Address)
	if err != nil {
		return nil, err
	}
	p.server = opts.Addr

	if opts.Username == "" && p.Username != "" {
		opts.Username = p.Username
	}
	if opts.Password == "" && p.Password != "" {
		opts.Password = p.Password
	}

	opts.PoolSize = 1
	opts.DialTimeout = p.Timeout.Duration()
	opts.ReadTimeout = p.Timeout.Duration()
	opts.WriteTimeout = p.Timeout.Duration()

	return redis.NewClient(opts), nil
}
