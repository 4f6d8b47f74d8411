package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisPrefix = "digest:"
	recentListMax      = 100
)

// RedisSink stores each summary as JSON under <prefix>summary:<id>, points
// <prefix>video:<video_id> at the latest summary id and keeps a capped list
// of recent ids under <prefix>recent.
type RedisSink struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSink connects to redisURL. A zero ttl keeps keys forever.
func NewRedisSink(ctx context.Context, redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisSink, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger != nil {
		logger.Info("redis sink connected", "addr", opts.Addr, "ttl", ttl)
	}
	return &RedisSink{client: client, prefix: DefaultRedisPrefix, ttl: ttl}, nil
}

func (s *RedisSink) Name() string {
	return "redis"
}

func (s *RedisSink) summaryKey(id string) string { return s.prefix + "summary:" + id }
func (s *RedisSink) videoKey(id string) string   { return s.prefix + "video:" + id }
func (s *RedisSink) recentKey() string           { return s.prefix + "recent" }

func (s *RedisSink) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal summary record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.summaryKey(rec.ID), data, s.ttl)
		pipe.Set(ctx, s.videoKey(rec.VideoID), rec.ID, s.ttl)
		pipe.LPush(ctx, s.recentKey(), rec.ID)
		pipe.LTrim(ctx, s.recentKey(), 0, recentListMax-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store summary in redis: %w", err)
	}
	return nil
}

// get loads a stored record by summary id.
func (s *RedisSink) get(ctx context.Context, id string) (*Record, error) {
	data, err := s.client.Get(ctx, s.summaryKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary from redis: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal summary record: %w", err)
	}
	return &rec, nil
}

// recent returns up to n summary ids, newest first.
func (s *RedisSink) recent(ctx context.Context, n int) ([]string, error) {
	if n <= 0 || n > recentListMax {
		n = recentListMax
	}
	return s.client.LRange(ctx, s.recentKey(), 0, int64(n-1)).Result()
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
