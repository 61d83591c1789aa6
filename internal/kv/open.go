package kv

import (
	"context"
	"log/slog"
	"time"
)

// Options selects and configures the backend for Open.
type Options struct {
	// Redis is tried first when Addr is set.
	Redis RedisOptions
	// BadgerPath is the local fallback directory.
	BadgerPath string
	// PingTimeout bounds the Redis availability check.
	PingTimeout time.Duration
}

// Open returns the first backend that works: Redis, then Badger, then
// Memory. It never fails; every fallback is logged.
func Open(ctx context.Context, opts Options, logger *slog.Logger) Store {
	if opts.Redis.Addr != "" {
		timeout := opts.PingTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		r := NewRedis(opts.Redis)
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		err := r.Ping(pingCtx)
		cancel()
		if err == nil {
			logger.Info("using redis store", "addr", opts.Redis.Addr, "db", opts.Redis.DB)
			return r
		}
		_ = r.Close()
		logger.Warn("redis unavailable, falling back to local store", "addr", opts.Redis.Addr, "error", err)
	}

	if opts.BadgerPath != "" {
		b, err := OpenBadger(opts.BadgerPath, logger)
		if err == nil {
			return b
		}
		logger.Error("local store unavailable, keeping state in memory", "path", opts.BadgerPath, "error", err)
	}

	logger.Warn("using in-memory store, nothing will persist")
	return NewMemory()
}
