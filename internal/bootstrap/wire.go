// FILE: internal/bootstrap/wire.go
package bootstrap

import (
	"context"

	"reversi/internal/cache"
	"reversi/internal/engine"

	"go.uber.org/zap"
)

// EngineFactory returns the scorer process factory, or the built-in greedy scorer
// when no SCORER_PATH is configured
func (c *Config) EngineFactory(log *zap.SugaredLogger) engine.Factory {
	if c.ScorerPath == "" {
		return engine.LocalFactory(engine.Greedy, 0)
	}
	return engine.ProcessFactory(c.ScorerPath, c.ScorerArgs, log)
}

// ReplayCache connects to redis when REDIS_URL is set, otherwise keeps replays in memory
func (c *Config) ReplayCache(ctx context.Context, log *zap.SugaredLogger) (cache.ReplayCache, error) {
	if c.RedisURL == "" {
		return cache.NewMemory(cache.DefaultTTL, c.ReplayCacheSize), nil
	}
	return cache.NewRedis(ctx, c.RedisURL, cache.DefaultTTL, log)
}
