package verifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/pinegen/api/internal/telemetry"
	"go.uber.org/zap"
)

// VerdictStore is a key/value store for checker responses
type VerdictStore interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachingChecker serves repeated scripts from a VerdictStore. Only responses
// the checker actually produced are cached; transport errors are not.
type CachingChecker struct {
	next   Checker
	store  VerdictStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachingChecker wraps next with a verdict cache
func NewCachingChecker(next Checker, store VerdictStore, ttl time.Duration, logger *zap.Logger) *CachingChecker {
	return &CachingChecker{next: next, store: store, ttl: ttl, logger: logger}
}

// CacheKey is the store key for script
func CacheKey(script string) string {
	sum := sha256.Sum256([]byte(script))
	return "pinegen:verdict:" + hex.EncodeToString(sum[:])
}

// Check implements Checker
func (c *CachingChecker) Check(ctx context.Context, script string) (*CheckResult, error) {
	key := CacheKey(script)

	var cached CheckResult
	found, err := c.store.GetJSON(ctx, key, &cached)
	switch {
	case err != nil:
		// Cache outages must not block validation
		telemetry.CheckerCacheTotal.WithLabelValues("error").Inc()
		c.logger.Warn("verdict cache read failed", zap.Error(err))
	case found:
		telemetry.CheckerCacheTotal.WithLabelValues("hit").Inc()
		return &cached, nil
	default:
		telemetry.CheckerCacheTotal.WithLabelValues("miss").Inc()
	}

	res, err := c.next.Check(ctx, script)
	if err != nil {
		return nil, err
	}

	if err := c.store.SetJSON(ctx, key, res, c.ttl); err != nil {
		c.logger.Warn("verdict cache write failed", zap.Error(err))
	}
	return res, nil
}
