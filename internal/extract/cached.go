package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/dgallion1/recgest/internal/logger"
	"github.com/dgallion1/recgest/internal/metrics"
)

// ResponseCache stores completion output by key with a TTL.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedCompleter memoizes successful completions. Cache failures are
// logged and fall through to the wrapped Completer.
type CachedCompleter struct {
	next  Completer
	cache ResponseCache
	model string
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachedCompleter(next Completer, cache ResponseCache, model string, ttl time.Duration, log *logger.Logger) *CachedCompleter {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedCompleter{
		next:  next,
		cache: cache,
		model: model,
		ttl:   ttl,
		log:   log.With("component", "llm_cache"),
	}
}

// CacheKey hashes the model and every request field that affects output.
func CacheKey(model string, req Request) string {
	b, _ := json.Marshal(struct {
		Model string
		Req   Request
	}{model, req})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (c *CachedCompleter) Complete(ctx context.Context, req Request) (string, error) {
	key := CacheKey(c.model, req)
	if v, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.Warn("cache get failed", "error", err)
	} else if ok {
		metrics.CacheLookups.WithLabelValues("llm", "hit").Inc()
		return v, nil
	}
	metrics.CacheLookups.WithLabelValues("llm", "miss").Inc()

	out, err := c.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if out != "" {
		if err := c.cache.Set(ctx, key, out, c.ttl); err != nil {
			c.log.Warn("cache set failed", "error", err)
		}
	}
	return out, nil
}
