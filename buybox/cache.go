package buybox

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/zeu5/pricing-rl/metrics"
	"gopkg.in/yaml.v3"
)

// Cache stores predictions keyed by Features.Key
type Cache interface {
	Get(ctx context.Context, key string) (Prediction, bool, error)
	Set(ctx context.Context, key string, p Prediction) error
}

// MemoryCache is a process local cache, safe for concurrent use
type MemoryCache struct {
	mu    sync.RWMutex
	store map[string]Prediction
}

var _ Cache = &MemoryCache{}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		store: make(map[string]Prediction),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Prediction, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.store[key]
	return p, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, p Prediction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = p
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// RedisOptions configures a RedisCache
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// zero keeps entries forever
	TTL time.Duration
}

// RedisCache shares predictions between processes, e.g. parallel experiments
// on several machines
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Cache = &RedisCache{}

func NewRedisCache(opts RedisOptions) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisCacheFromClient(client, opts.Prefix, opts.TTL)
}

func NewRedisCacheFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "buybox:"
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Ping checks that the server is reachable
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Get(ctx context.Context, key string) (Prediction, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return Prediction{}, false, nil
	}
	if err != nil {
		return Prediction{}, false, err
	}
	var p Prediction
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return Prediction{}, false, err
	}
	return p, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, p Prediction) error {
	bs, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, string(bs), r.ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// CachedClassifier memoizes the predictions of another classifier. Cache
// failures are logged and fall through to the classifier.
type CachedClassifier struct {
	inner Classifier
	cache Cache
	log   logrus.FieldLogger
}

var _ Classifier = &CachedClassifier{}

func NewCachedClassifier(inner Classifier, cache Cache, log logrus.FieldLogger) *CachedClassifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CachedClassifier{
		inner: inner,
		cache: cache,
		log:   log,
	}
}

func (c *CachedClassifier) Predict(ctx context.Context, f Features) (Prediction, error) {
	key := f.Key()
	p, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		metrics.BuyBoxErrors.WithLabelValues("cache_get").Inc()
		c.log.WithError(err).WithField("key", key).Warn("buy box cache lookup failed")
	} else if ok {
		metrics.BuyBoxPredictions.WithLabelValues("cache").Inc()
		return p, nil
	}

	start := time.Now()
	p, err = c.inner.Predict(ctx, f)
	metrics.BuyBoxPredictionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BuyBoxErrors.WithLabelValues("predict").Inc()
		return Prediction{}, err
	}
	metrics.BuyBoxPredictions.WithLabelValues("model").Inc()

	if err := c.cache.Set(ctx, key, p); err != nil {
		metrics.BuyBoxErrors.WithLabelValues("cache_set").Inc()
		c.log.WithError(err).WithField("key", key).Warn("buy box cache store failed")
	}
	return p, nil
}

// TableEntry is one pre-computed prediction
type TableEntry struct {
	Features   Features   `yaml:"features"`
	Prediction Prediction `yaml:"prediction"`
}

// LoadTable reads pre-computed predictions from a YAML file
func LoadTable(path string) ([]TableEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []TableEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := e.Prediction.Validate(); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Preload stores the table entries in the cache
func Preload(ctx context.Context, cache Cache, entries []TableEntry) error {
	for _, e := range entries {
		if err := cache.Set(ctx, e.Features.Key(), e.Prediction); err != nil {
			return err
		}
	}
	return nil
}
