package services

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Hash fields of a cached company in Redis
const (
	fieldNIF         = "nif"
	fieldCompany     = "company_name"
	fieldLandedURL   = "landed_url"
	fieldMatchedRule = "matched_rule"
	fieldCachedAt    = "cached_at"
)

// CacheService keeps the NIF of companies that resolved cleanly. Each
// company is a Redis hash under prefix; entries written while Redis is
// unreachable land in memory instead.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry

	hits   atomic.Int64
	misses atomic.Int64
}

type memoryEntry struct {
	record    models.CachedNIF
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// NewCacheService creates a cache whose entries live for ttl (0 keeps them
// forever). Clear only touches keys under prefix.
func NewCacheService(client *redis.Client, ttl time.Duration, prefix string, logger *logrus.Logger) *CacheService {
	return &CacheService{
		client:  client,
		ttl:     ttl,
		prefix:  prefix,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Get returns the cached record for key or ErrCacheMiss
func (c *CacheService) Get(ctx context.Context, key string) (models.CachedNIF, error) {
	if c.client != nil {
		fields, err := c.client.HGetAll(ctx, key).Result()
		switch {
		case err != nil:
			c.logger.WithFields(logrus.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("Redis read failed, using memory cache")
		case len(fields) > 0:
			c.hits.Add(1)
			c.logger.WithField("key", key).Debug("Cache hit (Redis)")
			return recordFromHash(fields), nil
		}
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.expired(c.now()) {
		if ok {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
		}
		c.misses.Add(1)
		return models.CachedNIF{}, ErrCacheMiss
	}

	c.hits.Add(1)
	c.logger.WithField("key", key).Debug("Cache hit (memory)")
	return entry.record, nil
}

// Set stores record under key. A Redis failure is logged and the record is
// kept in memory, so Set itself never fails.
func (c *CacheService) Set(ctx context.Context, key string, record models.CachedNIF) error {
	if record.CachedAt.IsZero() {
		record.CachedAt = c.now()
	}

	if c.client != nil {
		_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldNIF, record.NIF,
				fieldCompany, record.CompanyName,
				fieldLandedURL, record.LandedURL,
				fieldMatchedRule, record.MatchedRule,
				fieldCachedAt, record.CachedAt.Unix(),
			)
			if c.ttl > 0 {
				pipe.Expire(ctx, key, c.ttl)
			}
			return nil
		})
		if err == nil {
			c.logger.WithFields(logrus.Fields{"key": key, "nif": record.NIF}).Debug("Cached NIF (Redis)")
			return nil
		}
		c.logger.WithFields(logrus.Fields{
			"key":   key,
			"error": err.Error(),
		}).Warn("Redis write failed, using memory cache")
	}

	entry := memoryEntry{record: record}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{"key": key, "nif": record.NIF}).Debug("Cached NIF (memory)")
	return nil
}

// Delete removes key from both stores
func (c *CacheService) Delete(ctx context.Context, key string) error {
	if c.client != nil {
		if err := c.client.Del(ctx, key).Err(); err != nil {
			c.logger.WithFields(logrus.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("Redis delete failed")
		}
	}

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	c.logger.WithField("key", key).Debug("Cache entry deleted")
	return nil
}

// Clear removes every entry under the service prefix
func (c *CacheService) Clear(ctx context.Context) error {
	if c.client != nil {
		keys, err := c.scanKeys(ctx)
		if err != nil {
			c.logger.WithField("error", err.Error()).Warn("Redis scan failed")
		} else if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.WithField("error", err.Error()).Warn("Redis clear failed")
			}
		}
	}

	c.mu.Lock()
	removed := len(c.entries)
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()

	c.logger.WithField("memory_entries", removed).Info("Cache cleared")
	return nil
}

// Exists reports whether key holds a live entry
func (c *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	if c.client != nil {
		count, err := c.client.Exists(ctx, key).Result()
		if err == nil && count > 0 {
			return true, nil
		}
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("Redis exists failed, checking memory cache")
		}
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	return ok && !entry.expired(c.now()), nil
}

// GetStats counts cached companies per store along with hit and miss totals
func (c *CacheService) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	redisStats := map[string]interface{}{"available": false}
	if c.client != nil {
		keys, err := c.scanKeys(ctx)
		if err == nil {
			redisStats["available"] = true
			redisStats["companies"] = len(keys)
		} else {
			redisStats["error"] = err.Error()
		}
	}
	stats["redis"] = redisStats

	c.mu.RLock()
	memSize := len(c.entries)
	c.mu.RUnlock()

	stats["memory"] = map[string]interface{}{
		"size": memSize,
		"ttl":  c.ttl.String(),
	}

	hits, misses := c.hits.Load(), c.misses.Load()
	stats["hits"] = hits
	stats["misses"] = misses
	if total := hits + misses; total > 0 {
		stats["hit_rate"] = float64(hits) / float64(total)
	}

	return stats, nil
}

// Health reports degraded when Redis is configured but unreachable; lookups
// still work from memory then.
func (c *CacheService) Health() map[string]interface{} {
	health := map[string]interface{}{
		"status": "healthy",
		"memory": map[string]interface{}{"status": "healthy"},
	}

	if c.client == nil {
		health["redis"] = map[string]interface{}{"status": "disabled"}
		return health
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		health["redis"] = map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		health["status"] = "degraded"
		health["error"] = err.Error()
	} else {
		health["redis"] = map[string]interface{}{"status": "healthy"}
	}

	return health
}

func (c *CacheService) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (c *CacheService) evictExpired() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// StartCleanupRoutine evicts expired memory entries every interval until ctx is done
func (c *CacheService) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.evictExpired(); n > 0 {
					c.logger.WithField("evicted", n).Debug("Expired cache entries removed")
				}
			}
		}
	}()
}

func recordFromHash(fields map[string]string) models.CachedNIF {
	record := models.CachedNIF{
		NIF:         fields[fieldNIF],
		CompanyName: fields[fieldCompany],
		LandedURL:   fields[fieldLandedURL],
		MatchedRule: fields[fieldMatchedRule],
	}
	if secs, err := strconv.ParseInt(fields[fieldCachedAt], 10, 64); err == nil {
		record.CachedAt = time.Unix(secs, 0)
	}
	return record
}
