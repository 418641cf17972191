// Package cache puts a Redis read-through layer in front of slow lookups.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sawatantra/api/shared/domain"
	"github.com/sawatantra/api/shared/logger"
	"github.com/sawatantra/api/shared/middleware/metrics"
)

type directoryBackend interface {
	UsersByEmails(ctx context.Context, emails []domain.Email) ([]domain.DirectoryEntry, error)
}

// Directory caches participant display names. Only resolved names are cached,
// so a user who registers later is picked up on the next lookup.
type Directory struct {
	base  directoryBackend
	redis *redis.Client
	ttl   time.Duration
}

func NewDirectory(base directoryBackend, client *redis.Client, ttl time.Duration) *Directory {
	if base == nil {
		panic("cache.NewDirectory: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Directory{base: base, redis: client, ttl: ttl}
}

func (d *Directory) UsersByEmails(ctx context.Context, emails []domain.Email) ([]domain.DirectoryEntry, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	hits, misses := d.load(ctx, emails)
	if len(misses) == 0 {
		return hits, nil
	}

	fetched, err := d.base.UsersByEmails(ctx, misses)
	if err != nil {
		return nil, err
	}
	d.store(ctx, fetched)
	return append(hits, fetched...), nil
}

func (d *Directory) load(ctx context.Context, emails []domain.Email) ([]domain.DirectoryEntry, []domain.Email) {
	if d.redis == nil || d.ttl == 0 {
		return nil, emails
	}
	keys := make([]string, len(emails))
	for i, e := range emails {
		keys[i] = nameCacheKey(e)
	}
	values, err := d.redis.MGet(ctx, keys...).Result()
	if err != nil {
		// On redis errors fall back to the backing storage without failing.
		logger.Log.Warn("directory cache unavailable", "error", err)
		metrics.DirectoryCacheLookups.WithLabelValues("error").Inc()
		return nil, emails
	}

	var hits []domain.DirectoryEntry
	var misses []domain.Email
	for i, v := range values {
		name, ok := v.(string)
		if !ok {
			misses = append(misses, emails[i])
			continue
		}
		hits = append(hits, domain.DirectoryEntry{Email: strings.ToLower(emails[i]), Name: name})
	}
	metrics.DirectoryCacheLookups.WithLabelValues("hit").Add(float64(len(hits)))
	metrics.DirectoryCacheLookups.WithLabelValues("miss").Add(float64(len(misses)))
	return hits, misses
}

func (d *Directory) store(ctx context.Context, entries []domain.DirectoryEntry) {
	if d.redis == nil || d.ttl == 0 || len(entries) == 0 {
		return
	}
	pipe := d.redis.Pipeline()
	for _, e := range entries {
		pipe.Set(ctx, nameCacheKey(e.Email), e.Name, d.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("failed to cache directory entries", "error", err)
	}
}

func nameCacheKey(email domain.Email) string {
	return "directory:name:" + strings.ToLower(email)
}
