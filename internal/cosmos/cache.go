package cosmos

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
)

// CacheKey derives the content address for a pipeline run from its natural
// input identifier (the discussion's source URL or id). SHA-256 of the
// trimmed identifier; collisions are not disambiguated.
func CacheKey(sourceID string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(sourceID)))
	return hex.EncodeToString(sum[:])
}

// softCache wraps a ResultCache so that a misbehaving backing store can
// never block or fail the pipeline: read errors degrade to a miss, write
// errors are logged and swallowed.
type softCache struct {
	inner  ResultCache
	logger *log.Logger
}

func newSoftCache(inner ResultCache, logger *log.Logger) *softCache {
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}
	return &softCache{inner: inner, logger: logger}
}

func (s *softCache) Get(ctx context.Context, key string) *CachedLayout {
	if s.inner == nil {
		return nil
	}
	rec, err := s.inner.Get(ctx, key)
	if err != nil {
		s.logger.Printf("cache read failed for %s, treating as miss: %v", key, err)
		return nil
	}
	return rec
}

func (s *softCache) Set(ctx context.Context, key string, rec *CachedLayout) {
	if s.inner == nil {
		return
	}
	if err := s.inner.Set(ctx, key, rec); err != nil {
		s.logger.Printf("cache write failed for %s, ignoring: %v", key, err)
	}
}
