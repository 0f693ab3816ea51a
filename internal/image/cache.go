package image

import (
	"encoding/json"
	"fmt"

	"github.com/DMarby/image-api/internal/cache"
	"github.com/DMarby/image-api/internal/tracing"
	"github.com/twmb/murmur3"
)

// Cache is a cache of processing results
type Cache = cache.Auto

// NewCache instantiates a new result cache
func NewCache(tracer *tracing.Tracer, cacheProvider cache.Provider) *Cache {
	return &Cache{
		Tracer:   tracer,
		Provider: cacheProvider,
	}
}

// CacheKey returns the cache key for a task applied to an upload
func CacheKey(data []byte, task Task) (string, error) {
	params, err := json.Marshal(task)
	if err != nil {
		return "", err
	}

	// Hash the parameters and the upload using murmur3
	hash := murmur3.New128()
	hash.Write(params)
	hash.Write([]byte{0})
	hash.Write(data)
	h1, h2 := hash.Sum128()

	return fmt.Sprintf("%s:%016x%016x:%d", task.Operation(), h1, h2, len(data)), nil
}
