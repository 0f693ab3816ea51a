package mock

import (
	"context"
	"fmt"

	"github.com/DMarby/image-api/internal/cache"
)

// Provider is a mock cache.
// The keys "notfound", "loaderror" and "seterror" miss, "error" fails, anything else hits with "cached".
type Provider struct{}

// Get returns an object from the cache if it exists
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	switch key {
	case "notfound", "loaderror", "seterror":
		return nil, cache.ErrNotFound
	case "error":
		return nil, fmt.Errorf("error")
	}

	return []byte("cached"), nil
}

// Set adds an object to the cache
func (p *Provider) Set(ctx context.Context, key string, data []byte) (err error) {
	if key == "seterror" {
		return fmt.Errorf("seterror")
	}

	return nil
}

// Shutdown shuts down the cache
func (p *Provider) Shutdown() {}
