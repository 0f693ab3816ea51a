package memory_test

import (
	"context"
	"testing"

	"github.com/DMarby/image-api/internal/cache"
	"github.com/DMarby/image-api/internal/cache/memory"
)

func TestMemory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := memory.New(2)

	t.Run("get item", func(t *testing.T) {
		// Add item to the cache
		provider.Set(ctx, "foo", []byte("bar"))

		// Get item from the cache
		data, err := provider.Get(ctx, "foo")
		if err != nil {
			t.Fatal(err)
		}

		if string(data) != "bar" {
			t.Fatal("wrong data")
		}
	})

	t.Run("get nonexistant item", func(t *testing.T) {
		_, err := provider.Get(ctx, "notfound")
		if err == nil {
			t.Fatal("no error")
		}

		if err != cache.ErrNotFound {
			t.Fatalf("wrong error %s", err)
		}
	})

	t.Run("evicts the least recently used item", func(t *testing.T) {
		provider.Set(ctx, "a", []byte("a"))
		// foo is now the oldest, touch it so a is evicted instead
		provider.Get(ctx, "foo")
		provider.Set(ctx, "b", []byte("b"))

		if provider.Len() != 2 {
			t.Fatalf("wrong length %d", provider.Len())
		}

		if _, err := provider.Get(ctx, "a"); err != cache.ErrNotFound {
			t.Errorf("a wasn't evicted: %v", err)
		}

		if _, err := provider.Get(ctx, "foo"); err != nil {
			t.Errorf("foo was evicted: %v", err)
		}
	})
}
