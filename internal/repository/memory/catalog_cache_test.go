package memory

import (
	"context"
	"testing"

	"madlen-ai-be/pkg/openrouter"

	"github.com/stretchr/testify/assert"
)

func TestCatalogCacheMissThenHit(t *testing.T) {
	cache := NewCatalogCache(nil)
	ctx := context.Background()

	_, found := cache.Get(ctx)
	assert.False(t, found)

	models := []openrouter.ModelInfo{
		{ID: "ns/a:free", Name: "A", Provider: "Ns", ContextLength: 8192, IsFree: true},
	}
	cache.Set(ctx, models)

	got, found := cache.Get(ctx)
	assert.True(t, found)
	assert.Equal(t, models, got)
}
