package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolvr/backend/internal/db"
)

func TestKnowledgeBase(t *testing.T) {
	kb := &KnowledgeBase{Store: db.NewMemoryStore(), Clock: fixedClock}
	ctx := context.Background()

	router, err := kb.Add(ctx, ArticleRequest{Title: " Router reset ", Content: "Hold the button for ten seconds", Tags: []string{"Network, wifi", "network"}})
	require.NoError(t, err)
	assert.Equal(t, "Router reset", router.Title)
	assert.Equal(t, []string{"network", "wifi"}, router.Tags)

	_, err = kb.Add(ctx, ArticleRequest{Title: "Refunds", Content: "Billing refunds take five days"})
	require.NoError(t, err)

	hits, err := kb.Search(ctx, "WIFI")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, router.ID, hits[0].ID)
	assert.Equal(t, 1, hits[0].UsageCount)

	empty, err := kb.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	popular, err := kb.Popular(ctx)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, router.ID, popular[0].ID)
}
