package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptRepositoryNextIncompleteFollowsOrder(t *testing.T) {
	db := newTestDB(t)
	tpl := seedTemplate(t, db, 1, false)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	for _, want := range []int{0, 1, 2} {
		next, err := repo.NextIncomplete(ctx, tpl.ID)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, want, next.Order)
		require.NoError(t, repo.MarkComplete(ctx, next.ID))
	}

	next, err := repo.NextIncomplete(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Nil(t, next)

	remaining, err := repo.CountIncomplete(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	total, err := repo.Count(ctx, tpl.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestPlaceholderRepositoryUpdateContentOverwrites(t *testing.T) {
	db := newTestDB(t)
	tpl := seedTemplate(t, db, 1, false)
	repo := NewPlaceholderRepository(db)
	ctx := context.Background()
	id := tpl.Placeholders[0].ID

	require.NoError(t, repo.UpdateContent(ctx, id, "first"))
	require.NoError(t, repo.UpdateContent(ctx, id, "second"))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Content)

	list, err := repo.ListByTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
