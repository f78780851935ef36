package repository

import (
	"context"
	"testing"
	"time"

	"github.com/designmaster/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepositoryProgressIsolatedFromTemplate(t *testing.T) {
	db := newTestDB(t)
	tpl := seedTemplate(t, db, 1, false)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Session{ID: "a", TemplateID: tpl.ID, OwnerID: 1, State: "in_progress"}))
	require.NoError(t, repo.Create(ctx, &model.Session{ID: "b", TemplateID: tpl.ID, OwnerID: 1, State: "in_progress"}))

	first, err := repo.NextIncomplete(ctx, "a", tpl.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 0, first.Order)

	require.NoError(t, repo.MarkStepComplete(ctx, "a", first.ID))
	require.NoError(t, repo.MarkStepComplete(ctx, "a", first.ID))

	next, err := repo.NextIncomplete(ctx, "a", tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next.Order)

	other, err := repo.NextIncomplete(ctx, "b", tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, other.Order)

	remaining, err := repo.CountIncomplete(ctx, "a", tpl.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, remaining)

	// 重复标记不产生重复记录
	var steps int64
	require.NoError(t, db.Model(&model.SessionStep{}).Where("session_id = ?", "a").Count(&steps).Error)
	assert.EqualValues(t, 1, steps)

	templateRemaining, err := NewPromptRepository(db).CountIncomplete(ctx, tpl.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, templateRemaining)
}

func TestSessionRepositoryUpsertValueKeepsOneRow(t *testing.T) {
	db := newTestDB(t)
	tpl := seedTemplate(t, db, 1, false)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.Session{ID: "a", TemplateID: tpl.ID, OwnerID: 1}))

	pid := tpl.Placeholders[0].ID
	require.NoError(t, repo.UpsertValue(ctx, "a", pid, "v1"))
	require.NoError(t, repo.UpsertValue(ctx, "a", pid, "v2"))

	values, err := repo.Values(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{pid: "v2"}, values)

	var count int64
	db.Model(&model.SessionValue{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestSessionRepositoryUpdateState(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.Session{ID: "a", TemplateID: 1, OwnerID: 1, State: "ready"}))

	now := time.Now()
	require.NoError(t, repo.UpdateState(ctx, "a", "generated", &now))

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "generated", got.State)
	assert.NotNil(t, got.GeneratedAt)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := repo.ListByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
