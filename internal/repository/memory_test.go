package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akave-ai/auditlens/internal/model"
)

func TestMemoryInputRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryInputRepository()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	first := &model.Input{Type: "http", Title: "methods", Kind: model.KindMethod, DesiredState: model.InputStateRunning}
	second := &model.Input{Type: "http", Title: "requests", Kind: model.KindRequest, DesiredState: model.InputStateRunning}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Error(t, repo.Create(ctx, first))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "requests", list[0].Title)

	require.NoError(t, repo.UpdateState(ctx, first.ID, model.InputStateStopped))
	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InputStateStopped, got.DesiredState)

	found, err := repo.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, found)
	found, err = repo.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, found)

	got, err = repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, repo.UpdateState(ctx, first.ID, model.InputStateRunning), ErrNotFound)
}
