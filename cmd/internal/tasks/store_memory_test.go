package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/cmd/internal/dbx"
)

func TestMemoryStore_TasksAreOwnerScoped(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	mine, err := s.CreateTask(ctx, 1, NewTask{Title: "mine"}, now)
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, 2, NewTask{Title: "theirs"}, now)
	require.NoError(t, err)

	list, err := s.ListTasks(ctx, 1, dbx.Page{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	_, err = s.GetTask(ctx, 2, mine.ID)
	require.True(t, IsNotFound(err))
	_, err = s.UpdateTask(ctx, 2, mine.ID, TaskPatch{}, now)
	require.True(t, IsNotFound(err))
	require.True(t, IsNotFound(s.DeleteTask(ctx, 2, mine.ID)))

	require.NoError(t, s.DeleteTask(ctx, 1, mine.ID))
	_, err = s.GetTask(ctx, 1, mine.ID)
	require.True(t, IsNotFound(err))
}

func TestMemoryStore_TagLinks(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	b, err := s.CreateTag(ctx, NewTag{Name: "B", Color: DefaultTagColor}, now)
	require.NoError(t, err)
	a, err := s.CreateTag(ctx, NewTag{Name: "A", Color: DefaultTagColor}, now)
	require.NoError(t, err)

	task, err := s.CreateTask(ctx, 1, NewTask{Title: "t", TagIDs: []int64{a.ID, 999, b.ID}}, now)
	require.NoError(t, err)
	require.Len(t, task.Tags, 2)
	assert.Equal(t, b.ID, task.Tags[0].ID, "tags ordered by id")

	require.NoError(t, s.DeleteTag(ctx, b.ID))
	task, err = s.GetTask(ctx, 1, task.ID)
	require.NoError(t, err)
	require.Len(t, task.Tags, 1)
	assert.Equal(t, "A", task.Tags[0].Name)

	_, err = s.CreateTag(ctx, NewTag{Name: "A", Color: DefaultTagColor}, now)
	require.True(t, IsConflict(err))
}

func TestMemoryStore_ListTasksPaginates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		_, err := s.CreateTask(ctx, 1, NewTask{Title: "t"}, now)
		require.NoError(t, err)
	}

	page, err := s.ListTasks(ctx, 1, dbx.Page{Skip: 3, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(4), page[0].ID)

	page, err = s.ListTasks(ctx, 1, dbx.Page{Skip: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}
