package tasks

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/cmd/internal/dbx"
)

var joinedCols = []string{
	"id", "title", "description", "is_completed", "priority", "owner_id", "created_at", "updated_at",
	"id", "name", "color", "created_at", "updated_at",
}

var tagCols = []string{"id", "name", "color", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewPostgresStore(db, WithSchema("app"))
	require.NoError(t, err)
	return s, mock
}

func TestNewPostgresStore_Validation(t *testing.T) {
	_, err := NewPostgresStore(nil)
	require.Error(t, err)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewPostgresStore(db, WithSchema("x y"))
	require.Error(t, err)
}

func TestPostgresStore_ListTasks_FoldsJoinedRows(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM \(SELECT \* FROM "app"\."tasks" WHERE owner_id = \$1 ORDER BY id OFFSET \$2 LIMIT \$3\) t LEFT JOIN "app"\."task_tags" tt .+ LEFT JOIN "app"\."tags" g .+ ORDER BY t\.id, g\.id`).
		WithArgs(int64(7), 0, 100).
		WillReturnRows(sqlmock.NewRows(joinedCols).
			AddRow(int64(1), "Write report", "Q2", false, 2, int64(7), now, now, int64(1), "Urgente", "#EF4444", now, now).
			AddRow(int64(1), "Write report", "Q2", false, 2, int64(7), now, now, int64(4), "Trabajo", "#3B82F6", now, now).
			AddRow(int64(2), "Gym", nil, true, 0, int64(7), now, now, nil, nil, nil, nil, nil))

	out, err := s.ListTasks(context.Background(), 7, dbx.Page{Limit: 500})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "Q2", *out[0].Description)
	require.Len(t, out[0].Tags, 2)
	assert.Equal(t, "Urgente", out[0].Tags[0].Name)
	assert.Equal(t, int64(4), out[0].Tags[1].ID)

	assert.Nil(t, out[1].Description)
	assert.NotNil(t, out[1].Tags)
	assert.Empty(t, out[1].Tags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTask_FiltersOnOwner(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(int64(3), int64(99)).
		WillReturnRows(sqlmock.NewRows(joinedCols))

	_, err := s.GetTask(context.Background(), 99, 3)
	require.True(t, IsNotFound(err), "got %v", err)

	var nf NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "task", nf.Resource)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateTask_LinksTagsInTx(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "app"\."tasks"`).
		WithArgs("Plan", nil, false, 1, int64(7), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectExec(`INSERT INTO "app"\."task_tags" \(task_id, tag_id\) SELECT \$1, id FROM "app"\."tags" WHERE id IN \(\$2, \$3\) ON CONFLICT DO NOTHING`).
		WithArgs(int64(10), int64(2), int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(int64(10), int64(7)).
		WillReturnRows(sqlmock.NewRows(joinedCols).
			AddRow(int64(10), "Plan", nil, false, 1, int64(7), now, now, int64(2), "Importante", "#F59E0B", now, now))
	mock.ExpectCommit()

	got, err := s.CreateTask(context.Background(), 7, NewTask{Title: "Plan", Priority: 1, TagIDs: []int64{2, 404, 2}}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.ID)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "Importante", got.Tags[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateTask_UnknownOwner(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "app"\."tasks"`).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "tasks_owner_id_fkey"})
	mock.ExpectRollback()

	_, err := s.CreateTask(context.Background(), 42, NewTask{Title: "x"}, now)
	require.True(t, IsNotFound(err), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateTask_NotOwnedRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT title, description, is_completed, priority FROM "app"\."tasks" WHERE id = \$1 AND owner_id = \$2 FOR UPDATE`).
		WithArgs(int64(5), int64(2)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	title := "new"
	_, err := s.UpdateTask(context.Background(), 2, 5, TaskPatch{Title: &title}, time.Now())
	require.True(t, IsNotFound(err), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateTask_ReplacesTagSet(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	done := true
	empty := []int64{}

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(int64(5), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"title", "description", "is_completed", "priority"}).
			AddRow("Old", "desc", false, 0))
	mock.ExpectExec(`UPDATE "app"\."tasks"`).
		WithArgs("Old", "desc", true, 0, now, int64(5), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "app"\."task_tags" WHERE task_id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(int64(5), int64(2)).
		WillReturnRows(sqlmock.NewRows(joinedCols).
			AddRow(int64(5), "Old", "desc", true, 0, int64(2), now, now, nil, nil, nil, nil, nil))
	mock.ExpectCommit()

	got, err := s.UpdateTask(context.Background(), 2, 5, TaskPatch{IsCompleted: &done, TagIDs: &empty}, now)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Empty(t, got.Tags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteTask_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM "app"\."tasks" WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(int64(5), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteTask(context.Background(), 1, 5)
	require.True(t, IsNotFound(err), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateTag_DuplicateName(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO "app"\."tags"`).
		WithArgs("Urgente", "#EF4444", now).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_tags_name"})

	_, err := s.CreateTag(context.Background(), NewTag{Name: "Urgente", Color: "#EF4444"}, now)
	require.True(t, IsConflict(err), "got %v", err)

	var ce ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "name", ce.Field)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateTag_PartialAndMissing(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	color := "#10B981"

	mock.ExpectQuery(`UPDATE "app"\."tags" SET name = COALESCE\(\$1, name\), color = COALESCE\(\$2, color\)`).
		WithArgs(nil, "#10B981", now, int64(3)).
		WillReturnRows(sqlmock.NewRows(tagCols).AddRow(int64(3), "Ideas", "#10B981", now, now))
	mock.ExpectQuery(`UPDATE "app"\."tags"`).
		WithArgs(nil, "#10B981", now, int64(4)).
		WillReturnError(sql.ErrNoRows)

	g, err := s.UpdateTag(context.Background(), 3, TagPatch{Color: &color}, now)
	require.NoError(t, err)
	assert.Equal(t, "Ideas", g.Name)

	_, err = s.UpdateTag(context.Background(), 4, TagPatch{Color: &color}, now)
	require.True(t, IsNotFound(err), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListTags_NormalizesPage(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, name, color, created_at, updated_at FROM "app"\."tags" ORDER BY id OFFSET \$1 LIMIT \$2`).
		WithArgs(0, 100).
		WillReturnRows(sqlmock.NewRows(tagCols).AddRow(int64(1), "Urgente", "#EF4444", now, now))

	out, err := s.ListTags(context.Background(), dbx.Page{Skip: -3})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteTag(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM "app"\."tags" WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "app"\."tags" WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.DeleteTag(context.Background(), 1))
	require.True(t, IsNotFound(s.DeleteTag(context.Background(), 2)))
	require.NoError(t, mock.ExpectationsWereMet())
}
