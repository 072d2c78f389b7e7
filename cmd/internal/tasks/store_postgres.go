package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskflow/cmd/internal/dbx"
)

// PostgresStore implements Store over PostgreSQL through database/sql.
//
// Task reads join task_tags and tags in one statement and fold the rows.
// Task writes run in a transaction and return the joined row read inside it.
type PostgresStore struct {
	db     *sql.DB
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the schema holding the tables (default "public").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		if err := dbx.ValidSchema(schema); err != nil {
			return fmt.Errorf("tasks: %w", err)
		}
		s.schema = strings.TrimSpace(schema)
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore. The caller owns db.
func NewPostgresStore(db *sql.DB, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{db: db, schema: "public"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.db == nil {
		return nil, fmt.Errorf("tasks: nil db")
	}
	return st, nil
}

func (s *PostgresStore) tasks() string    { return dbx.Ident(s.schema, "tasks") }
func (s *PostgresStore) tags() string     { return dbx.Ident(s.schema, "tags") }
func (s *PostgresStore) taskTags() string { return dbx.Ident(s.schema, "task_tags") }

// ---- tasks ----

const taskJoinColumns = `t.id, t.title, t.description, t.is_completed, t.priority, t.owner_id, t.created_at, t.updated_at,
       g.id, g.name, g.color, g.created_at, g.updated_at`

// joinFrom wraps a tasks subquery (aliased t) with the tag joins.
func (s *PostgresStore) joinFrom(taskSubquery string) string {
	return `SELECT ` + taskJoinColumns + `
	  FROM (` + taskSubquery + `) t
	  LEFT JOIN ` + s.taskTags() + ` tt ON tt.task_id = t.id
	  LEFT JOIN ` + s.tags() + ` g ON g.id = tt.tag_id
	 ORDER BY t.id, g.id`
}

// ListTasks returns one page of the owner's tasks ordered by id.
func (s *PostgresStore) ListTasks(ctx context.Context, ownerID int64, page dbx.Page) ([]Task, error) {
	page = page.Normalize()
	q := s.joinFrom(`SELECT * FROM ` + s.tasks() + ` WHERE owner_id = $1 ORDER BY id OFFSET $2 LIMIT $3`)
	return queryTasks(ctx, s.db, q, ownerID, page.Skip, page.Limit)
}

// GetTask returns the task only when it belongs to ownerID.
func (s *PostgresStore) GetTask(ctx context.Context, ownerID, id int64) (Task, error) {
	return s.getTask(ctx, s.db, "tasks.GetTask", ownerID, id)
}

func (s *PostgresStore) getTask(ctx context.Context, db dbx.DBTX, op string, ownerID, id int64) (Task, error) {
	q := s.joinFrom(`SELECT * FROM ` + s.tasks() + ` WHERE id = $1 AND owner_id = $2`)
	out, err := queryTasks(ctx, db, q, id, ownerID)
	if err != nil {
		return Task{}, err
	}
	if len(out) == 0 {
		return Task{}, taskNotFound(op)
	}
	return out[0], nil
}

// CreateTask inserts the task and its tag links in one transaction.
func (s *PostgresStore) CreateTask(ctx context.Context, ownerID int64, in NewTask, now time.Time) (Task, error) {
	const op = "tasks.CreateTask"

	var out Task
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO `+s.tasks()+` (title, description, is_completed, priority, owner_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $6)
			 RETURNING id`,
			in.Title, in.Description, in.IsCompleted, in.Priority, ownerID, now,
		).Scan(&id)
		if err != nil {
			if dbx.IsForeignKeyViolation(err) {
				return NotFoundError{Op: op, Resource: "owner"}
			}
			return err
		}

		if err := s.linkTags(ctx, tx, id, in.TagIDs); err != nil {
			return err
		}

		out, err = s.getTask(ctx, tx, op, ownerID, id)
		return err
	})
	if err != nil {
		return Task{}, err
	}
	return out, nil
}

// UpdateTask applies patch to the owner's task. The row is locked for the
// duration of the transaction.
func (s *PostgresStore) UpdateTask(ctx context.Context, ownerID, id int64, patch TaskPatch, now time.Time) (Task, error) {
	const op = "tasks.UpdateTask"

	var out Task
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var (
			cur  Task
			desc sql.NullString
		)
		err := tx.QueryRowContext(ctx,
			`SELECT title, description, is_completed, priority
			   FROM `+s.tasks()+`
			  WHERE id = $1 AND owner_id = $2
			  FOR UPDATE`,
			id, ownerID,
		).Scan(&cur.Title, &desc, &cur.IsCompleted, &cur.Priority)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return taskNotFound(op)
			}
			return err
		}
		if desc.Valid {
			cur.Description = &desc.String
		}
		applyPatch(&cur, patch)

		_, err = tx.ExecContext(ctx,
			`UPDATE `+s.tasks()+`
			    SET title = $1, description = $2, is_completed = $3, priority = $4, updated_at = $5
			  WHERE id = $6 AND owner_id = $7`,
			cur.Title, cur.Description, cur.IsCompleted, cur.Priority, now, id, ownerID,
		)
		if err != nil {
			return err
		}

		if patch.TagIDs != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+s.taskTags()+` WHERE task_id = $1`, id); err != nil {
				return err
			}
			if err := s.linkTags(ctx, tx, id, *patch.TagIDs); err != nil {
				return err
			}
		}

		out, err = s.getTask(ctx, tx, op, ownerID, id)
		return err
	})
	if err != nil {
		return Task{}, err
	}
	return out, nil
}

// DeleteTask removes the owner's task; its tag links cascade.
func (s *PostgresStore) DeleteTask(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM `+s.tasks()+` WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return taskNotFound("tasks.DeleteTask")
	}
	return nil
}

// linkTags associates existing tags with taskID. Ids with no tag row are
// skipped by the SELECT, so unknown ids never fail the write.
func (s *PostgresStore) linkTags(ctx context.Context, tx dbx.DBTX, taskID int64, tagIDs []int64) error {
	ids := dedupeIDs(tagIDs)
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, taskID)
	ph := make([]string, 0, len(ids))
	for i, id := range ids {
		args = append(args, id)
		ph = append(ph, "$"+strconv.Itoa(i+2))
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO `+s.taskTags()+` (task_id, tag_id)
		 SELECT $1, id FROM `+s.tags()+` WHERE id IN (`+strings.Join(ph, ", ")+`)
		 ON CONFLICT DO NOTHING`,
		args...,
	)
	return err
}

// queryTasks folds joined (task, tag) rows into tasks, preserving row order.
func queryTasks(ctx context.Context, db dbx.DBTX, q string, args ...any) ([]Task, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	index := make(map[int64]int)

	for rows.Next() {
		var (
			t       Task
			desc    sql.NullString
			tagID   sql.NullInt64
			tagName sql.NullString
			color   sql.NullString
			tagCAt  sql.NullTime
			tagUAt  sql.NullTime
		)
		if err := rows.Scan(
			&t.ID, &t.Title, &desc, &t.IsCompleted, &t.Priority, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt,
			&tagID, &tagName, &color, &tagCAt, &tagUAt,
		); err != nil {
			return nil, err
		}

		i, seen := index[t.ID]
		if !seen {
			if desc.Valid {
				d := desc.String
				t.Description = &d
			}
			t.Tags = []Tag{}
			out = append(out, t)
			i = len(out) - 1
			index[t.ID] = i
		}
		if tagID.Valid {
			out[i].Tags = append(out[i].Tags, Tag{
				ID:        tagID.Int64,
				Name:      tagName.String,
				Color:     color.String,
				CreatedAt: tagCAt.Time,
				UpdatedAt: tagUAt.Time,
			})
		}
	}
	return out, rows.Err()
}

func applyPatch(t *Task, p TaskPatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		d := *p.Description
		t.Description = &d
	}
	if p.IsCompleted != nil {
		t.IsCompleted = *p.IsCompleted
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
}

// ---- tags ----

const tagColumns = `id, name, color, created_at, updated_at`

func scanTag(row interface{ Scan(...any) error }) (Tag, error) {
	var t Tag
	err := row.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// ListTags returns one page of tags ordered by id.
func (s *PostgresStore) ListTags(ctx context.Context, page dbx.Page) ([]Tag, error) {
	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM `+s.tags()+` ORDER BY id OFFSET $1 LIMIT $2`, page.Skip, page.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Tag, 0)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) getTagWhere(ctx context.Context, op, where string, arg any) (Tag, error) {
	t, err := scanTag(s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM `+s.tags()+` WHERE `+where+` = $1`, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tag{}, tagNotFound(op)
		}
		return Tag{}, err
	}
	return t, nil
}

// GetTag loads a tag by id.
func (s *PostgresStore) GetTag(ctx context.Context, id int64) (Tag, error) {
	return s.getTagWhere(ctx, "tasks.GetTag", "id", id)
}

// GetTagByName loads a tag by exact name.
func (s *PostgresStore) GetTagByName(ctx context.Context, name string) (Tag, error) {
	return s.getTagWhere(ctx, "tasks.GetTagByName", "name", name)
}

// CreateTag inserts a tag.
func (s *PostgresStore) CreateTag(ctx context.Context, in NewTag, now time.Time) (Tag, error) {
	const op = "tasks.CreateTag"

	t, err := scanTag(s.db.QueryRowContext(ctx,
		`INSERT INTO `+s.tags()+` (name, color, created_at, updated_at)
		 VALUES ($1, $2, $3, $3)
		 RETURNING `+tagColumns,
		in.Name, in.Color, now))
	if err != nil {
		if _, ok := dbx.UniqueViolation(err); ok {
			return Tag{}, ConflictError{Op: op, Field: "name"}
		}
		return Tag{}, err
	}
	return t, nil
}

// UpdateTag applies patch to tag id.
func (s *PostgresStore) UpdateTag(ctx context.Context, id int64, patch TagPatch, now time.Time) (Tag, error) {
	const op = "tasks.UpdateTag"

	t, err := scanTag(s.db.QueryRowContext(ctx,
		`UPDATE `+s.tags()+`
		    SET name = COALESCE($1, name), color = COALESCE($2, color), updated_at = $3
		  WHERE id = $4
		 RETURNING `+tagColumns,
		patch.Name, patch.Color, now, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tag{}, tagNotFound(op)
		}
		if _, ok := dbx.UniqueViolation(err); ok {
			return Tag{}, ConflictError{Op: op, Field: "name"}
		}
		return Tag{}, err
	}
	return t, nil
}

// DeleteTag removes a tag; links to tasks cascade.
func (s *PostgresStore) DeleteTag(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+s.tags()+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tagNotFound("tasks.DeleteTag")
	}
	return nil
}
