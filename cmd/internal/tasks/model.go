package tasks

import (
	"context"
	"time"

	"taskflow/cmd/internal/dbx"
)

// Priority levels.
const (
	PriorityLow    = 0
	PriorityMedium = 1
	PriorityHigh   = 2
)

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#3B82F6"

// Column limits shared by validation and the schema.
const (
	MaxTitleLen   = 255
	MaxTagNameLen = 100
)

// Tag is a global label.
type Tag struct {
	ID        int64
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Task is a personal to-do item. Tags are ordered by id.
type Task struct {
	ID          int64
	Title       string
	Description *string
	IsCompleted bool
	Priority    int
	OwnerID     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tags        []Tag
}

// NewTask is the input for creating a task. Unknown TagIDs are dropped.
type NewTask struct {
	Title       string
	Description *string
	Priority    int
	IsCompleted bool
	TagIDs      []int64
}

// TaskPatch is a partial update. A non-nil TagIDs replaces the whole tag set,
// including with an empty slice.
type TaskPatch struct {
	Title       *string
	Description *string
	IsCompleted *bool
	Priority    *int
	TagIDs      *[]int64
}

// NewTag is the input for creating a tag. An empty Color means DefaultTagColor.
type NewTag struct {
	Name  string
	Color string
}

// TagPatch is a partial tag update.
type TagPatch struct {
	Name  *string
	Color *string
}

// TaskStore persists tasks. Every method filters on ownerID.
type TaskStore interface {
	ListTasks(ctx context.Context, ownerID int64, page dbx.Page) ([]Task, error)
	GetTask(ctx context.Context, ownerID, id int64) (Task, error)
	CreateTask(ctx context.Context, ownerID int64, in NewTask, now time.Time) (Task, error)
	UpdateTask(ctx context.Context, ownerID, id int64, patch TaskPatch, now time.Time) (Task, error)
	DeleteTask(ctx context.Context, ownerID, id int64) error
}

// TagStore persists global tags.
type TagStore interface {
	ListTags(ctx context.Context, page dbx.Page) ([]Tag, error)
	GetTag(ctx context.Context, id int64) (Tag, error)
	GetTagByName(ctx context.Context, name string) (Tag, error)
	CreateTag(ctx context.Context, in NewTag, now time.Time) (Tag, error)
	UpdateTag(ctx context.Context, id int64, patch TagPatch, now time.Time) (Tag, error)
	DeleteTag(ctx context.Context, id int64) error
}

// Store is the full persistence boundary.
type Store interface {
	TaskStore
	TagStore
}

// dedupeIDs keeps the first occurrence of each positive id.
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
