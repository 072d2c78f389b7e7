package taskapi

import (
	"time"

	"taskflow/cmd/internal/tasks"
)

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Priority    *int    `json:"priority"`
	IsCompleted *bool   `json:"is_completed"`
	TagIDs      []int64 `json:"tag_ids"`
}

// updateTaskRequest distinguishes an absent tag_ids (nil) from an empty list.
type updateTaskRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Priority    *int     `json:"priority"`
	IsCompleted *bool    `json:"is_completed"`
	TagIDs      *[]int64 `json:"tag_ids"`
}

type createTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type updateTagRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

type tagResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type taskResponse struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	IsCompleted bool          `json:"is_completed"`
	Priority    int           `json:"priority"`
	OwnerID     int64         `json:"owner_id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Tags        []tagResponse `json:"tags"`
}

func toTagResponse(g tasks.Tag) tagResponse {
	return tagResponse{
		ID:        g.ID,
		Name:      g.Name,
		Color:     g.Color,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func toTagResponses(in []tasks.Tag) []tagResponse {
	out := make([]tagResponse, 0, len(in))
	for _, g := range in {
		out = append(out, toTagResponse(g))
	}
	return out
}

func toTaskResponse(t tasks.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		Priority:    t.Priority,
		OwnerID:     t.OwnerID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Tags:        toTagResponses(t.Tags),
	}
}

func toTaskResponses(in []tasks.Task) []taskResponse {
	out := make([]taskResponse, 0, len(in))
	for _, t := range in {
		out = append(out, toTaskResponse(t))
	}
	return out
}
