package tasks

import (
	"context"
	"time"
)

// Event kinds published after a successful task write.
const (
	EventTaskCreated = "task.created"
	EventTaskUpdated = "task.updated"
	EventTaskDeleted = "task.deleted"
)

// Event describes a committed change to one owner's task.
// Task is nil for deletions.
type Event struct {
	ID      string
	Kind    string
	OwnerID int64
	TaskID  int64
	Task    *Task
	At      time.Time
}

// Publisher receives task events. Publish must not block the caller for long;
// slow subscribers are the publisher's problem.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event)

func (f PublisherFunc) Publish(ctx context.Context, ev Event) { f(ctx, ev) }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}
