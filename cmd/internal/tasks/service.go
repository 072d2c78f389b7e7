package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskflow/cmd/identity/ids"
	"taskflow/cmd/internal/dbx"
)

// Service implements task and tag use cases. Task operations are scoped to
// the calling owner: another owner's task is reported as not found.
type Service struct {
	store Store
	pub   Publisher
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sends task events to p after each committed write.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithClock overrides the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires a Service over store.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("tasks: nil store")
	}
	s := &Service{
		store: store,
		pub:   nopPublisher{},
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// ---- tasks ----

// ListTasks returns a page of the owner's tasks.
func (s *Service) ListTasks(ctx context.Context, ownerID int64, page dbx.Page) ([]Task, error) {
	return s.store.ListTasks(ctx, ownerID, page.Normalize())
}

// GetTask returns the owner's task id.
func (s *Service) GetTask(ctx context.Context, ownerID, id int64) (Task, error) {
	return s.store.GetTask(ctx, ownerID, id)
}

// CreateTask validates and stores a new task for ownerID.
func (s *Service) CreateTask(ctx context.Context, ownerID int64, in NewTask) (Task, error) {
	const op = "tasks.CreateTask"

	in.Title = strings.TrimSpace(in.Title)
	if err := validateTask(op, in.Title, in.Priority); err != nil {
		return Task{}, err
	}
	in.TagIDs = dedupeIDs(in.TagIDs)

	t, err := s.store.CreateTask(ctx, ownerID, in, s.now())
	if err != nil {
		return Task{}, err
	}
	s.publish(ctx, EventTaskCreated, ownerID, t.ID, &t)
	return t, nil
}

// UpdateTask applies patch to the owner's task id.
func (s *Service) UpdateTask(ctx context.Context, ownerID, id int64, patch TaskPatch) (Task, error) {
	const op = "tasks.UpdateTask"

	cur, err := s.store.GetTask(ctx, ownerID, id)
	if err != nil {
		return Task{}, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	next := cur
	applyPatch(&next, patch)
	if err := validateTask(op, next.Title, next.Priority); err != nil {
		return Task{}, err
	}
	if patch.TagIDs != nil {
		ids := dedupeIDs(*patch.TagIDs)
		patch.TagIDs = &ids
	}

	t, err := s.store.UpdateTask(ctx, ownerID, id, patch, s.now())
	if err != nil {
		return Task{}, err
	}
	s.publish(ctx, EventTaskUpdated, ownerID, t.ID, &t)
	return t, nil
}

// DeleteTask removes the owner's task id.
func (s *Service) DeleteTask(ctx context.Context, ownerID, id int64) error {
	if err := s.store.DeleteTask(ctx, ownerID, id); err != nil {
		return err
	}
	s.publish(ctx, EventTaskDeleted, ownerID, id, nil)
	return nil
}

func (s *Service) publish(ctx context.Context, kind string, ownerID, taskID int64, t *Task) {
	at := s.now()
	s.pub.Publish(ctx, Event{
		ID:      ids.MustULID(at),
		Kind:    kind,
		OwnerID: ownerID,
		TaskID:  taskID,
		Task:    t,
		At:      at,
	})
}

// ---- tags ----

// ListTags returns a page of tags.
func (s *Service) ListTags(ctx context.Context, page dbx.Page) ([]Tag, error) {
	return s.store.ListTags(ctx, page.Normalize())
}

// GetTag loads tag id.
func (s *Service) GetTag(ctx context.Context, id int64) (Tag, error) {
	return s.store.GetTag(ctx, id)
}

// TagByName loads the tag with exactly name.
func (s *Service) TagByName(ctx context.Context, name string) (Tag, error) {
	return s.store.GetTagByName(ctx, strings.TrimSpace(name))
}

// CreateTag validates and stores a tag. Names are unique and case-sensitive.
func (s *Service) CreateTag(ctx context.Context, in NewTag) (Tag, error) {
	const op = "tasks.CreateTag"

	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	if in.Color == "" {
		in.Color = DefaultTagColor
	}
	if err := validateTag(op, in.Name, in.Color); err != nil {
		return Tag{}, err
	}
	if err := s.ensureTagName(ctx, op, in.Name, 0); err != nil {
		return Tag{}, err
	}
	return s.store.CreateTag(ctx, in, s.now())
}

// UpdateTag applies patch to tag id.
func (s *Service) UpdateTag(ctx context.Context, id int64, patch TagPatch) (Tag, error) {
	const op = "tasks.UpdateTag"

	cur, err := s.store.GetTag(ctx, id)
	if err != nil {
		return Tag{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
		cur.Name = name
	}
	if patch.Color != nil {
		color := strings.TrimSpace(*patch.Color)
		patch.Color = &color
		cur.Color = color
	}
	if err := validateTag(op, cur.Name, cur.Color); err != nil {
		return Tag{}, err
	}
	if patch.Name != nil {
		if err := s.ensureTagName(ctx, op, cur.Name, id); err != nil {
			return Tag{}, err
		}
	}
	return s.store.UpdateTag(ctx, id, patch, s.now())
}

// DeleteTag removes tag id from the catalogue and from every task.
func (s *Service) DeleteTag(ctx context.Context, id int64) error {
	return s.store.DeleteTag(ctx, id)
}

// ensureTagName reports a ConflictError when name belongs to a tag other
// than selfID. The unique constraint still catches races.
func (s *Service) ensureTagName(ctx context.Context, op, name string, selfID int64) error {
	g, err := s.store.GetTagByName(ctx, name)
	if err == nil {
		if g.ID != selfID {
			return ConflictError{Op: op, Field: "name"}
		}
		return nil
	}
	if IsNotFound(err) {
		return nil
	}
	return err
}
