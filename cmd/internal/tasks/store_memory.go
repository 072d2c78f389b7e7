package tasks

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskflow/cmd/internal/dbx"
)

// MemoryStore is an in-process Store for development and tests.
// Deleting a user does not cascade to their tasks here; the Postgres
// schema handles that with foreign keys.
type MemoryStore struct {
	mu       sync.RWMutex
	nextTask int64
	nextTag  int64
	tasks    map[int64]Task
	taskTags map[int64][]int64
	tags     map[int64]Tag
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:    make(map[int64]Task),
		taskTags: make(map[int64][]int64),
		tags:     make(map[int64]Tag),
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) hydrate(t Task) Task {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	t.Tags = make([]Tag, 0, len(m.taskTags[t.ID]))
	for _, id := range m.taskTags[t.ID] {
		if g, ok := m.tags[id]; ok {
			t.Tags = append(t.Tags, g)
		}
	}
	sort.Slice(t.Tags, func(i, j int) bool { return t.Tags[i].ID < t.Tags[j].ID })
	return t
}

func (m *MemoryStore) knownTags(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range dedupeIDs(ids) {
		if _, ok := m.tags[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (m *MemoryStore) ListTasks(_ context.Context, ownerID int64, page dbx.Page) ([]Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0)
	for id, t := range m.tasks {
		if t.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Task, 0)
	for _, id := range paginate(ids, page) {
		out = append(out, m.hydrate(m.tasks[id]))
	}
	return out, nil
}

func (m *MemoryStore) GetTask(_ context.Context, ownerID, id int64) (Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return Task{}, taskNotFound("tasks.GetTask")
	}
	return m.hydrate(t), nil
}

func (m *MemoryStore) CreateTask(_ context.Context, ownerID int64, in NewTask, now time.Time) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTask++
	t := Task{
		ID:          m.nextTask,
		Title:       in.Title,
		IsCompleted: in.IsCompleted,
		Priority:    in.Priority,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Description != nil {
		d := *in.Description
		t.Description = &d
	}
	m.tasks[t.ID] = t
	m.taskTags[t.ID] = m.knownTags(in.TagIDs)
	return m.hydrate(t), nil
}

func (m *MemoryStore) UpdateTask(_ context.Context, ownerID, id int64, patch TaskPatch, now time.Time) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return Task{}, taskNotFound("tasks.UpdateTask")
	}
	applyPatch(&t, patch)
	t.UpdatedAt = now
	m.tasks[id] = t
	if patch.TagIDs != nil {
		m.taskTags[id] = m.knownTags(*patch.TagIDs)
	}
	return m.hydrate(t), nil
}

func (m *MemoryStore) DeleteTask(_ context.Context, ownerID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return taskNotFound("tasks.DeleteTask")
	}
	delete(m.tasks, id)
	delete(m.taskTags, id)
	return nil
}

func (m *MemoryStore) ListTags(_ context.Context, page dbx.Page) ([]Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.tags))
	for id := range m.tags {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Tag, 0)
	for _, id := range paginate(ids, page) {
		out = append(out, m.tags[id])
	}
	return out, nil
}

func (m *MemoryStore) GetTag(_ context.Context, id int64) (Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.tags[id]
	if !ok {
		return Tag{}, tagNotFound("tasks.GetTag")
	}
	return g, nil
}

func (m *MemoryStore) GetTagByName(_ context.Context, name string) (Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if g, ok := m.tagNamed(name); ok {
		return g, nil
	}
	return Tag{}, tagNotFound("tasks.GetTagByName")
}

func (m *MemoryStore) tagNamed(name string) (Tag, bool) {
	for _, g := range m.tags {
		if g.Name == name {
			return g, true
		}
	}
	return Tag{}, false
}

func (m *MemoryStore) CreateTag(_ context.Context, in NewTag, now time.Time) (Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.tagNamed(in.Name); taken {
		return Tag{}, ConflictError{Op: "tasks.CreateTag", Field: "name"}
	}
	m.nextTag++
	g := Tag{ID: m.nextTag, Name: in.Name, Color: in.Color, CreatedAt: now, UpdatedAt: now}
	m.tags[g.ID] = g
	return g, nil
}

func (m *MemoryStore) UpdateTag(_ context.Context, id int64, patch TagPatch, now time.Time) (Tag, error) {
	const op = "tasks.UpdateTag"

	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.tags[id]
	if !ok {
		return Tag{}, tagNotFound(op)
	}
	if patch.Name != nil {
		if other, taken := m.tagNamed(*patch.Name); taken && other.ID != id {
			return Tag{}, ConflictError{Op: op, Field: "name"}
		}
		g.Name = *patch.Name
	}
	if patch.Color != nil {
		g.Color = *patch.Color
	}
	g.UpdatedAt = now
	m.tags[id] = g
	return g, nil
}

func (m *MemoryStore) DeleteTag(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tags[id]; !ok {
		return tagNotFound("tasks.DeleteTag")
	}
	delete(m.tags, id)
	for taskID, linked := range m.taskTags {
		kept := linked[:0]
		for _, t := range linked {
			if t != id {
				kept = append(kept, t)
			}
		}
		m.taskTags[taskID] = kept
	}
	return nil
}

func paginate(ids []int64, page dbx.Page) []int64 {
	page = page.Normalize()
	if page.Skip >= len(ids) {
		return nil
	}
	end := page.Skip + page.Limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[page.Skip:end]
}
