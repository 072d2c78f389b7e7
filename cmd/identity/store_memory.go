package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taskflow/cmd/internal/dbx"
)

// MemoryStore is an in-process Store used when no database is configured
// and by handler tests. Ids are assigned sequentially from 1.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]User
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[int64]User)}
}

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.GetByID", Resource: "user"}
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.find(ctx, "identity.GetByUsername", func(u User) bool {
		return NormalizeUsername(u.Username) == NormalizeUsername(username)
	})
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.find(ctx, "identity.GetByEmail", func(u User) bool {
		return NormalizeEmail(u.Email) == NormalizeEmail(email)
	})
}

func (s *MemoryStore) find(ctx context.Context, op string, match func(User) bool) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byID {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return User{}, NotFoundError{Op: op, Resource: "user"}
}

func (s *MemoryStore) Create(ctx context.Context, in NewUser) (User, error) {
	const op = "identity.Create"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(in.HashedPassword) == "" {
		return User{}, invalid(op, "hashed password is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := User{
		Email:          strings.TrimSpace(in.Email),
		Username:       strings.TrimSpace(in.Username),
		FullName:       trimPtr(in.FullName),
		HashedPassword: in.HashedPassword,
		IsActive:       in.IsActive,
		IsSuperuser:    in.IsSuperuser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if field, clash := s.clashLocked(u, 0); clash {
		return User{}, ConflictError{Op: op, Field: field}
	}

	s.nextID++
	u.ID = s.nextID
	s.byID[u.ID] = u
	return cloneUser(u), nil
}

func (s *MemoryStore) Update(ctx context.Context, u User) (User, error) {
	const op = "identity.Update"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[u.ID]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if field, clash := s.clashLocked(u, u.ID); clash {
		return User{}, ConflictError{Op: op, Field: field}
	}

	u.CreatedAt = cur.CreatedAt
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = time.Now().UTC()
	}
	u.Email = strings.TrimSpace(u.Email)
	u.Username = strings.TrimSpace(u.Username)
	u.FullName = trimPtr(u.FullName)
	s.byID[u.ID] = u
	return cloneUser(u), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return NotFoundError{Op: "identity.Delete", Resource: "user"}
	}
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, page dbx.Page) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page = page.Normalize()

	s.mu.RLock()
	all := make([]User, 0, len(s.byID))
	for _, u := range s.byID {
		all = append(all, cloneUser(u))
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if page.Skip >= len(all) {
		return []User{}, nil
	}
	all = all[page.Skip:]
	if len(all) > page.Limit {
		all = all[:page.Limit]
	}
	return all, nil
}

// clashLocked checks email first, then username, skipping selfID.
func (s *MemoryStore) clashLocked(u User, selfID int64) (string, bool) {
	email := NormalizeEmail(u.Email)
	username := NormalizeUsername(u.Username)
	for id, other := range s.byID {
		if id == selfID {
			continue
		}
		if NormalizeEmail(other.Email) == email {
			return "email", true
		}
	}
	for id, other := range s.byID {
		if id == selfID {
			continue
		}
		if NormalizeUsername(other.Username) == username {
			return "username", true
		}
	}
	return "", false
}

func cloneUser(u User) User {
	if u.FullName != nil {
		fn := *u.FullName
		u.FullName = &fn
	}
	return u
}
