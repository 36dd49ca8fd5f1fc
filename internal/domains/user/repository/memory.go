package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	user "nwitter-backend/internal/domains/user"
)

// memoryRepository backs STORAGE_DRIVER=memory and tests.
type memoryRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]user.User
	byEmail map[string]uuid.UUID
}

func NewMemoryRepository() user.Repository {
	return &memoryRepository{
		byID:    make(map[uuid.UUID]user.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *memoryRepository) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, taken := r.byEmail[email]; taken {
		return user.ErrEmailAlreadyExists
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	u.Email = email
	u.CreatedAt, u.UpdatedAt = now, now

	r.byID[u.ID] = *u
	r.byEmail[email] = u.ID
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

func (r *memoryRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[strings.ToLower(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *memoryRepository) UpdateDisplayName(_ context.Context, id uuid.UUID, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.DisplayName = displayName
	u.UpdatedAt = time.Now()
	r.byID[id] = u
	return nil
}
