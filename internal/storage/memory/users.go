package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/loanwise/platform/internal/domain/users"
)

// UserRepository implements users.Repository in-memory.
type UserRepository struct {
	mu    sync.RWMutex
	store map[string]users.User
}

// NewUserRepository constructs repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{store: make(map[string]users.User)}
}

func (r *UserRepository) FindByID(_ context.Context, id string) (users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.store[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.store {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if email == "" {
		return users.User{}, users.ErrNotFound
	}
	for _, u := range r.store {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (r *UserRepository) Save(_ context.Context, user users.User) (users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.store {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(u.Username, user.Username) {
			return users.User{}, users.ErrUsernameExists
		}
		if user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return users.User{}, users.ErrEmailExists
		}
	}

	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = newID()
		user.CreatedAt = now
	} else if existing, ok := r.store[user.ID]; ok {
		if user.CreatedAt.IsZero() {
			user.CreatedAt = existing.CreatedAt
		}
	} else {
		return users.User{}, users.ErrNotFound
	}
	user.UpdatedAt = now
	r.store[user.ID] = user
	return user, nil
}

func (r *UserRepository) usernameOf(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store[id].Username
}

// Ensure interface satisfaction at compile time.
var _ users.Repository = (*UserRepository)(nil)
