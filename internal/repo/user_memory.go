package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/shopnesty/internal/models"
)

type InMemoryUserRepository struct {
	db *InMemoryDB
}

func NewInMemoryUserRepository(db *InMemoryDB) *InMemoryUserRepository {
	return &InMemoryUserRepository{db: db}
}

func (r *InMemoryUserRepository) GetByUsername(_ context.Context, username string) (models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, user := range r.db.state.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

func (r *InMemoryUserRepository) GetByID(_ context.Context, id string) (models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.state.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return u, nil
}

func (r *InMemoryUserRepository) CreateUser(_ context.Context, u models.User) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, user := range r.db.state.users {
		if user.Username == u.Username {
			return models.User{}, ErrDuplicatedValueUnique
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleCustomer
	}
	now := r.db.now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.db.state.users[u.ID] = u
	return u, nil
}

func (r *InMemoryUserRepository) UpdateName(_ context.Context, id, name string) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.state.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	u.Name = name
	u.UpdatedAt = r.db.now()
	r.db.state.users[id] = u
	return u, nil
}
