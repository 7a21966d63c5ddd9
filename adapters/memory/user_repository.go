package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vendfleet/server/domain/entities"
	"github.com/vendfleet/server/domain/repositories"
)

// UserRepository is an in-memory UserRepository for tests and local
// development.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*entities.User
}

// NewUserRepository creates an empty in-memory user repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*entities.User)}
}

var _ repositories.UserRepository = (*UserRepository)(nil)

func cloneUser(u *entities.User) *entities.User {
	clone := *u
	clone.Machines = append([]string(nil), u.Machines...)
	clone.Notifications = append([]entities.Notification(nil), u.Notifications...)
	return &clone
}

// Create implements repositories.UserRepository.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Email]; exists {
		return fmt.Errorf("%w: %q", entities.ErrEmailTaken, user.Email)
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.Email] = cloneUser(user)
	return nil
}

// GetByEmail implements repositories.UserRepository.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[email]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entities.ErrUserNotFound, email)
	}
	return cloneUser(user), nil
}

// Update implements repositories.UserRepository.
func (r *UserRepository) Update(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Email]; !ok {
		return fmt.Errorf("%w: %q", entities.ErrUserNotFound, user.Email)
	}
	user.UpdatedAt = time.Now()
	r.users[user.Email] = cloneUser(user)
	return nil
}

// AppendNotification implements repositories.UserRepository.
func (r *UserRepository) AppendNotification(ctx context.Context, email string, notification entities.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return fmt.Errorf("%w: %q", entities.ErrUserNotFound, email)
	}
	user.Notifications = append(user.Notifications, notification)
	user.UpdatedAt = time.Now()
	return nil
}

// FindByMachine implements repositories.UserRepository.
func (r *UserRepository) FindByMachine(ctx context.Context, machineID string) ([]*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var owners []*entities.User
	for _, user := range r.users {
		if user.Owns(machineID) {
			owners = append(owners, cloneUser(user))
		}
	}
	return owners, nil
}
