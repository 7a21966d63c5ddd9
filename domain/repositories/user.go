package repositories

import (
	"context"

	"github.com/vendfleet/server/domain/entities"
)

// UserRepository defines data access methods for operator accounts.
type UserRepository interface {
	// Create inserts a new user. Returns entities.ErrEmailTaken when an
	// account with the same email exists.
	Create(ctx context.Context, user *entities.User) error

	// GetByEmail returns the user with the given email, or
	// entities.ErrUserNotFound.
	GetByEmail(ctx context.Context, email string) (*entities.User, error)

	// Update writes the user's owned-machines set back.
	Update(ctx context.Context, user *entities.User) error

	// AppendNotification appends to the user's notification feed without
	// rewriting the rest of the record.
	AppendNotification(ctx context.Context, email string, notification entities.Notification) error

	// FindByMachine returns every user that owns the given machine.
	FindByMachine(ctx context.Context, machineID string) ([]*entities.User, error)
}
