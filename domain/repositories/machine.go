package repositories

import (
	"context"

	"github.com/vendfleet/server/domain/entities"
)

// MachineRepository defines data access methods for machines.
type MachineRepository interface {
	// Create inserts a new machine. Returns entities.ErrMachineExists when
	// the id is already registered.
	Create(ctx context.Context, machine *entities.Machine) error

	// GetByID returns the machine with the given id, or
	// entities.ErrMachineNotFound.
	GetByID(ctx context.Context, id string) (*entities.Machine, error)

	// GetByIDs returns the machines whose ids are in the given set. Missing
	// ids are skipped, not an error.
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Machine, error)

	// Update writes the whole machine record back in a single write. The
	// write is conditional on the revision the machine was read at; a lost
	// race returns entities.ErrRevisionConflict and leaves the store
	// untouched. On success the machine's revision is advanced in place.
	Update(ctx context.Context, machine *entities.Machine) error

	// SetLocation updates only the location of an existing machine.
	SetLocation(ctx context.Context, id, location string) error
}
