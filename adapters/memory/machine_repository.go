package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vendfleet/server/domain/entities"
	"github.com/vendfleet/server/domain/repositories"
)

// MachineRepository is an in-memory MachineRepository for tests and local
// development. It honours the same revision-checked write semantics as the
// MongoDB implementation.
type MachineRepository struct {
	mu       sync.RWMutex
	machines map[string]*entities.Machine
}

// NewMachineRepository creates an empty in-memory machine repository.
func NewMachineRepository() *MachineRepository {
	return &MachineRepository{machines: make(map[string]*entities.Machine)}
}

var _ repositories.MachineRepository = (*MachineRepository)(nil)

func cloneMachine(m *entities.Machine) *entities.Machine {
	clone := *m
	clone.Content = append([]entities.Slot(nil), m.Content...)
	clone.SalesHistory = append([]entities.Sale(nil), m.SalesHistory...)
	clone.TotalSales = make(map[string]int, len(m.TotalSales))
	for name, units := range m.TotalSales {
		clone.TotalSales[name] = units
	}
	return &clone
}

// Create implements repositories.MachineRepository.
func (r *MachineRepository) Create(ctx context.Context, machine *entities.Machine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.machines[machine.ID]; exists {
		return fmt.Errorf("%w: %q", entities.ErrMachineExists, machine.ID)
	}

	now := time.Now()
	machine.CreatedAt = now
	machine.UpdatedAt = now
	machine.Revision = 1
	r.machines[machine.ID] = cloneMachine(machine)
	return nil
}

// GetByID implements repositories.MachineRepository.
func (r *MachineRepository) GetByID(ctx context.Context, id string) (*entities.Machine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	machine, ok := r.machines[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entities.ErrMachineNotFound, id)
	}
	return cloneMachine(machine), nil
}

// GetByIDs implements repositories.MachineRepository.
func (r *MachineRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Machine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	machines := make([]*entities.Machine, 0, len(ids))
	for _, id := range ids {
		if machine, ok := r.machines[id]; ok {
			machines = append(machines, cloneMachine(machine))
		}
	}
	return machines, nil
}

// Update implements repositories.MachineRepository.
func (r *MachineRepository) Update(ctx context.Context, machine *entities.Machine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.machines[machine.ID]
	if !ok {
		return fmt.Errorf("%w: %q", entities.ErrMachineNotFound, machine.ID)
	}
	if stored.Revision != machine.Revision {
		return fmt.Errorf("%w: machine %q", entities.ErrRevisionConflict, machine.ID)
	}

	machine.Revision++
	machine.UpdatedAt = time.Now()
	r.machines[machine.ID] = cloneMachine(machine)
	return nil
}

// SetLocation implements repositories.MachineRepository.
func (r *MachineRepository) SetLocation(ctx context.Context, id, location string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	machine, ok := r.machines[id]
	if !ok {
		return fmt.Errorf("%w: %q", entities.ErrMachineNotFound, id)
	}
	machine.Location = location
	machine.Revision++
	machine.UpdatedAt = time.Now()
	return nil
}
