package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vendfleet/server/domain/entities"
	"github.com/vendfleet/server/domain/repositories"
)

// MachineService covers machine registration, inventory configuration and
// fleet/user association.
type MachineService struct {
	machines repositories.MachineRepository
	users    repositories.UserRepository
	events   EventPublisher
	logger   *zap.Logger
}

// NewMachineService creates a new machine service.
func NewMachineService(
	machines repositories.MachineRepository,
	users repositories.UserRepository,
	events EventPublisher,
	logger *zap.Logger,
) *MachineService {
	if events == nil {
		events = NopPublisher{}
	}
	return &MachineService{
		machines: machines,
		users:    users,
		events:   events,
		logger:   logger,
	}
}

// Register creates a machine with one empty slot per key. Registering an id
// that already exists only updates the location: the slot collection,
// counters and history are left alone. The returned bool reports whether a
// new machine was created.
func (s *MachineService) Register(ctx context.Context, id, location string, keys []string) (*entities.Machine, bool, error) {
	machine, err := entities.NewMachine(id, location, keys)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.machines.GetByID(ctx, id)
	switch {
	case err == nil:
		if err := s.machines.SetLocation(ctx, id, location); err != nil {
			return nil, false, err
		}
		existing.Location = location
		s.logger.Info("Machine already exists, updated location",
			zap.String("machine_id", id),
			zap.String("location", location))
		return existing, false, nil
	case !errors.Is(err, entities.ErrMachineNotFound):
		return nil, false, err
	}

	if err := s.machines.Create(ctx, machine); err != nil {
		// A concurrent registration beat us to the insert; fall back to the
		// update-location path.
		if errors.Is(err, entities.ErrMachineExists) {
			if err := s.machines.SetLocation(ctx, id, location); err != nil {
				return nil, false, err
			}
			existing, err := s.machines.GetByID(ctx, id)
			return existing, false, err
		}
		return nil, false, err
	}

	s.logger.Info("Machine registered",
		zap.String("machine_id", id),
		zap.Int("slots", len(keys)))
	return machine, true, nil
}

// Get returns the full machine record.
func (s *MachineService) Get(ctx context.Context, id string) (*entities.Machine, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", entities.ErrValidation)
	}
	return s.machines.GetByID(ctx, id)
}

// AttachToUser adds a machine to a user's owned set. Both sides must exist;
// a second attach of the same machine is rejected.
func (s *MachineService) AttachToUser(ctx context.Context, email, machineID string) error {
	if email == "" || machineID == "" {
		return fmt.Errorf("%w: email and machine id are required", entities.ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if _, err := s.machines.GetByID(ctx, machineID); err != nil {
		return err
	}

	if err := user.AttachMachine(machineID); err != nil {
		return err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.logger.Info("Machine attached to user",
		zap.String("machine_id", machineID),
		zap.String("email", email))
	return nil
}

// MachinesByUser returns the machines owned by the user.
func (s *MachineService) MachinesByUser(ctx context.Context, email string) ([]*entities.Machine, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	machines, err := s.machines.GetByIDs(ctx, user.Machines)
	if err != nil {
		return nil, err
	}
	if machines == nil {
		machines = []*entities.Machine{}
	}
	return machines, nil
}

// AddStock increments a slot's stock by the given positive amount.
func (s *MachineService) AddStock(ctx context.Context, machineID, key string, amount int) (*entities.Machine, error) {
	machine, err := s.machines.GetByID(ctx, machineID)
	if err != nil {
		return nil, err
	}
	if err := machine.AddStock(key, amount); err != nil {
		return nil, err
	}
	if err := s.machines.Update(ctx, machine); err != nil {
		return nil, err
	}

	s.events.Publish(FleetEvent{
		Type:      EventStockAdded,
		MachineID: machineID,
		SlotKey:   key,
		Amount:    amount,
		Timestamp: time.Now(),
	})
	return machine, nil
}

// SetSlot patches a slot's product configuration.
func (s *MachineService) SetSlot(ctx context.Context, machineID, key string, patch entities.SlotPatch) (*entities.Machine, error) {
	machine, err := s.machines.GetByID(ctx, machineID)
	if err != nil {
		return nil, err
	}
	if err := machine.ApplySlotPatch(key, patch); err != nil {
		return nil, err
	}
	if err := s.machines.Update(ctx, machine); err != nil {
		return nil, err
	}
	return machine, nil
}

// MarkCashFull flags the machine for cash collection.
func (s *MachineService) MarkCashFull(ctx context.Context, machineID string) error {
	machine, err := s.machines.GetByID(ctx, machineID)
	if err != nil {
		return err
	}
	machine.MarkCashFull()
	if err := s.machines.Update(ctx, machine); err != nil {
		return err
	}

	s.events.Publish(FleetEvent{
		Type:      EventCashFull,
		MachineID: machineID,
		Timestamp: time.Now(),
	})
	return nil
}
