package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vendfleet/server/domain/entities"
	"github.com/vendfleet/server/domain/repositories"
	"github.com/vendfleet/server/internal/lock"
)

// SaleService runs the sale transaction: validate availability, decrement
// stock, bump the per-product aggregate, update both revenue counters and
// append the sale record, persisted as one write.
//
// Sales on the same machine are serialized through a per-machine lock, so two
// concurrent sales of the last unit cannot both succeed. The repository's
// revision-checked write guards the same invariant across processes.
type SaleService struct {
	machines repositories.MachineRepository
	users    repositories.UserRepository
	locks    *lock.Keyed
	events   EventPublisher
	logger   *zap.Logger
}

// NewSaleService creates a new sale service.
func NewSaleService(
	machines repositories.MachineRepository,
	users repositories.UserRepository,
	events EventPublisher,
	logger *zap.Logger,
) *SaleService {
	if events == nil {
		events = NopPublisher{}
	}
	return &SaleService{
		machines: machines,
		users:    users,
		locks:    lock.NewKeyed(),
		events:   events,
		logger:   logger,
	}
}

// RecordSale sells exactly one unit from the given slot and returns a receipt
// with the updated slot and counters. A sale against an empty slot fails with
// entities.ErrOutOfStock and performs no write.
func (s *SaleService) RecordSale(ctx context.Context, machineID, key string) (*entities.SaleReceipt, error) {
	if machineID == "" {
		return nil, fmt.Errorf("%w: id is required", entities.ErrValidation)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", entities.ErrValidation)
	}

	s.locks.Lock(machineID)
	defer s.locks.Unlock(machineID)

	machine, err := s.machines.GetByID(ctx, machineID)
	if err != nil {
		return nil, err
	}

	sale, err := machine.RecordSale(key, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.machines.Update(ctx, machine); err != nil {
		return nil, err
	}

	slot, _ := machine.Slot(key)
	receipt := &entities.SaleReceipt{
		MachineID:     machineID,
		Slot:          *slot,
		Sale:          sale,
		TotalRevenue:  machine.TotalRevenue,
		ActiveRevenue: machine.ActiveRevenue,
	}

	s.logger.Info("Sale recorded",
		zap.String("machine_id", machineID),
		zap.String("slot_key", key),
		zap.String("product", sale.Name),
		zap.Float64("retail_price", sale.RetailPrice),
		zap.Int("remaining", slot.Amount))

	s.events.Publish(FleetEvent{
		Type:      EventSaleRecorded,
		MachineID: machineID,
		SlotKey:   key,
		Product:   sale.Name,
		Amount:    slot.Amount,
		Revenue:   sale.RetailPrice,
		Timestamp: sale.Date,
	})

	if slot.Amount == 0 {
		s.events.Publish(FleetEvent{
			Type:      EventSlotEmpty,
			MachineID: machineID,
			SlotKey:   key,
			Product:   sale.Name,
			Timestamp: sale.Date,
		})
		s.notifyOwners(ctx, machine, slot)
	}

	return receipt, nil
}

// notifyOwners pushes an out-of-stock notification to every owner of the
// machine. Best effort: a failed notification never fails the sale.
func (s *SaleService) notifyOwners(ctx context.Context, machine *entities.Machine, slot *entities.Slot) {
	owners, err := s.users.FindByMachine(ctx, machine.ID)
	if err != nil {
		s.logger.Warn("Failed to look up machine owners",
			zap.String("machine_id", machine.ID),
			zap.Error(err))
		return
	}

	message := fmt.Sprintf("Machine %s at %s sold out of %s (slot %s)",
		machine.ID, machine.Location, slot.Name, slot.Key)
	for _, owner := range owners {
		notification := entities.NewNotification(message, entities.NotificationTypeStock, time.Now())
		if err := s.users.AppendNotification(ctx, owner.Email, notification); err != nil {
			s.logger.Warn("Failed to send notification",
				zap.String("email", owner.Email),
				zap.Error(err))
		}
	}
}
