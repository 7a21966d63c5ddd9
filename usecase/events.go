package usecase

import "time"

// Fleet event types pushed to connected dashboards.
const (
	EventSaleRecorded = "sale_recorded"
	EventSlotEmpty    = "slot_empty"
	EventStockAdded   = "stock_added"
	EventCashFull     = "cash_full"
)

// FleetEvent is a fleet-wide happening dashboards may want to render live.
type FleetEvent struct {
	Type      string    `json:"type"`
	MachineID string    `json:"machineId"`
	SlotKey   string    `json:"slotKey,omitempty"`
	Product   string    `json:"product,omitempty"`
	Amount    int       `json:"amount,omitempty"`
	Revenue   float64   `json:"revenue,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher pushes fleet events to whoever is listening. Publishing is
// fire-and-forget; services never block on a slow consumer.
type EventPublisher interface {
	Publish(event FleetEvent)
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(FleetEvent) {}
