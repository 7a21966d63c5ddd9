package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMachineName is assigned to every machine at registration.
	DefaultMachineName = "Vending Machine"

	// UnconfiguredProduct is the placeholder name of a slot that has never
	// been assigned a product.
	UnconfiguredProduct = "empty"

	// NoExpiry is the sentinel expiry date of an unconfigured slot.
	NoExpiry = "unset"
)

// Slot is one dispensing position inside a machine. The slot set is fixed at
// machine creation; only the fields within a slot change afterwards.
type Slot struct {
	Key           string  `json:"key" bson:"key"`
	Name          string  `json:"name" bson:"name"`
	OriginalPrice float64 `json:"originalPrice" bson:"original_price"`
	RetailPrice   float64 `json:"retailPrice" bson:"retail_price"`
	ExpiryDate    string  `json:"expiryDate" bson:"expiry_date"`
	Amount        int     `json:"amount" bson:"amount"`
}

// Sale is one completed sale event. Prices are copied from the slot at the
// moment of sale so later slot edits never rewrite history.
type Sale struct {
	ID            string    `json:"id" bson:"id"`
	Name          string    `json:"name" bson:"name"`
	OriginalPrice float64   `json:"originalPrice" bson:"original_price"`
	RetailPrice   float64   `json:"retailPrice" bson:"retail_price"`
	Date          time.Time `json:"date" bson:"date"`
}

// Machine is a registered vending machine with its inventory, running
// financial counters and historical logs.
type Machine struct {
	ID       string `json:"id" bson:"id"`
	Name     string `json:"name" bson:"name"`
	Location string `json:"location" bson:"location"`
	Content  []Slot `json:"content" bson:"content"`

	// TotalSales maps product name to cumulative units sold over the
	// machine's lifetime.
	TotalSales map[string]int `json:"totalSales" bson:"total_sales"`

	TotalRevenue  float64 `json:"totalRevenue" bson:"total_revenue"`
	ActiveRevenue float64 `json:"activeRevenue" bson:"active_revenue"`

	IsCashFull  bool `json:"isCashFull" bson:"is_cash_full"`
	IsStockFull bool `json:"isStockFull" bson:"is_stock_full"`

	SalesHistory []Sale `json:"salesHistory" bson:"sales_history"`

	// Revision is the optimistic concurrency token checked by the store on
	// every write. Not part of the API surface.
	Revision int64 `json:"-" bson:"revision"`

	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// NewMachine builds a machine with one empty slot per key.
func NewMachine(id, location string, keys []string) (*Machine, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	if location == "" {
		return nil, fmt.Errorf("%w: location is required", ErrValidation)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: at least one slot key is required", ErrValidation)
	}

	seen := make(map[string]bool, len(keys))
	content := make([]Slot, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			return nil, fmt.Errorf("%w: slot key must not be empty", ErrValidation)
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate slot key %q", ErrValidation, key)
		}
		seen[key] = true
		content = append(content, Slot{
			Key:        key,
			Name:       UnconfiguredProduct,
			ExpiryDate: NoExpiry,
		})
	}

	return &Machine{
		ID:         id,
		Name:       DefaultMachineName,
		Location:   location,
		Content:    content,
		TotalSales: make(map[string]int),
	}, nil
}

// Slot returns a pointer to the first slot with the given key.
func (m *Machine) Slot(key string) (*Slot, bool) {
	for i := range m.Content {
		if m.Content[i].Key == key {
			return &m.Content[i], true
		}
	}
	return nil, false
}

// RecordSale sells exactly one unit from the slot with the given key: it
// decrements stock, bumps the per-product aggregate, adds the retail price to
// both revenue counters and appends an immutable sale record. When the slot is
// missing or empty the machine is left untouched.
func (m *Machine) RecordSale(key string, now time.Time) (Sale, error) {
	slot, ok := m.Slot(key)
	if !ok {
		return Sale{}, fmt.Errorf("%w: slot %q in machine %q", ErrSlotNotFound, key, m.ID)
	}
	if slot.Amount <= 0 {
		return Sale{}, fmt.Errorf("%w: slot %q in machine %q", ErrOutOfStock, key, m.ID)
	}

	slot.Amount--

	if m.TotalSales == nil {
		m.TotalSales = make(map[string]int)
	}
	m.TotalSales[slot.Name]++

	m.TotalRevenue += slot.RetailPrice
	m.ActiveRevenue += slot.RetailPrice

	sale := Sale{
		ID:            uuid.NewString(),
		Name:          slot.Name,
		OriginalPrice: slot.OriginalPrice,
		RetailPrice:   slot.RetailPrice,
		Date:          now,
	}
	m.SalesHistory = append(m.SalesHistory, sale)

	return sale, nil
}

// AddStock increments (never replaces) the stock of the slot with the given
// key. Amount must be positive.
func (m *Machine) AddStock(key string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", ErrValidation, amount)
	}
	slot, ok := m.Slot(key)
	if !ok {
		return fmt.Errorf("%w: slot %q in machine %q", ErrSlotNotFound, key, m.ID)
	}
	slot.Amount += amount
	return nil
}

// SlotPatch carries the fields of a slot update. Nil fields are left alone, so
// zero values ("", 0) remain expressible.
type SlotPatch struct {
	Name          *string
	ExpiryDate    *string
	OriginalPrice *float64
	RetailPrice   *float64
	Amount        *int
}

// ApplySlotPatch updates the slot with the given key field by field. A retail
// price supplied together with an original price of exactly 0 sets the
// original price to the retail price (cost unknown, assume break-even).
func (m *Machine) ApplySlotPatch(key string, patch SlotPatch) error {
	slot, ok := m.Slot(key)
	if !ok {
		return fmt.Errorf("%w: slot %q in machine %q", ErrSlotNotFound, key, m.ID)
	}
	if patch.Amount != nil && *patch.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative, got %d", ErrValidation, *patch.Amount)
	}

	if patch.Name != nil {
		slot.Name = *patch.Name
	}
	if patch.ExpiryDate != nil {
		slot.ExpiryDate = *patch.ExpiryDate
	}
	if patch.OriginalPrice != nil {
		slot.OriginalPrice = *patch.OriginalPrice
	}
	if patch.RetailPrice != nil {
		slot.RetailPrice = *patch.RetailPrice
		if patch.OriginalPrice != nil && *patch.OriginalPrice == 0 {
			slot.OriginalPrice = *patch.RetailPrice
		}
	}
	if patch.Amount != nil {
		slot.Amount = *patch.Amount
	}
	return nil
}

// MarkCashFull flags the machine for cash collection.
func (m *Machine) MarkCashFull() {
	m.IsCashFull = true
}

// MarkStockFull flags the machine as fully restocked.
func (m *Machine) MarkStockFull() {
	m.IsStockFull = true
}

// TopSeller returns the product with the most lifetime units sold. Ties
// resolve to the lexicographically smaller name so the answer is stable.
func (m *Machine) TopSeller() (string, int) {
	name, units := "", 0
	for product, sold := range m.TotalSales {
		if sold > units || (sold == units && units > 0 && product < name) {
			name, units = product, sold
		}
	}
	return name, units
}

// SalesBetween returns the sales with from <= date < to, oldest first.
func (m *Machine) SalesBetween(from, to time.Time) []Sale {
	var sales []Sale
	for _, sale := range m.SalesHistory {
		if !sale.Date.Before(from) && sale.Date.Before(to) {
			sales = append(sales, sale)
		}
	}
	return sales
}

// StockedUnits is the total number of units currently in the machine.
func (m *Machine) StockedUnits() int {
	total := 0
	for _, slot := range m.Content {
		total += slot.Amount
	}
	return total
}

// SaleReceipt confirms a completed sale with the updated slot and counters.
type SaleReceipt struct {
	MachineID     string  `json:"machineId"`
	Slot          Slot    `json:"slot"`
	Sale          Sale    `json:"sale"`
	TotalRevenue  float64 `json:"totalRevenue"`
	ActiveRevenue float64 `json:"activeRevenue"`
}
