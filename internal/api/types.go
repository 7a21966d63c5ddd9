package api

// ErrorResponse is the error envelope of every failing endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	// Raw carries the unparsed model reply when the recommendation proxy
	// could not extract JSON from it.
	Raw string `json:"raw,omitempty"`
}

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateMachineRequest registers a machine or moves an existing one.
type CreateMachineRequest struct {
	ID       string   `json:"id"`
	Location string   `json:"location"`
	Keys     []string `json:"keys"`
}

// AttachMachineRequest adds a machine to a user's fleet.
type AttachMachineRequest struct {
	Email string `json:"email"`
	ID    string `json:"id"`
}

// AddItemsRequest restocks one slot.
type AddItemsRequest struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Amount int    `json:"amount"`
}

// RemoveItemsRequest records a sale of one unit from one slot.
type RemoveItemsRequest struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// SetContentRequest patches one slot. Pointer fields distinguish "not sent"
// from zero values, so prices and amounts can be explicitly set to 0.
type SetContentRequest struct {
	ID            string   `json:"id"`
	Key           string   `json:"key"`
	Name          *string  `json:"name"`
	ExpiryDate    *string  `json:"expiryDate"`
	OriginalPrice *float64 `json:"originalPrice"`
	RetailPrice   *float64 `json:"retailPrice"`
	Amount        *int     `json:"amount"`
}

// MarkCashFullRequest flags a machine for cash collection.
type MarkCashFullRequest struct {
	ID string `json:"id"`
}

// CredentialsRequest carries signup and signin input.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
