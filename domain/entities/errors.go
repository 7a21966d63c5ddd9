package entities

import "errors"

// Domain errors surfaced to the API layer. Handlers map these onto HTTP
// status codes; anything else is treated as an internal failure.
var (
	ErrMachineNotFound = errors.New("machine does not exist")
	ErrMachineExists   = errors.New("machine already exists")
	ErrSlotNotFound    = errors.New("slot does not exist")
	ErrOutOfStock      = errors.New("there are no items to remove")

	ErrUserNotFound       = errors.New("user does not exist")
	ErrEmailTaken         = errors.New("there is already an account with this email")
	ErrMachineAttached    = errors.New("machine is already included")
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrRevisionConflict means a concurrent writer updated the same record
	// between our read and our write. Callers see it surfaced, never retried.
	ErrRevisionConflict = errors.New("record was modified concurrently")

	ErrValidation = errors.New("invalid input")
)
