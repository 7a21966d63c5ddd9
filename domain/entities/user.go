package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification statuses and types.
const (
	NotificationUnread = "unread"

	NotificationTypeStock = "stock"
	NotificationTypeCash  = "cash"
)

// Notification is one entry in a user's notification feed.
type Notification struct {
	ID      string    `json:"id" bson:"id"`
	Message string    `json:"message" bson:"message"`
	Date    time.Time `json:"date" bson:"date"`
	Type    string    `json:"type" bson:"type"`
	Status  string    `json:"status" bson:"status"`
}

// NewNotification builds an unread notification.
func NewNotification(message, notificationType string, now time.Time) Notification {
	return Notification{
		ID:      uuid.NewString(),
		Message: message,
		Date:    now,
		Type:    notificationType,
		Status:  NotificationUnread,
	}
}

// User is an operator account. Machines holds the ids of owned machines with
// set semantics: membership is checked before every insert.
type User struct {
	Email         string         `json:"email" bson:"email"`
	PasswordHash  string         `json:"-" bson:"password_hash"`
	Machines      []string       `json:"machines" bson:"machines"`
	Notifications []Notification `json:"notifications" bson:"notifications"`
	CreatedAt     time.Time      `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt" bson:"updated_at"`
}

// Owns reports whether the machine id is in the user's owned set.
func (u *User) Owns(machineID string) bool {
	for _, id := range u.Machines {
		if id == machineID {
			return true
		}
	}
	return false
}

// AttachMachine adds a machine id to the owned set. Attaching an id twice is
// rejected rather than silently accepted: a duplicate attach is a client bug
// signal.
func (u *User) AttachMachine(machineID string) error {
	if u.Owns(machineID) {
		return fmt.Errorf("%w: machine %q, user %q", ErrMachineAttached, machineID, u.Email)
	}
	u.Machines = append(u.Machines, machineID)
	return nil
}
