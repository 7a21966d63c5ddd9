package entities

import (
	"errors"
	"testing"
	"time"
)

func TestAttachMachine(t *testing.T) {
	user := &User{Email: "operator@example.com"}

	if err := user.AttachMachine("M1"); err != nil {
		t.Fatalf("Failed to attach machine: %v", err)
	}
	if !user.Owns("M1") {
		t.Error("Expected user to own M1")
	}

	err := user.AttachMachine("M1")
	if !errors.Is(err, ErrMachineAttached) {
		t.Errorf("Expected already-attached error, got %v", err)
	}
	if len(user.Machines) != 1 {
		t.Errorf("Expected 1 owned machine, got %d", len(user.Machines))
	}

	if err := user.AttachMachine("M2"); err != nil {
		t.Fatalf("Failed to attach second machine: %v", err)
	}
	if len(user.Machines) != 2 {
		t.Errorf("Expected 2 owned machines, got %d", len(user.Machines))
	}
}

func TestNewNotification(t *testing.T) {
	now := time.Now()
	n := NewNotification("Slot A1 is empty", NotificationTypeStock, now)

	if n.Status != NotificationUnread {
		t.Errorf("Expected status %q, got %q", NotificationUnread, n.Status)
	}
	if n.Type != NotificationTypeStock {
		t.Errorf("Expected type %q, got %q", NotificationTypeStock, n.Type)
	}
	if n.ID == "" {
		t.Error("Expected notification ID to be set")
	}
	if !n.Date.Equal(now) {
		t.Errorf("Expected date %v, got %v", now, n.Date)
	}
}
