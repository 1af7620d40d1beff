// Package device provides common interfaces and utilities for seat keyboard
// devices.
package device

import "github.com/seatkit/seatkit/keyboard"

// Device is a keyboard device attachable to a seat. Every device wraps one
// keyboard state tracker; the concrete backend decides what LED assertion and
// teardown mean.
type Device interface {
	// Keyboard returns the device's state tracker.
	Keyboard() *keyboard.Keyboard
	// Type identifies the device kind (e.g. "virtkbd", "evdev").
	Type() string
}

// CreateOptions carries optional parameters for device creation. Unset fields
// fall back to per-kind defaults.
type CreateOptions struct {
	// Layout is a YAML layout description to compile and bind at creation.
	Layout *string
	// Path is the device node for backends bound to real hardware.
	Path *string
}

// Meta identifies a device registered on a seat.
type Meta struct {
	SeatID uint32
	DevID  uint32
	// SeatDevID is the combined id in "seat-dev" form (e.g. "1-2").
	SeatDevID string
}
