// Package virtkbd provides a virtual keyboard device. It has no hardware
// behind it: LED state is forwarded to an optional callback (typically the
// remote client driving the device) and teardown is the generic one.
package virtkbd

import (
	"log/slog"

	"github.com/seatkit/seatkit/keyboard"
	"github.com/seatkit/seatkit/xkb"
)

// Device is a virtual keyboard backed only by the state tracker.
type Device struct {
	kbd         *keyboard.Keyboard
	ledCallback func(keyboard.LED)
}

// New returns a new virtual keyboard with the default layout bound. A failed
// default bind leaves the keyboard unbound, which is a usable (degraded)
// state; the caller can bind a keymap later.
func New(logger *slog.Logger) *Device {
	d := &Device{}
	d.kbd = keyboard.New(d, logger)

	if km, err := xkb.Compile(xkb.DefaultLayout()); err == nil {
		d.kbd.SetKeymap(km)
		km.Unref()
	} else if logger != nil {
		logger.Warn("failed to compile default layout", "error", err)
	}
	return d
}

// Name implements keyboard.Impl.
func (d *Device) Name() string { return "virtkbd" }

// Type implements device.Device.
func (d *Device) Type() string { return "virtkbd" }

// Keyboard returns the device's state tracker.
func (d *Device) Keyboard() *keyboard.Keyboard { return d.kbd }

// SetLEDCallback sets a callback that will be invoked whenever LED state is
// asserted.
func (d *Device) SetLEDCallback(f func(keyboard.LED)) { d.ledCallback = f }

// UpdateLEDs implements keyboard.LEDUpdater by forwarding to the callback.
func (d *Device) UpdateLEDs(leds keyboard.LED) {
	if d.ledCallback != nil {
		d.ledCallback(leds)
	}
}
