//go:build linux

// Package evdev provides a keyboard device backed by a Linux evdev node.
// Indicator LEDs are asserted on the real hardware by writing EV_LED events
// to the node; key events read from the node can be pumped into the state
// tracker with ReadEvents.
package evdev

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/seatkit/seatkit/keyboard"
	"github.com/seatkit/seatkit/xkb"
)

// input_event type and LED codes from linux/input-event-codes.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evLed = 0x11

	ledNumLock    = 0x00
	ledCapsLock   = 0x01
	ledScrollLock = 0x02

	synReport = 0x00
)

// inputEvent matches the Linux input_event struct layout.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// Device is a keyboard bound to a real evdev node.
type Device struct {
	kbd    *keyboard.Keyboard
	f      *os.File
	path   string
	logger *slog.Logger
}

// New opens the evdev node and creates the keyboard with the default layout
// bound.
func New(path string, logger *slog.Logger) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open evdev node: %w", err)
	}
	d := &Device{f: f, path: path, logger: logger}
	d.kbd = keyboard.New(d, logger)

	if km, err := xkb.Compile(xkb.DefaultLayout()); err == nil {
		d.kbd.SetKeymap(km)
		km.Unref()
	} else {
		logger.Warn("failed to compile default layout", "error", err)
	}
	return d, nil
}

// Name implements keyboard.Impl.
func (d *Device) Name() string { return "evdev" }

// Type implements device.Device.
func (d *Device) Type() string { return "evdev" }

// Keyboard returns the device's state tracker.
func (d *Device) Keyboard() *keyboard.Keyboard { return d.kbd }

// Path returns the evdev node path the device is bound to.
func (d *Device) Path() string { return d.path }

// UpdateLEDs implements keyboard.LEDUpdater by writing EV_LED events to the
// node. The kernel ignores writes that match the current LED state, so the
// unconditional push is harmless.
func (d *Device) UpdateLEDs(leds keyboard.LED) {
	codes := [...]struct {
		code uint16
		led  keyboard.LED
	}{
		{ledNumLock, keyboard.LEDNumLock},
		{ledCapsLock, keyboard.LEDCapsLock},
		{ledScrollLock, keyboard.LEDScrollLock},
	}

	var buf bytes.Buffer
	var now unix.Timeval
	for _, c := range codes {
		var value int32
		if leds&c.led != 0 {
			value = 1
		}
		ev := inputEvent{Time: now, Type: evLed, Code: c.code, Value: value}
		if err := binary.Write(&buf, binary.NativeEndian, &ev); err != nil {
			d.logger.Warn("failed to encode LED event", "error", err)
			return
		}
	}
	syn := inputEvent{Time: now, Type: evSyn, Code: synReport}
	if err := binary.Write(&buf, binary.NativeEndian, &syn); err != nil {
		d.logger.Warn("failed to encode LED event", "error", err)
		return
	}

	if _, err := d.f.Write(buf.Bytes()); err != nil {
		d.logger.Warn("failed to assert LEDs", "path", d.path, "error", err)
	}
}

// DestroyKeyboard implements keyboard.Destroyer by closing the node.
func (d *Device) DestroyKeyboard(k *keyboard.Keyboard) {
	if err := d.f.Close(); err != nil {
		d.logger.Warn("failed to close evdev node", "path", d.path, "error", err)
	}
}

// ReadEvents pumps key events from the node into the state tracker until the
// context is cancelled or the node errors out. It blocks; run it from the
// goroutine that owns the keyboard.
func (d *Device) ReadEvents(ctx context.Context) error {
	size := binary.Size(inputEvent{})
	buf := make([]byte, size)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := d.f.Read(buf); err != nil {
			if d.kbd.Destroyed() {
				return nil
			}
			return fmt.Errorf("read evdev event: %w", err)
		}
		var ev inputEvent
		if err := binary.Read(bytes.NewReader(buf), binary.NativeEndian, &ev); err != nil {
			return err
		}
		if ev.Type != evKey || ev.Value > 1 {
			// Ignore autorepeat (value 2) and non-key events.
			continue
		}
		state := keyboard.KeyReleased
		if ev.Value == 1 {
			state = keyboard.KeyPressed
		}
		d.kbd.NotifyKey(keyboard.KeyEvent{
			TimeMsec:    uint32(ev.Time.Sec*1000) + uint32(ev.Time.Usec/1000),
			Keycode:     uint32(ev.Code),
			State:       state,
			UpdateState: true,
		})
	}
}
