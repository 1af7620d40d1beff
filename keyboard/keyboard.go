// Package keyboard tracks the authoritative state of a single keyboard
// device: which keys are held, the composed modifier state, indicator LEDs,
// the bound keymap and the key-repeat parameters. Observers are notified
// through per-category signals only when observable state actually changes.
package keyboard

import (
	"log/slog"

	"github.com/seatkit/seatkit/signal"
	"github.com/seatkit/seatkit/xkb"
)

// Modifier is a bitmask over the fixed modifier enumeration.
type Modifier uint32

const (
	ModifierShift Modifier = 1 << iota
	ModifierCaps
	ModifierCtrl
	ModifierAlt
	ModifierMod2
	ModifierMod3
	ModifierLogo
	ModifierMod5
)

// NumModifiers is the size of the fixed modifier enumeration.
const NumModifiers = 8

// LED is a bitmask over the fixed indicator enumeration.
type LED uint32

const (
	LEDNumLock LED = 1 << iota
	LEDCapsLock
	LEDScrollLock
)

// NumLEDs is the size of the fixed indicator enumeration.
const NumLEDs = 3

// KeysCap bounds how many keys can be held simultaneously. A device
// reporting more than this is broken; exceeding the cap is treated as a
// programming error, not a recoverable condition.
const KeysCap = 32

// KeyState is the transition direction of a key event.
type KeyState uint32

const (
	KeyReleased KeyState = iota
	KeyPressed
)

// KeyEvent is a single raw key transition as reported by a backend.
type KeyEvent struct {
	// TimeMsec is the event timestamp in milliseconds.
	TimeMsec uint32
	// Keycode is the raw scancode in device-local (evdev) numbering.
	Keycode uint32
	State   KeyState
	// UpdateState controls whether the transition is fed into the
	// composition engine. Synthetic events re-injected from an external
	// state source set this to false to avoid double-applying.
	UpdateState bool
}

// ModifierState is the composed modifier state last reported by the
// composition engine.
type ModifierState struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// RepeatInfo holds the key-repeat rate (characters per second) and delay
// (milliseconds before repeat starts).
type RepeatInfo struct {
	Rate  int32
	Delay int32
}

// Impl is the backend capability set for a concrete keyboard kind. Backends
// additionally implementing LEDUpdater or Destroyer get those capabilities
// invoked; absence of either is a valid variant, not an error.
type Impl interface {
	// Name identifies the backend kind (e.g. "virtkbd").
	Name() string
}

// LEDUpdater is implemented by backends that can assert indicator LEDs.
// Physical backends drive real hardware; virtual backends may forward or
// no-op. The backend decides idempotence: it is called on every derivation,
// not only on change.
type LEDUpdater interface {
	UpdateLEDs(leds LED)
}

// Destroyer is implemented by backends with device-specific teardown. It runs
// after the destroy notification has been delivered.
type Destroyer interface {
	DestroyKeyboard(k *Keyboard)
}

// Keyboard owns the mutable state of one keyboard device. It is driven
// synchronously from a single event-loop goroutine; no entry point blocks.
type Keyboard struct {
	impl   Impl
	logger *slog.Logger

	keymap       *xkb.Keymap
	xkbState     *xkb.State
	keymapString string

	modIndexes [NumModifiers]uint32
	ledIndexes [NumLEDs]uint32

	keycodes []uint32

	modifiers  ModifierState
	repeatInfo RepeatInfo

	destroyed bool

	Events struct {
		Key        signal.Signal[KeyEvent]
		Modifiers  signal.Signal[*Keyboard]
		Keymap     signal.Signal[*Keyboard]
		RepeatInfo signal.Signal[*Keyboard]
		Destroy    signal.Signal[*Keyboard]
	}
}

// New creates a keyboard bound to the given backend. A nil logger falls back
// to slog.Default.
func New(impl Impl, logger *slog.Logger) *Keyboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Keyboard{
		impl:     impl,
		logger:   logger,
		keycodes: make([]uint32, 0, KeysCap),

		// Sane defaults.
		repeatInfo: RepeatInfo{Rate: 25, Delay: 600},
	}
}

// Impl returns the backend the keyboard was created with.
func (k *Keyboard) Impl() Impl { return k.impl }

// Keymap returns the currently bound keymap, or nil when unbound. The
// keyboard retains its own reference; callers wanting to keep the keymap
// beyond the next SetKeymap must Ref it themselves.
func (k *Keyboard) Keymap() *xkb.Keymap { return k.keymap }

// KeymapString returns the canonical text serialization of the bound keymap,
// or the empty string when unbound.
func (k *Keyboard) KeymapString() string { return k.keymapString }

// KeymapSize returns the length of the serialized keymap in bytes.
func (k *Keyboard) KeymapSize() int { return len(k.keymapString) }

// HeldKeys returns a copy of the scancodes currently pressed.
func (k *Keyboard) HeldKeys() []uint32 {
	out := make([]uint32, len(k.keycodes))
	copy(out, k.keycodes)
	return out
}

// RepeatInfo returns the current key-repeat parameters.
func (k *Keyboard) RepeatInfo() RepeatInfo { return k.repeatInfo }

// ModifierState returns the composed modifier state as last reported by the
// composition engine.
func (k *Keyboard) ModifierState() ModifierState { return k.modifiers }

// Modifiers returns the effective modifiers (depressed or latched) mapped
// onto the fixed modifier enumeration. Modifiers whose name could not be
// resolved in the active keymap are never reported.
func (k *Keyboard) Modifiers() Modifier {
	mask := k.modifiers.Depressed | k.modifiers.Latched
	var modifiers Modifier
	for i := 0; i < NumModifiers; i++ {
		if k.modIndexes[i] != xkb.IndexInvalid && mask&(1<<k.modIndexes[i]) != 0 {
			modifiers |= 1 << i
		}
	}
	return modifiers
}

// LEDs returns the LED mask derived on the last recomputation.
func (k *Keyboard) LEDs() LED {
	if k.xkbState == nil {
		return 0
	}
	var leds LED
	for i := 0; i < NumLEDs; i++ {
		if k.xkbState.IndicatorActive(k.ledIndexes[i]) {
			leds |= 1 << i
		}
	}
	return leds
}

// LEDUpdate pushes an LED mask to the backend's LED-assertion capability, if
// it has one.
func (k *Keyboard) LEDUpdate(leds LED) {
	if lu, ok := k.impl.(LEDUpdater); ok {
		lu.UpdateLEDs(leds)
	}
}

// SetRepeatInfo updates the repeat rate and delay. No notification is
// emitted when both values are unchanged.
func (k *Keyboard) SetRepeatInfo(rate, delay int32) {
	if k.repeatInfo.Rate == rate && k.repeatInfo.Delay == delay {
		return
	}
	k.repeatInfo.Rate = rate
	k.repeatInfo.Delay = delay
	k.Events.RepeatInfo.Emit(k)
}

// Destroy emits the destroy notification, then releases the composition
// state, the keymap reference and the serialized keymap, and finally runs the
// backend's teardown capability. Safe to call on a nil or already destroyed
// keyboard.
func (k *Keyboard) Destroy() {
	if k == nil || k.destroyed {
		return
	}
	k.destroyed = true
	k.Events.Destroy.Emit(k)

	k.xkbState.Destroy()
	k.xkbState = nil
	k.keymap.Unref()
	k.keymap = nil
	k.keymapString = ""

	if d, ok := k.impl.(Destroyer); ok {
		d.DestroyKeyboard(k)
	}
	k.Events.Key.Clear()
	k.Events.Modifiers.Clear()
	k.Events.Keymap.Clear()
	k.Events.RepeatInfo.Clear()
	k.Events.Destroy.Clear()
}

// Destroyed reports whether Destroy has run.
func (k *Keyboard) Destroyed() bool { return k == nil || k.destroyed }
