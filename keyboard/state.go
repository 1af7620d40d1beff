package keyboard

import "github.com/seatkit/seatkit/xkb"

// keycodeOffset converts evdev scancodes to the composition engine's keycode
// numbering.
const keycodeOffset = 8

var ledNames = [NumLEDs]string{
	xkb.LEDNameNum,
	xkb.LEDNameCaps,
	xkb.LEDNameScroll,
}

var modNames = [NumModifiers]string{
	xkb.ModShift,
	xkb.ModLock,
	xkb.ModControl,
	xkb.ModMod1,
	xkb.ModMod2,
	xkb.ModMod3,
	xkb.ModMod4,
	xkb.ModMod5,
}

// ledUpdate derives the LED mask from the composition state and pushes it to
// the backend. The push is unconditional; idempotence is the backend's call.
func (k *Keyboard) ledUpdate() {
	if k.xkbState == nil {
		return
	}
	k.LEDUpdate(k.LEDs())
}

// modifierUpdate re-reads the composed modifier state and reports whether it
// differs from the last reported state. On change the cache is updated; the
// caller decides whether a notification follows.
func (k *Keyboard) modifierUpdate() bool {
	if k.xkbState == nil {
		return false
	}
	depressed, latched, locked, group := k.xkbState.Mods()
	if depressed == k.modifiers.Depressed &&
		latched == k.modifiers.Latched &&
		locked == k.modifiers.Locked &&
		group == k.modifiers.Group {
		return false
	}

	k.modifiers.Depressed = depressed
	k.modifiers.Latched = latched
	k.modifiers.Locked = locked
	k.modifiers.Group = group

	return true
}

// keyUpdate maintains the held-key set. Presses of already-held keys and
// releases of absent keys are no-ops.
func (k *Keyboard) keyUpdate(event KeyEvent) {
	switch event.State {
	case KeyPressed:
		for _, kc := range k.keycodes {
			if kc == event.Keycode {
				return
			}
		}
		if len(k.keycodes) >= KeysCap {
			panic("keyboard: held key capacity exceeded")
		}
		k.keycodes = append(k.keycodes, event.Keycode)
	case KeyReleased:
		for i, kc := range k.keycodes {
			if kc == event.Keycode {
				k.keycodes = append(k.keycodes[:i], k.keycodes[i+1:]...)
				return
			}
		}
	}
}

// NotifyKey applies a raw key transition. The key notification itself is
// unconditional; modifier and LED notifications follow only from actual
// derived-state changes.
func (k *Keyboard) NotifyKey(event KeyEvent) {
	k.keyUpdate(event)
	k.Events.Key.Emit(event)

	if k.xkbState == nil {
		return
	}

	if event.UpdateState {
		keycode := event.Keycode + keycodeOffset
		k.xkbState.UpdateKey(keycode, event.State == KeyPressed)
	}

	if k.modifierUpdate() {
		k.Events.Modifiers.Emit(k)
	}
	k.ledUpdate()
}

// NotifyModifiers injects composed modifier state directly, bypassing
// scancode translation. Used by virtual devices and protocol forwarding; it
// never touches the held-key set. No-op while no keymap is bound.
func (k *Keyboard) NotifyModifiers(depressed, latched, locked, group uint32) {
	if k.xkbState == nil {
		return
	}
	k.xkbState.UpdateMask(depressed, latched, locked, group)

	if k.modifierUpdate() {
		k.Events.Modifiers.Emit(k)
	}
	k.ledUpdate()
}

// SetKeymap binds a new keymap, rebuilding the composition state, the
// modifier and LED index tables and the serialized form, and replaying every
// held key into the new state so keys held across the change stay held. On
// any failure the keyboard is left unbound: no keymap, no composition state,
// no serialized form, and no notification is emitted.
func (k *Keyboard) SetKeymap(keymap *xkb.Keymap) {
	k.keymap.Unref()
	keymap.Ref()
	k.keymap = keymap

	k.xkbState.Destroy()
	k.xkbState = nil
	st, err := xkb.NewState(keymap)
	if err != nil {
		k.logger.Error("failed to create composition state", "error", err)
		k.setKeymapCleanup()
		return
	}
	k.xkbState = st

	for i := range ledNames {
		k.ledIndexes[i] = keymap.LEDIndex(ledNames[i])
	}
	for i := range modNames {
		k.modIndexes[i] = keymap.ModIndex(modNames[i])
	}

	str, err := keymap.AsString()
	if err != nil {
		k.logger.Error("failed to serialize keymap", "error", err)
		k.setKeymapCleanup()
		return
	}
	k.keymapString = str

	for _, kc := range k.keycodes {
		k.xkbState.UpdateKey(kc+keycodeOffset, true)
	}

	// The keymap notification below subsumes a possible modifier change, so
	// no separate modifiers notification is emitted here.
	k.modifierUpdate()

	k.Events.Keymap.Emit(k)
}

func (k *Keyboard) setKeymapCleanup() {
	k.xkbState.Destroy()
	k.xkbState = nil
	k.keymap.Unref()
	k.keymap = nil
	k.keymapString = ""
}
