package xkb

// State derives modifier and indicator state from keycode transitions against
// a compiled keymap. A State holds its own reference on the keymap for its
// lifetime; callers release it with Destroy.
//
// State is not safe for concurrent use; like the keyboard state tracker that
// owns it, it is driven from a single event-loop thread.
type State struct {
	km *Keymap

	// heldMods tracks modifier keycodes currently down (keycode -> modifier
	// index) so the depressed mask survives interleaved presses of multiple
	// keys bound to the same modifier.
	heldMods map[uint32]uint32

	depressed uint32
	latched   uint32
	locked    uint32
	group     uint32
}

// NewState creates a fresh state bound to the keymap. Fails if the keymap has
// been released.
func NewState(km *Keymap) (*State, error) {
	if km == nil || km.released.Load() {
		return nil, ErrKeymapReleased
	}
	km.Ref()
	return &State{
		km:       km,
		heldMods: make(map[uint32]uint32),
	}, nil
}

// Destroy releases the state's keymap reference. Safe to call on nil.
func (s *State) Destroy() {
	if s == nil {
		return
	}
	s.km.Unref()
	s.km = nil
	s.heldMods = nil
}

// UpdateKey feeds a key transition into the state. Keycodes use the xkb
// numbering convention (evdev scancode + 8). Unknown keycodes and plain keys
// release any latched modifiers on press but have no other effect.
func (s *State) UpdateKey(keycode uint32, down bool) {
	if s == nil || s.km == nil {
		return
	}
	beh, ok := s.km.keys[keycode]
	if !ok || (beh.mod == IndexInvalid && beh.action != ActionGroup) {
		if down {
			s.latched = 0
		}
		return
	}

	switch beh.action {
	case ActionSet:
		if down {
			s.heldMods[keycode] = beh.mod
		} else {
			delete(s.heldMods, keycode)
		}
		s.recomputeDepressed()
	case ActionLock:
		if down {
			s.heldMods[keycode] = beh.mod
			s.locked ^= 1 << beh.mod
		} else {
			delete(s.heldMods, keycode)
		}
		s.recomputeDepressed()
	case ActionLatch:
		if down {
			s.heldMods[keycode] = beh.mod
		} else {
			delete(s.heldMods, keycode)
			s.latched |= 1 << beh.mod
		}
		s.recomputeDepressed()
	case ActionGroup:
		if down && s.km.NumGroups() > 0 {
			s.group = (s.group + 1) % s.km.NumGroups()
		}
	}
}

func (s *State) recomputeDepressed() {
	var mask uint32
	for _, mod := range s.heldMods {
		mask |= 1 << mod
	}
	s.depressed = mask
}

// UpdateMask overwrites the modifier masks and group wholesale. This is the
// injection path for state that did not come from this state's own key
// transitions (virtual devices, protocol forwarding); it supersedes any
// key-derived bookkeeping.
func (s *State) UpdateMask(depressed, latched, locked, group uint32) {
	if s == nil || s.km == nil {
		return
	}
	clear(s.heldMods)
	s.depressed = depressed
	s.latched = latched
	s.locked = locked
	if n := s.km.NumGroups(); n > 0 {
		group %= n
	}
	s.group = group
}

// Mods returns the current depressed, latched and locked masks and the
// effective group.
func (s *State) Mods() (depressed, latched, locked, group uint32) {
	if s == nil {
		return 0, 0, 0, 0
	}
	return s.depressed, s.latched, s.locked, s.group
}

// IndicatorActive reports whether the indicator with the given index is lit.
// Out-of-range indices (including IndexInvalid) are never active.
func (s *State) IndicatorActive(index uint32) bool {
	if s == nil || s.km == nil || index >= uint32(len(s.km.indicators)) {
		return false
	}
	mod := s.km.indicators[index].mod
	return s.locked&(1<<mod) != 0
}
