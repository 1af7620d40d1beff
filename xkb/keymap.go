// Package xkb is a small, self-contained composition engine in the spirit of
// libxkbcommon: it compiles declarative layout descriptions into immutable,
// reference-counted keymaps and derives modifier and indicator state from
// keycode transitions.
//
// It intentionally covers only the subset a compositor's keyboard state
// tracker needs: the eight real modifiers, lock/latch/group key actions,
// named indicators and a canonical text serialization of the keymap.
package xkb

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

// The eight real modifiers, in fixed index order 0..7.
const (
	ModShift   = "Shift"
	ModLock    = "Lock"
	ModControl = "Control"
	ModMod1    = "Mod1"
	ModMod2    = "Mod2"
	ModMod3    = "Mod3"
	ModMod4    = "Mod4"
	ModMod5    = "Mod5"
)

// Canonical indicator names.
const (
	LEDNameNum    = "Num Lock"
	LEDNameCaps   = "Caps Lock"
	LEDNameScroll = "Scroll Lock"
)

// NumMods is the number of real modifiers in every keymap.
const NumMods = 8

// IndexInvalid is returned by ModIndex and LEDIndex when the requested name
// does not exist in the keymap.
const IndexInvalid uint32 = 0xffffffff

// Key actions.
const (
	ActionSet   = "set"
	ActionLock  = "lock"
	ActionLatch = "latch"
	ActionGroup = "group"
)

var realModNames = [NumMods]string{
	ModShift, ModLock, ModControl, ModMod1, ModMod2, ModMod3, ModMod4, ModMod5,
}

// ErrKeymapReleased is returned when a keymap is used after its reference
// count dropped to zero.
var ErrKeymapReleased = errors.New("xkb: keymap has been released")

type keyBehavior struct {
	symbol string
	mod    uint32 // modifier index, IndexInvalid for plain keys
	action string
}

type indicator struct {
	name string
	mod  uint32 // modifier index driving the indicator
}

// Keymap is a compiled, immutable layout. Keymaps are reference counted:
// Compile and Cache.Compile return a reference owned by the caller, and each
// holder must balance it with Unref. Once the count reaches zero the keymap
// is released and any further use fails.
type Keymap struct {
	refs atomic.Int32

	name       string
	groups     []string
	keys       map[uint32]keyBehavior
	indicators []indicator

	released atomic.Bool
}

// Compile turns a layout description into a keymap. The returned reference is
// owned by the caller.
func Compile(l *Layout) (*Keymap, error) {
	if l == nil {
		return nil, errors.New("xkb: nil layout")
	}
	if l.Name == "" {
		return nil, errors.New("xkb: layout has no name")
	}
	groups := l.Groups
	if len(groups) == 0 {
		groups = []string{"base"}
	}

	modIdx := make(map[string]uint32, NumMods)
	for i, name := range realModNames {
		modIdx[name] = uint32(i)
	}

	keys := make(map[uint32]keyBehavior, len(l.Keys))
	for kc, def := range l.Keys {
		b := keyBehavior{symbol: def.Symbol, mod: IndexInvalid, action: ActionSet}
		if def.Modifier != "" {
			idx, ok := modIdx[def.Modifier]
			if !ok {
				return nil, fmt.Errorf("xkb: keycode %d references unknown modifier %q", kc, def.Modifier)
			}
			b.mod = idx
		}
		if def.Action != "" {
			switch def.Action {
			case ActionSet, ActionLock, ActionLatch, ActionGroup:
				b.action = def.Action
			default:
				return nil, fmt.Errorf("xkb: keycode %d has unknown action %q", kc, def.Action)
			}
			if b.action != ActionGroup && b.mod == IndexInvalid {
				return nil, fmt.Errorf("xkb: keycode %d has action %q but no modifier", kc, def.Action)
			}
		}
		keys[kc] = b
	}

	indNames := make([]string, 0, len(l.Indicators))
	for name := range l.Indicators {
		indNames = append(indNames, name)
	}
	sort.Strings(indNames)
	indicators := make([]indicator, 0, len(indNames))
	for _, name := range indNames {
		modName := l.Indicators[name]
		idx, ok := modIdx[modName]
		if !ok {
			return nil, fmt.Errorf("xkb: indicator %q references unknown modifier %q", name, modName)
		}
		indicators = append(indicators, indicator{name: name, mod: idx})
	}

	km := &Keymap{
		name:       l.Name,
		groups:     groups,
		keys:       keys,
		indicators: indicators,
	}
	km.refs.Store(1)
	return km, nil
}

// Ref takes an additional reference on the keymap.
func (km *Keymap) Ref() {
	if km == nil {
		return
	}
	km.refs.Add(1)
}

// Unref drops a reference. When the count reaches zero the keymap is
// released; the struct stays valid but every operation on it fails.
func (km *Keymap) Unref() {
	if km == nil {
		return
	}
	if km.refs.Add(-1) == 0 {
		km.released.Store(true)
	}
}

// Name returns the layout name the keymap was compiled from.
func (km *Keymap) Name() string { return km.name }

// NumGroups returns the number of layout groups.
func (km *Keymap) NumGroups() uint32 { return uint32(len(km.groups)) }

// ModIndex resolves a modifier name to its index, or IndexInvalid if the
// keymap does not define it.
func (km *Keymap) ModIndex(name string) uint32 {
	if km == nil || km.released.Load() {
		return IndexInvalid
	}
	for i, n := range realModNames {
		if n == name {
			return uint32(i)
		}
	}
	return IndexInvalid
}

// LEDIndex resolves an indicator name to its index, or IndexInvalid if the
// keymap does not define it.
func (km *Keymap) LEDIndex(name string) uint32 {
	if km == nil || km.released.Load() {
		return IndexInvalid
	}
	for i, ind := range km.indicators {
		if ind.name == name {
			return uint32(i)
		}
	}
	return IndexInvalid
}

// AsString serializes the keymap to its canonical text form.
func (km *Keymap) AsString() (string, error) {
	if km == nil || km.released.Load() {
		return "", ErrKeymapReleased
	}

	keycodes := make([]uint32, 0, len(km.keys))
	for kc := range km.keys {
		keycodes = append(keycodes, kc)
	}
	sort.Slice(keycodes, func(i, j int) bool { return keycodes[i] < keycodes[j] })

	var b strings.Builder
	fmt.Fprintf(&b, "xkb_keymap %q {\n", km.name)

	b.WriteString("\txkb_keycodes {\n")
	for _, kc := range keycodes {
		fmt.Fprintf(&b, "\t\t<K%d> = %d;\n", kc, kc)
	}
	b.WriteString("\t};\n")

	b.WriteString("\txkb_modifiers {\n")
	for _, name := range realModNames {
		fmt.Fprintf(&b, "\t\t%s;\n", name)
	}
	b.WriteString("\t};\n")

	b.WriteString("\txkb_groups {\n")
	for _, g := range km.groups {
		fmt.Fprintf(&b, "\t\t%q;\n", g)
	}
	b.WriteString("\t};\n")

	b.WriteString("\txkb_symbols {\n")
	for _, kc := range keycodes {
		beh := km.keys[kc]
		fmt.Fprintf(&b, "\t\t<K%d> = { symbol = %q", kc, beh.symbol)
		if beh.mod != IndexInvalid {
			fmt.Fprintf(&b, ", modifier = %s, action = %s", realModNames[beh.mod], beh.action)
		} else if beh.action == ActionGroup {
			b.WriteString(", action = group")
		}
		b.WriteString(" };\n")
	}
	b.WriteString("\t};\n")

	b.WriteString("\txkb_indicators {\n")
	for _, ind := range km.indicators {
		fmt.Fprintf(&b, "\t\t%q = %s;\n", ind.name, realModNames[ind.mod])
	}
	b.WriteString("\t};\n")

	b.WriteString("};\n")
	return b.String(), nil
}
