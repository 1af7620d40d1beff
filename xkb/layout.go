package xkb

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// KeyDef describes the behavior of a single keycode in a layout.
// Keycodes use the xkb numbering convention: evdev scancode + 8.
type KeyDef struct {
	// Symbol is the primary symbol produced by the key (informational, used
	// for serialization only).
	Symbol string `yaml:"symbol,omitempty"`
	// Modifier names one of the eight real modifiers (Shift, Lock, Control,
	// Mod1..Mod5) the key acts on. Empty for plain keys.
	Modifier string `yaml:"modifier,omitempty"`
	// Action is one of "set" (momentary, default), "lock" (toggle on press),
	// "latch" (sticky until the next plain key) or "group" (cycle the
	// effective layout group).
	Action string `yaml:"action,omitempty"`
}

// Layout is the declarative source form of a keymap. It is what clients send
// over the wire (YAML) and what Compile turns into an immutable Keymap.
type Layout struct {
	Name       string            `yaml:"name"`
	Groups     []string          `yaml:"groups,omitempty"`
	Keys       map[uint32]KeyDef `yaml:"keys"`
	Indicators map[string]string `yaml:"indicators,omitempty"`
}

// ParseLayout decodes a YAML layout description.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if l.Name == "" {
		return nil, fmt.Errorf("parse layout: missing name")
	}
	return &l, nil
}

// canonical returns a stable YAML rendering of the layout, used as the cache
// digest input.
func (l *Layout) canonical() ([]byte, error) {
	type canonKey struct {
		Keycode uint32 `yaml:"keycode"`
		Def     KeyDef `yaml:"def"`
	}
	keycodes := make([]uint32, 0, len(l.Keys))
	for kc := range l.Keys {
		keycodes = append(keycodes, kc)
	}
	sort.Slice(keycodes, func(i, j int) bool { return keycodes[i] < keycodes[j] })
	keys := make([]canonKey, 0, len(keycodes))
	for _, kc := range keycodes {
		keys = append(keys, canonKey{Keycode: kc, Def: l.Keys[kc]})
	}
	indNames := make([]string, 0, len(l.Indicators))
	for name := range l.Indicators {
		indNames = append(indNames, name)
	}
	sort.Strings(indNames)
	inds := make([][2]string, 0, len(indNames))
	for _, name := range indNames {
		inds = append(inds, [2]string{name, l.Indicators[name]})
	}
	return yaml.Marshal(struct {
		Name       string      `yaml:"name"`
		Groups     []string    `yaml:"groups"`
		Keys       []canonKey  `yaml:"keys"`
		Indicators [][2]string `yaml:"indicators"`
	}{l.Name, l.Groups, keys, inds})
}

// DefaultLayout returns a US-style layout with the usual modifier keys and
// the three lock indicators. Keycodes follow evdev numbering + 8.
func DefaultLayout() *Layout {
	return &Layout{
		Name:   "us",
		Groups: []string{"base"},
		Keys: map[uint32]KeyDef{
			// Modifier keys.
			50:  {Symbol: "Shift_L", Modifier: ModShift},
			62:  {Symbol: "Shift_R", Modifier: ModShift},
			66:  {Symbol: "Caps_Lock", Modifier: ModLock, Action: ActionLock},
			37:  {Symbol: "Control_L", Modifier: ModControl},
			105: {Symbol: "Control_R", Modifier: ModControl},
			64:  {Symbol: "Alt_L", Modifier: ModMod1},
			108: {Symbol: "Alt_R", Modifier: ModMod1},
			77:  {Symbol: "Num_Lock", Modifier: ModMod2, Action: ActionLock},
			78:  {Symbol: "Scroll_Lock", Modifier: ModMod3, Action: ActionLock},
			133: {Symbol: "Super_L", Modifier: ModMod4},
			134: {Symbol: "Super_R", Modifier: ModMod4},

			// Plain keys (top letter row plus a few common ones); enough for
			// clients that only need modifier and indicator semantics.
			9:  {Symbol: "Escape"},
			22: {Symbol: "BackSpace"},
			23: {Symbol: "Tab"},
			24: {Symbol: "q"},
			25: {Symbol: "w"},
			26: {Symbol: "e"},
			27: {Symbol: "r"},
			28: {Symbol: "t"},
			29: {Symbol: "y"},
			30: {Symbol: "u"},
			31: {Symbol: "i"},
			32: {Symbol: "o"},
			33: {Symbol: "p"},
			36: {Symbol: "Return"},
			38: {Symbol: "a"},
			39: {Symbol: "s"},
			40: {Symbol: "d"},
			41: {Symbol: "f"},
			42: {Symbol: "g"},
			43: {Symbol: "h"},
			44: {Symbol: "j"},
			45: {Symbol: "k"},
			46: {Symbol: "l"},
			52: {Symbol: "z"},
			53: {Symbol: "x"},
			54: {Symbol: "c"},
			55: {Symbol: "v"},
			56: {Symbol: "b"},
			57: {Symbol: "n"},
			58: {Symbol: "m"},
			65: {Symbol: "space"},
		},
		Indicators: map[string]string{
			LEDNameNum:    ModMod2,
			LEDNameCaps:   ModLock,
			LEDNameScroll: ModMod3,
		},
	}
}

// CompileYAML parses a YAML layout description and compiles it in one step.
// The returned keymap reference is owned by the caller.
func CompileYAML(data []byte) (*Keymap, error) {
	l, err := ParseLayout(data)
	if err != nil {
		return nil, err
	}
	return Compile(l)
}
