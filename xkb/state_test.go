package xkb_test

import (
	"testing"

	"github.com/seatkit/seatkit/xkb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Keycodes in the default layout (xkb numbering, evdev + 8).
const (
	kcShiftL = 50
	kcShiftR = 62
	kcCaps   = 66
	kcA      = 38
)

func newTestState(t *testing.T) (*xkb.State, *xkb.Keymap) {
	t.Helper()
	km, err := xkb.Compile(xkb.DefaultLayout())
	require.NoError(t, err)
	st, err := xkb.NewState(km)
	require.NoError(t, err)
	t.Cleanup(func() {
		st.Destroy()
		km.Unref()
	})
	return st, km
}

func TestStateSetAction(t *testing.T) {
	st, km := newTestState(t)
	shift := uint32(1) << km.ModIndex(xkb.ModShift)

	st.UpdateKey(kcShiftL, true)
	depressed, _, _, _ := st.Mods()
	assert.Equal(t, shift, depressed)

	st.UpdateKey(kcShiftL, false)
	depressed, _, _, _ = st.Mods()
	assert.Zero(t, depressed)
}

func TestStateInterleavedSameModifier(t *testing.T) {
	st, km := newTestState(t)
	shift := uint32(1) << km.ModIndex(xkb.ModShift)

	// Both shift keys down; releasing one must keep the modifier depressed.
	st.UpdateKey(kcShiftL, true)
	st.UpdateKey(kcShiftR, true)
	st.UpdateKey(kcShiftL, false)
	depressed, _, _, _ := st.Mods()
	assert.Equal(t, shift, depressed)

	st.UpdateKey(kcShiftR, false)
	depressed, _, _, _ = st.Mods()
	assert.Zero(t, depressed)
}

func TestStateLockAction(t *testing.T) {
	st, km := newTestState(t)
	lock := uint32(1) << km.ModIndex(xkb.ModLock)

	st.UpdateKey(kcCaps, true)
	st.UpdateKey(kcCaps, false)
	_, _, locked, _ := st.Mods()
	assert.Equal(t, lock, locked)

	// Second press toggles off.
	st.UpdateKey(kcCaps, true)
	st.UpdateKey(kcCaps, false)
	_, _, locked, _ = st.Mods()
	assert.Zero(t, locked)
}

func TestStateLatchAction(t *testing.T) {
	layout := &xkb.Layout{
		Name: "latch",
		Keys: map[uint32]xkb.KeyDef{
			50: {Symbol: "Shift_L", Modifier: xkb.ModShift, Action: xkb.ActionLatch},
			38: {Symbol: "a"},
		},
	}
	km, err := xkb.Compile(layout)
	require.NoError(t, err)
	defer km.Unref()
	st, err := xkb.NewState(km)
	require.NoError(t, err)
	defer st.Destroy()

	shift := uint32(1) << km.ModIndex(xkb.ModShift)

	// While held the modifier is depressed; on release it becomes latched.
	st.UpdateKey(50, true)
	depressed, latched, _, _ := st.Mods()
	assert.Equal(t, shift, depressed)
	assert.Zero(t, latched)

	st.UpdateKey(50, false)
	depressed, latched, _, _ = st.Mods()
	assert.Zero(t, depressed)
	assert.Equal(t, shift, latched)

	// The next plain key press consumes the latch.
	st.UpdateKey(38, true)
	_, latched, _, _ = st.Mods()
	assert.Zero(t, latched)
}

func TestStateGroupAction(t *testing.T) {
	layout := &xkb.Layout{
		Name:   "grp",
		Groups: []string{"base", "alt", "extra"},
		Keys: map[uint32]xkb.KeyDef{
			100: {Symbol: "ISO_Next_Group", Action: xkb.ActionGroup},
		},
	}
	km, err := xkb.Compile(layout)
	require.NoError(t, err)
	defer km.Unref()
	st, err := xkb.NewState(km)
	require.NoError(t, err)
	defer st.Destroy()

	press := func() {
		st.UpdateKey(100, true)
		st.UpdateKey(100, false)
	}

	_, _, _, group := st.Mods()
	assert.Equal(t, uint32(0), group)
	press()
	_, _, _, group = st.Mods()
	assert.Equal(t, uint32(1), group)
	press()
	press()
	_, _, _, group = st.Mods()
	assert.Equal(t, uint32(0), group, "group cycles modulo the group count")
}

func TestStateUnknownKeycode(t *testing.T) {
	st, _ := newTestState(t)
	st.UpdateKey(9999, true)
	st.UpdateKey(9999, false)
	depressed, latched, locked, group := st.Mods()
	assert.Zero(t, depressed)
	assert.Zero(t, latched)
	assert.Zero(t, locked)
	assert.Zero(t, group)
}

func TestStateUpdateMask(t *testing.T) {
	st, km := newTestState(t)
	shift := uint32(1) << km.ModIndex(xkb.ModShift)
	lock := uint32(1) << km.ModIndex(xkb.ModLock)

	st.UpdateKey(kcShiftL, true)

	// Wholesale injection supersedes key-derived bookkeeping.
	st.UpdateMask(0, 0, lock, 0)
	depressed, latched, locked, group := st.Mods()
	assert.Zero(t, depressed)
	assert.Zero(t, latched)
	assert.Equal(t, lock, locked)
	assert.Zero(t, group)

	// Out-of-range groups wrap.
	st.UpdateMask(shift, 0, 0, 5)
	depressed, _, _, group = st.Mods()
	assert.Equal(t, shift, depressed)
	assert.Equal(t, uint32(0), group)
}

func TestStateIndicators(t *testing.T) {
	st, km := newTestState(t)

	capsIdx := km.LEDIndex(xkb.LEDNameCaps)
	require.NotEqual(t, xkb.IndexInvalid, capsIdx)
	assert.False(t, st.IndicatorActive(capsIdx))

	st.UpdateKey(kcCaps, true)
	st.UpdateKey(kcCaps, false)
	assert.True(t, st.IndicatorActive(capsIdx))

	assert.False(t, st.IndicatorActive(xkb.IndexInvalid))
}

func TestStateDestroySafety(t *testing.T) {
	var st *xkb.State
	st.Destroy()
	st.UpdateKey(kcShiftL, true)
	depressed, _, _, _ := st.Mods()
	assert.Zero(t, depressed)

	km, err := xkb.Compile(xkb.DefaultLayout())
	require.NoError(t, err)
	st2, err := xkb.NewState(km)
	require.NoError(t, err)

	// The state holds its own keymap reference.
	km.Unref()
	_, err = km.AsString()
	assert.NoError(t, err)

	st2.Destroy()
	_, err = km.AsString()
	assert.ErrorIs(t, err, xkb.ErrKeymapReleased)
}
