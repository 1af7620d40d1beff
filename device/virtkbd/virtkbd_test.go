package virtkbd_test

import (
	"encoding/json"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/seatkit/seatkit/apitypes"
	"github.com/seatkit/seatkit/device/virtkbd"
	"github.com/seatkit/seatkit/keyboard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBindsDefaultLayout(t *testing.T) {
	d := virtkbd.New(slog.Default())
	assert.Equal(t, "virtkbd", d.Type())
	assert.Equal(t, "virtkbd", d.Name())

	kbd := d.Keyboard()
	require.NotNil(t, kbd)
	require.NotNil(t, kbd.Keymap())
	assert.Equal(t, "us", kbd.Keymap().Name())
	assert.Greater(t, kbd.KeymapSize(), 0)
	kbd.Destroy()
}

func TestLEDCallbackForwarding(t *testing.T) {
	d := virtkbd.New(slog.Default())
	defer d.Keyboard().Destroy()

	var got []keyboard.LED
	d.SetLEDCallback(func(led keyboard.LED) { got = append(got, led) })

	// Caps lock toggles on press.
	d.Keyboard().NotifyKey(keyboard.KeyEvent{Keycode: 58, State: keyboard.KeyPressed, UpdateState: true})
	require.NotEmpty(t, got)
	assert.Equal(t, keyboard.LEDCapsLock, got[len(got)-1])

	// Without a callback LED pushes are dropped.
	d.SetLEDCallback(nil)
	assert.NotPanics(t, func() {
		d.Keyboard().NotifyKey(keyboard.KeyEvent{Keycode: 58, State: keyboard.KeyReleased, UpdateState: true})
	})
}

func readEvent(t *testing.T, dec *json.Decoder) apitypes.KeyboardEvent {
	t.Helper()
	var ev apitypes.KeyboardEvent
	require.NoError(t, dec.Decode(&ev))
	return ev
}

func TestStreamFor(t *testing.T) {
	server, client := net.Pipe()
	d := virtkbd.New(slog.Default())
	defer d.Keyboard().Destroy()

	done := make(chan error, 1)
	go func() {
		done <- virtkbd.StreamFor(server, d.Keyboard(), d.SetLEDCallback, slog.Default())
	}()

	dec := json.NewDecoder(client)

	// Initial announcements: keymap then repeat parameters.
	ev := readEvent(t, dec)
	require.Equal(t, apitypes.EventKeymap, ev.Event)
	require.NotNil(t, ev.Keymap)
	assert.Equal(t, d.Keyboard().KeymapString(), ev.Keymap.Serialized)
	assert.Equal(t, d.Keyboard().KeymapSize(), ev.Keymap.Size)

	ev = readEvent(t, dec)
	require.Equal(t, apitypes.EventRepeatInfo, ev.Event)
	require.NotNil(t, ev.RepeatInfo)
	assert.Equal(t, int32(25), ev.RepeatInfo.Rate)
	assert.Equal(t, int32(600), ev.RepeatInfo.Delay)

	// A caps lock press produces key, modifiers and LED events.
	_, err := client.Write(virtkbd.EncodeKey(10, 58, true, true))
	require.NoError(t, err)

	ev = readEvent(t, dec)
	require.Equal(t, apitypes.EventKey, ev.Event)
	require.NotNil(t, ev.Key)
	assert.Equal(t, uint32(10), ev.Key.TimeMsec)
	assert.Equal(t, uint32(58), ev.Key.Keycode)
	assert.True(t, ev.Key.Pressed)

	ev = readEvent(t, dec)
	require.Equal(t, apitypes.EventModifiers, ev.Event)
	require.NotNil(t, ev.Modifiers)
	assert.NotZero(t, ev.Modifiers.Depressed)
	assert.NotZero(t, ev.Modifiers.Locked)

	ev = readEvent(t, dec)
	require.Equal(t, apitypes.EventLEDs, ev.Event)
	require.NotNil(t, ev.LEDs)
	assert.Equal(t, uint32(keyboard.LEDCapsLock), *ev.LEDs)

	// Repeat parameter changes are echoed back.
	_, err = client.Write(virtkbd.EncodeRepeat(40, 250))
	require.NoError(t, err)
	ev = readEvent(t, dec)
	require.Equal(t, apitypes.EventRepeatInfo, ev.Event)
	require.NotNil(t, ev.RepeatInfo)
	assert.Equal(t, int32(40), ev.RepeatInfo.Rate)
	assert.Equal(t, keyboard.RepeatInfo{Rate: 40, Delay: 250}, d.Keyboard().RepeatInfo())

	// Modifier injection round trip.
	_, err = client.Write(virtkbd.EncodeModifiers(0, 0, 0, 0))
	require.NoError(t, err)
	ev = readEvent(t, dec)
	require.Equal(t, apitypes.EventModifiers, ev.Event)
	require.NotNil(t, ev.Modifiers)
	assert.Zero(t, ev.Modifiers.Depressed)
	assert.Zero(t, ev.Modifiers.Locked)

	// Client disconnect ends the stream cleanly.
	require.NoError(t, client.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not terminate after client close")
	}
}

func TestStreamForDestroy(t *testing.T) {
	server, client := net.Pipe()
	d := virtkbd.New(slog.Default())

	done := make(chan error, 1)
	go func() {
		done <- virtkbd.StreamFor(server, d.Keyboard(), d.SetLEDCallback, slog.Default())
	}()

	dec := json.NewDecoder(client)
	readEvent(t, dec) // keymap
	readEvent(t, dec) // repeat_info

	go d.Keyboard().Destroy()

	ev := readEvent(t, dec)
	assert.Equal(t, apitypes.EventDestroy, ev.Event)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not terminate after destroy")
	}
}
