package virtkbd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/seatkit/seatkit/apitypes"
	"github.com/seatkit/seatkit/device"
	"github.com/seatkit/seatkit/internal/server/api"
	"github.com/seatkit/seatkit/keyboard"
	"github.com/seatkit/seatkit/xkb"
)

func init() {
	api.RegisterDevice("virtkbd", &handler{})
}

type handler struct{}

func (h *handler) CreateDevice(o *device.CreateOptions, logger *slog.Logger) (device.Device, error) {
	d := New(logger)
	if o != nil && o.Layout != nil {
		km, err := xkb.CompileYAML([]byte(*o.Layout))
		if err != nil {
			return nil, err
		}
		d.Keyboard().SetKeymap(km)
		km.Unref()
	}
	return d, nil
}

func (h *handler) StreamHandler() api.StreamHandlerFunc {
	return func(conn net.Conn, devPtr *device.Device, logger *slog.Logger) error {
		if devPtr == nil || *devPtr == nil {
			return fmt.Errorf("nil device")
		}
		kdev, ok := (*devPtr).(*Device)
		if !ok {
			return fmt.Errorf("device is not virtkbd")
		}
		return StreamFor(conn, kdev.Keyboard(), kdev.SetLEDCallback, logger)
	}
}

// StreamFor runs the keyboard stream protocol over conn against kbd: binary
// frames in (see wire.go), JSON event lines out. setLED, when non-nil, is
// used to route LED assertions to the client; backends asserting real
// hardware pass nil. Shared by every keyboard device kind.
func StreamFor(conn net.Conn, kbd *keyboard.Keyboard, setLED func(func(keyboard.LED)), logger *slog.Logger) error {
	enc := json.NewEncoder(conn)

	// Event fan-out to the client. Emission is synchronous with the read
	// loop below, so writes are not interleaved.
	writeEvent := func(ev apitypes.KeyboardEvent) {
		if err := enc.Encode(ev); err != nil {
			logger.Warn("failed to write keyboard event", "error", err)
		}
	}

	if setLED != nil {
		setLED(func(led keyboard.LED) {
			leds := uint32(led)
			writeEvent(apitypes.KeyboardEvent{Event: apitypes.EventLEDs, LEDs: &leds})
		})
		defer setLED(nil)
	}

	keyL := kbd.Events.Key.Add(func(ev keyboard.KeyEvent) {
		writeEvent(apitypes.KeyboardEvent{Event: apitypes.EventKey, Key: &apitypes.KeyEventBody{
			TimeMsec: ev.TimeMsec,
			Keycode:  ev.Keycode,
			Pressed:  ev.State == keyboard.KeyPressed,
		}})
	})
	defer keyL.Remove()

	modL := kbd.Events.Modifiers.Add(func(k *keyboard.Keyboard) {
		st := k.ModifierState()
		writeEvent(apitypes.KeyboardEvent{Event: apitypes.EventModifiers, Modifiers: &apitypes.ModifiersBody{
			Depressed: st.Depressed,
			Latched:   st.Latched,
			Locked:    st.Locked,
			Group:     st.Group,
			Effective: uint32(k.Modifiers()),
		}})
	})
	defer modL.Remove()

	mapL := kbd.Events.Keymap.Add(func(k *keyboard.Keyboard) {
		writeEvent(apitypes.KeyboardEvent{Event: apitypes.EventKeymap, Keymap: &apitypes.KeymapBody{
			Serialized: k.KeymapString(),
			Size:       k.KeymapSize(),
		}})
	})
	defer mapL.Remove()

	repL := kbd.Events.RepeatInfo.Add(func(k *keyboard.Keyboard) {
		ri := k.RepeatInfo()
		writeEvent(apitypes.KeyboardEvent{Event: apitypes.EventRepeatInfo, RepeatInfo: &apitypes.RepeatInfoBody{
			Rate:  ri.Rate,
			Delay: ri.Delay,
		}})
	})
	defer repL.Remove()

	destroyL := kbd.Events.Destroy.Add(func(k *keyboard.Keyboard) {
		writeEvent(apitypes.KeyboardEvent{Event: apitypes.EventDestroy})
		_ = conn.Close()
	})
	defer destroyL.Remove()

	// Announce the current keymap and repeat parameters so a late-joining
	// client starts from the authoritative state.
	if kbd.KeymapSize() > 0 {
		writeEvent(apitypes.KeyboardEvent{Event: apitypes.EventKeymap, Keymap: &apitypes.KeymapBody{
			Serialized: kbd.KeymapString(),
			Size:       kbd.KeymapSize(),
		}})
	}
	ri := kbd.RepeatInfo()
	writeEvent(apitypes.KeyboardEvent{Event: apitypes.EventRepeatInfo, RepeatInfo: &apitypes.RepeatInfoBody{
		Rate:  ri.Rate,
		Delay: ri.Delay,
	}})

	// Read loop: client -> device frames.
	for {
		frame, err := ReadFrame(conn)
		if err != nil {
			if err == io.EOF {
				logger.Info("client disconnected")
				return nil
			}
			if kbd.Destroyed() {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		switch frame.Op {
		case OpKey:
			kbd.NotifyKey(keyboard.KeyEvent{
				TimeMsec:    frame.Key.TimeMsec,
				Keycode:     frame.Key.Keycode,
				State:       frame.Key.KeyState(),
				UpdateState: frame.Key.UpdateState,
			})
		case OpModifiers:
			kbd.NotifyModifiers(frame.Depressed, frame.Latched, frame.Locked, frame.Group)
		case OpRepeat:
			kbd.SetRepeatInfo(frame.Rate, frame.Delay)
		}
	}
}
