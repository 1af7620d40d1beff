//go:build linux

package evdev

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/seatkit/seatkit/device"
	"github.com/seatkit/seatkit/device/virtkbd"
	"github.com/seatkit/seatkit/internal/server/api"
	"github.com/seatkit/seatkit/xkb"
)

func init() {
	api.RegisterDevice("evdev", &handler{})
}

type handler struct{}

func (h *handler) CreateDevice(o *device.CreateOptions, logger *slog.Logger) (device.Device, error) {
	if o == nil || o.Path == nil {
		return nil, fmt.Errorf("evdev device requires a path")
	}
	d, err := New(*o.Path, logger)
	if err != nil {
		return nil, err
	}
	if o.Layout != nil {
		km, err := xkb.CompileYAML([]byte(*o.Layout))
		if err != nil {
			d.Keyboard().Destroy()
			return nil, err
		}
		d.Keyboard().SetKeymap(km)
		km.Unref()
	}
	return d, nil
}

// StreamHandler accepts the same frame protocol as virtkbd; frames are
// injected into the hardware-backed tracker, so LED assertions land on the
// real device while events go back to the client.
func (h *handler) StreamHandler() api.StreamHandlerFunc {
	return func(conn net.Conn, devPtr *device.Device, logger *slog.Logger) error {
		if devPtr == nil || *devPtr == nil {
			return fmt.Errorf("nil device")
		}
		edev, ok := (*devPtr).(*Device)
		if !ok {
			return fmt.Errorf("device is not evdev")
		}
		return virtkbd.StreamFor(conn, edev.Keyboard(), nil, logger)
	}
}
