package api

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/seatkit/seatkit/device"
)

// DeviceStreamHandler returns a stream handler func that dynamically
// dispatches to device-kind-specific handlers.
func DeviceStreamHandler() StreamHandlerFunc {
	return func(conn net.Conn, dev *device.Device, logger *slog.Logger) error {
		defer conn.Close()

		if dev == nil || *dev == nil {
			return fmt.Errorf("nil device")
		}

		deviceType := (*dev).Type()
		reg := GetRegistration(deviceType)
		if reg == nil {
			return fmt.Errorf("no handler for device type: %s", deviceType)
		}
		handler := reg.StreamHandler()
		if err := handler(conn, dev, logger); err != nil {
			return err
		}
		return nil
	}
}
