package testing

import (
	"testing"

	"log/slog"

	"github.com/seatkit/seatkit/device"
	"github.com/seatkit/seatkit/internal/server/api"
)

type mockRegistration struct {
	deviceName  string
	handlerFunc api.StreamHandlerFunc

	createFunc func(o *device.CreateOptions, logger *slog.Logger) (device.Device, error)
}

func (m *mockRegistration) CreateDevice(o *device.CreateOptions, logger *slog.Logger) (device.Device, error) {
	return m.createFunc(o, logger)
}

func (m *mockRegistration) StreamHandler() api.StreamHandlerFunc {
	return m.handlerFunc
}

func CreateMockRegistration(
	t *testing.T,
	name string,
	cf func(o *device.CreateOptions, logger *slog.Logger) (device.Device, error),
	h api.StreamHandlerFunc,
) api.DeviceRegistration {
	return &mockRegistration{
		deviceName:  name,
		handlerFunc: h,
		createFunc:  cf,
	}
}
