package api

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/seatkit/seatkit/device"
)

// DeviceRegistration describes a keyboard device kind, providing both device
// creation and stream handler registration.
type DeviceRegistration interface {
	// CreateDevice returns a new device instance of this kind.
	CreateDevice(o *device.CreateOptions, logger *slog.Logger) (device.Device, error)
	// StreamHandler returns the handler function for long-lived connections.
	StreamHandler() StreamHandlerFunc
}

var (
	deviceRegistry   = make(map[string]DeviceRegistration)
	deviceRegistryMu sync.RWMutex
)

// RegisterDevice registers a device kind for dynamic creation and handler
// dispatch. This should be called from device package init() functions.
// The name is case-insensitive and will be lowercased.
func RegisterDevice(name string, reg DeviceRegistration) {
	deviceRegistryMu.Lock()
	defer deviceRegistryMu.Unlock()
	deviceRegistry[strings.ToLower(name)] = reg
}

// GetRegistration retrieves a registered device kind by name for device
// creation. Returns nil if not found. Name lookup is case-insensitive.
func GetRegistration(name string) DeviceRegistration {
	deviceRegistryMu.RLock()
	defer deviceRegistryMu.RUnlock()
	return deviceRegistry[strings.ToLower(name)]
}

// ListDeviceTypes returns a list of all registered device kind names.
func ListDeviceTypes() []string {
	deviceRegistryMu.RLock()
	defer deviceRegistryMu.RUnlock()
	types := make([]string, 0, len(deviceRegistry))
	for name := range deviceRegistry {
		types = append(types, name)
	}
	return types
}

// GetStreamHandler retrieves the stream handler for a registered device
// kind. Returns nil if not found. Name lookup is case-insensitive.
func GetStreamHandler(name string) StreamHandlerFunc {
	reg := GetRegistration(name)
	if reg == nil {
		return nil
	}
	return reg.StreamHandler()
}
