// Package seat manages seat topology and auto-assigns keyboard device ids.
package seat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seatkit/seatkit/device"
)

var (
	globalSeatCounter uint32
	allocatedSeatIds  = make(map[uint32]bool)
	globalMutex       sync.Mutex
)

// Seat holds the keyboards attached to one logical seat and auto-assigns
// device addresses.
type Seat struct {
	mutex           sync.Mutex
	seatId          uint32
	allocatedDevIDs map[uint32]bool
	devices         []seatDevice
}

// DeviceMeta exposes a registered device and its metadata for external queries.
type DeviceMeta struct {
	Dev  device.Device
	Meta device.Meta
}

type seatDevice struct {
	dev    device.Device
	meta   device.Meta
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Seat with a unique auto-assigned seat number.
func New() *Seat {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	seatId := globalSeatCounter
	if seatId == 0 {
		seatId = 1
	}
	globalSeatCounter = seatId + 1
	allocatedSeatIds[seatId] = true

	return &Seat{
		seatId:          seatId,
		allocatedDevIDs: make(map[uint32]bool),
	}
}

// NewWithSeatId creates a new Seat with a specific seat number. Returns an
// error if the number is already allocated.
func NewWithSeatId(seatId uint32) (*Seat, error) {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	if allocatedSeatIds[seatId] {
		return nil, fmt.Errorf("seat number %d already allocated", seatId)
	}
	allocatedSeatIds[seatId] = true

	return &Seat{
		seatId:          seatId,
		allocatedDevIDs: make(map[uint32]bool),
	}, nil
}

// Add registers a keyboard device on the seat and assigns it the lowest free
// device id. Returns a context carrying the device's lifecycle and metadata
// (use device.GetMeta / device.GetConnTimer to extract).
func (s *Seat) Add(dev device.Device) (context.Context, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, d := range s.devices {
		if d.dev == dev {
			return nil, fmt.Errorf("device already registered on this seat")
		}
	}
	var devID uint32
	for i := uint32(1); ; i++ {
		if !s.allocatedDevIDs[i] {
			devID = i
			s.allocatedDevIDs[i] = true
			break
		}
	}

	meta := device.Meta{
		SeatID:    s.seatId,
		DevID:     devID,
		SeatDevID: fmt.Sprintf("%d-%d", s.seatId, devID),
	}
	connTimer := time.NewTimer(0)

	ctx, cancel := context.WithCancel(context.Background())
	ctx = context.WithValue(ctx, device.MetaKey, &meta)
	ctx = context.WithValue(ctx, device.ConnTimerKey, connTimer)

	s.devices = append(s.devices, seatDevice{dev: dev, meta: meta, ctx: ctx, cancel: cancel})
	return ctx, nil
}

// GetAllDeviceMetas returns a copy of all registered devices with their metadata.
func (s *Seat) GetAllDeviceMetas() []DeviceMeta {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]DeviceMeta, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, DeviceMeta{Dev: d.dev, Meta: d.meta})
	}
	return out
}

// SeatID returns the seat number.
func (s *Seat) SeatID() uint32 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.seatId
}

// Devices returns all devices currently attached to the seat.
func (s *Seat) Devices() []device.Device {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]device.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d.dev)
	}
	return out
}

// RemoveDeviceByID removes a device by its id on this seat (e.g. "1"),
// destroying its keyboard. Returns an error if not found.
func (s *Seat) RemoveDeviceByID(deviceID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i, d := range s.devices {
		if fmt.Sprintf("%d", d.meta.DevID) == deviceID {
			s.removeLocked(i)
			return nil
		}
	}
	return fmt.Errorf("device with id %s not found on seat %d", deviceID, s.seatId)
}

// Remove unregisters a device from the seat, destroying its keyboard.
func (s *Seat) Remove(dev device.Device) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i, d := range s.devices {
		if d.dev == dev {
			s.removeLocked(i)
			return nil
		}
	}
	return fmt.Errorf("device not found")
}

func (s *Seat) removeLocked(i int) {
	d := s.devices[i]
	if d.cancel != nil {
		d.cancel()
	}
	delete(s.allocatedDevIDs, d.meta.DevID)
	s.devices = append(s.devices[:i], s.devices[i+1:]...)
	d.dev.Keyboard().Destroy()
}

// Close destroys all remaining keyboards and frees the seat number for
// reuse. The Seat must not be used afterwards.
func (s *Seat) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i := range s.devices {
		if s.devices[i].cancel != nil {
			s.devices[i].cancel()
		}
		s.devices[i].dev.Keyboard().Destroy()
		s.devices[i].ctx = nil
		s.devices[i].cancel = nil
	}
	s.devices = nil

	globalMutex.Lock()
	defer globalMutex.Unlock()

	delete(allocatedSeatIds, s.seatId)
	return nil
}

// GetDeviceContext returns the lifecycle context for a specific device, or
// nil if the device is not on this seat.
func (s *Seat) GetDeviceContext(dev device.Device) context.Context {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i := range s.devices {
		if s.devices[i].dev == dev {
			return s.devices[i].ctx
		}
	}
	return nil
}
