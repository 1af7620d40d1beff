// Package seat holds the server-side seat topology: the set of active seats
// and their keyboards, shared between the management API handlers.
package seat

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/seatkit/seatkit/seat"
	"github.com/seatkit/seatkit/xkb"
)

// Manager owns the seat map and the keymap cache used when clients bind
// layouts.
type Manager struct {
	config  *ManagerConfig
	logger  *slog.Logger
	seats   map[uint32]*seat.Seat
	seatsMu sync.Mutex
	keymaps *xkb.Cache
}

// New creates an empty seat manager.
func New(config ManagerConfig, logger *slog.Logger) *Manager {
	return &Manager{
		config:  &config,
		logger:  logger,
		seats:   make(map[uint32]*seat.Seat),
		keymaps: xkb.NewCache(),
	}
}

// Keymaps returns the shared keymap cache.
func (m *Manager) Keymaps() *xkb.Cache { return m.keymaps }

// DefaultKeymap compiles the configured default layout. The builtin "us"
// layout is used unless the config names a YAML layout file.
func (m *Manager) DefaultKeymap() (*xkb.Keymap, error) {
	name := m.config.DefaultLayoutName
	if name == "" || name == "us" {
		return m.keymaps.Compile(xkb.DefaultLayout())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("default layout %q: %w", name, err)
	}
	l, err := xkb.ParseLayout(data)
	if err != nil {
		return nil, fmt.Errorf("default layout %q: %w", name, err)
	}
	return m.keymaps.Compile(l)
}

// AddSeat registers a seat with the manager. If the seat number is already
// present, an error is returned.
func (m *Manager) AddSeat(s *seat.Seat) error {
	m.seatsMu.Lock()
	defer m.seatsMu.Unlock()
	if s == nil {
		return fmt.Errorf("seat is nil")
	}
	if _, ok := m.seats[s.SeatID()]; ok {
		return fmt.Errorf("seat %d already registered", s.SeatID())
	}
	m.seats[s.SeatID()] = s
	return nil
}

// RemoveSeat unregisters a seat, removing any keyboards still attached.
func (m *Manager) RemoveSeat(seatID uint32) error {
	m.seatsMu.Lock()
	s, ok := m.seats[seatID]
	if !ok {
		m.seatsMu.Unlock()
		return fmt.Errorf("seat %d not found", seatID)
	}

	devices := s.Devices()
	m.seatsMu.Unlock()

	if len(devices) > 0 {
		m.logger.Warn("Removing non-empty seat; detaching keyboards", "seatID", seatID, "keyboards", len(devices))
		for _, dev := range devices {
			_ = s.Remove(dev)
		}
	}

	m.seatsMu.Lock()
	delete(m.seats, seatID)
	m.seatsMu.Unlock()

	return s.Close()
}

// RemoveKeyboardByID removes a keyboard by seat and device id, destroying it
// and cancelling its connections.
func (m *Manager) RemoveKeyboardByID(seatID uint32, deviceID string) error {
	m.seatsMu.Lock()
	s, ok := m.seats[seatID]
	m.seatsMu.Unlock()

	if !ok {
		return fmt.Errorf("seat %d not found", seatID)
	}

	return s.RemoveDeviceByID(deviceID)
}

// ListSeats returns a snapshot of active seat numbers.
func (m *Manager) ListSeats() []uint32 {
	m.seatsMu.Lock()
	defer m.seatsMu.Unlock()
	out := make([]uint32, 0, len(m.seats))
	for k := range m.seats {
		out = append(out, k)
	}
	return out
}

// GetSeat returns a seat by id or nil if not present.
func (m *Manager) GetSeat(seatID uint32) *seat.Seat {
	m.seatsMu.Lock()
	defer m.seatsMu.Unlock()
	return m.seats[seatID]
}

// Close removes every seat.
func (m *Manager) Close() error {
	for _, id := range m.ListSeats() {
		if err := m.RemoveSeat(id); err != nil {
			m.logger.Error("failed to remove seat", "seatID", id, "error", err)
		}
	}
	m.keymaps.Close()
	return nil
}
