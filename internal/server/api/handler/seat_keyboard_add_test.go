package handler_test

import (
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatkit/seatkit/apiclient"
	"github.com/seatkit/seatkit/device"
	"github.com/seatkit/seatkit/device/virtkbd"
	"github.com/seatkit/seatkit/internal/server/api"
	"github.com/seatkit/seatkit/internal/server/api/handler"
	smgr "github.com/seatkit/seatkit/internal/server/seat"
	th "github.com/seatkit/seatkit/internal/testing"
	"github.com/seatkit/seatkit/seat"
)

func TestSeatKeyboardAdd(t *testing.T) {
	tests := []struct {
		name             string
		setup            func(t *testing.T, m *smgr.Manager)
		pathParams       map[string]string
		payload          any
		expectedResponse string
	}{
		{
			name: "add keyboard to existing seat",
			setup: func(t *testing.T, m *smgr.Manager) {
				s, err := seat.NewWithSeatId(80001)
				if err != nil {
					t.Fatalf("create seat failed: %v", err)
				}
				if err := m.AddSeat(s); err != nil {
					t.Fatalf("add seat failed: %v", err)
				}
			},
			pathParams:       map[string]string{"id": "80001"},
			payload:          `{"type": "virtkbd"}`,
			expectedResponse: `{"seatId":80001, "devId":"1", "type":"virtkbd", "layout":"us", "repeatRate":25, "repeatDelay":600}`,
		},
		{
			name:             "add keyboard to non-existing seat",
			setup:            nil,
			pathParams:       map[string]string{"id": "99999"},
			payload:          `{"type": "virtkbd"}`,
			expectedResponse: `{"status":404,"title":"Not Found","detail":"seat 99999 not found"}`,
		},
		{
			name:             "invalid seat number",
			setup:            nil,
			pathParams:       map[string]string{"id": "baz"},
			payload:          `{"type": "virtkbd"}`,
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"invalid seatId: strconv.ParseUint: parsing \"baz\": invalid syntax"}`,
		},
		{
			name: "invalid json",
			setup: func(t *testing.T, m *smgr.Manager) {
				s, err := seat.NewWithSeatId(80002)
				if err != nil {
					t.Fatalf("create seat failed: %v", err)
				}
				if err := m.AddSeat(s); err != nil {
					t.Fatalf("add seat failed: %v", err)
				}
			},
			pathParams:       map[string]string{"id": "80002"},
			payload:          `virtkbd`,
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"invalid JSON payload: invalid character 'v' looking for beginning of value"}`,
		},
		{
			name: "invalid payload",
			setup: func(t *testing.T, m *smgr.Manager) {
				s, err := seat.NewWithSeatId(80003)
				if err != nil {
					t.Fatalf("create seat failed: %v", err)
				}
				if err := m.AddSeat(s); err != nil {
					t.Fatalf("add seat failed: %v", err)
				}
			},
			pathParams:       map[string]string{"id": "80003"},
			payload:          `{"tpe": "virtkbd"}`,
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"missing keyboard type"}`,
		},
		{
			name: "unknown keyboard type",
			setup: func(t *testing.T, m *smgr.Manager) {
				s, err := seat.NewWithSeatId(80004)
				if err != nil {
					t.Fatalf("create seat failed: %v", err)
				}
				if err := m.AddSeat(s); err != nil {
					t.Fatalf("add seat failed: %v", err)
				}
			},
			pathParams:       map[string]string{"id": "80004"},
			payload:          `{"type": "typewriter"}`,
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"unknown keyboard type: typewriter"}`,
		},
		{
			name: "correct keyboard id after add/remove",
			setup: func(t *testing.T, m *smgr.Manager) {
				s, err := seat.NewWithSeatId(80005)
				if err != nil {
					t.Fatalf("create seat failed: %v", err)
				}
				if err := m.AddSeat(s); err != nil {
					t.Fatalf("add seat failed: %v", err)
				}
				if _, err := s.Add(virtkbd.New(slog.Default())); err != nil {
					t.Fatalf("add keyboard failed: %v", err)
				}
				if err := s.RemoveDeviceByID("1"); err != nil {
					t.Fatalf("remove keyboard failed: %v", err)
				}
			},
			pathParams:       map[string]string{"id": "80005"},
			payload:          `{"type": "virtkbd"}`,
			expectedResponse: `{"seatId":80005, "devId":"1", "type":"virtkbd", "layout":"us", "repeatRate":25, "repeatDelay":600}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, m, done := th.StartAPIServer(t, func(r *api.Router, m *smgr.Manager, apiSrv *api.Server) {
				r.Register("seat/create", handler.SeatCreate(m))
				r.Register("seat/{id}/add", handler.SeatKeyboardAdd(m, apiSrv))
			})
			defer done()

			c := apiclient.NewTransport(addr)
			if tt.setup != nil {
				tt.setup(t, m)
			}
			line, err := c.Do("seat/{id}/add", tt.payload, tt.pathParams)
			assert.NoError(t, err)
			assert.JSONEq(t, tt.expectedResponse, line)
		})
	}
}

// Verify that a keyboard added via API is auto-removed if no stream connects
// within the configured timeout.
func TestSeatKeyboardAdd_NoConnection_TimeoutCleanup(t *testing.T) {
	// We need to control DeviceHandlerConnectTimeout, so set up the API
	// server manually (not via StartAPIServer).
	m := smgr.New(smgr.ManagerConfig{}, slog.Default())
	defer m.Close()

	s, err := seat.NewWithSeatId(80100)
	require.NoError(t, err)
	require.NoError(t, m.AddSeat(s))

	// Choose a free TCP address for the API server
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	_ = ln.Close()

	// Start API server with a very short timeout
	apiCfg := api.ServerConfig{Addr: addr, DeviceHandlerConnectTimeout: 200 * time.Millisecond}
	apiSrv, err := api.New(m, addr, apiCfg, slog.Default())
	require.NoError(t, err)
	r := apiSrv.Router()
	r.Register("seat/{id}/add", handler.SeatKeyboardAdd(m, apiSrv))
	r.Register("seat/{id}/list", handler.SeatKeyboardsList(m))
	require.NoError(t, apiSrv.Start())
	defer apiSrv.Close()

	testReg := th.CreateMockRegistration(t, "mockkbd",
		func(o *device.CreateOptions, l *slog.Logger) (device.Device, error) {
			return virtkbd.New(l), nil
		},
		func(conn net.Conn, devPtr *device.Device, l *slog.Logger) error { return nil },
	)

	api.RegisterDevice("mockkbd", testReg)

	c := apiclient.New(addr)
	_, err = c.KeyboardAdd(80100, "mockkbd", nil)
	require.NoError(t, err)

	// Immediately after add, the keyboard should be present
	list, err := c.KeyboardsList(80100)
	require.NoError(t, err)
	require.Len(t, list.Keyboards, 1)

	// Wait slightly beyond timeout to allow auto-removal
	time.Sleep(350 * time.Millisecond)

	list2, err := c.KeyboardsList(80100)
	require.NoError(t, err)
	assert.Len(t, list2.Keyboards, 0)
}
