package handler_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seatkit/seatkit/apiclient"
	"github.com/seatkit/seatkit/device/virtkbd"
	"github.com/seatkit/seatkit/internal/server/api"
	"github.com/seatkit/seatkit/internal/server/api/handler"
	smgr "github.com/seatkit/seatkit/internal/server/seat"
	handlerTest "github.com/seatkit/seatkit/internal/testing"
	"github.com/seatkit/seatkit/seat"
)

func TestSeatKeyboardsList(t *testing.T) {
	tests := []struct {
		name             string
		setup            func(t *testing.T, m *smgr.Manager)
		pathParams       map[string]string
		expectedResponse string
	}{
		{
			name: "empty seat",
			setup: func(t *testing.T, m *smgr.Manager) {
				s, err := seat.NewWithSeatId(90001)
				if err != nil {
					t.Fatalf("create seat failed: %v", err)
				}
				if err := m.AddSeat(s); err != nil {
					t.Fatalf("add seat failed: %v", err)
				}
			},
			pathParams:       map[string]string{"id": "90001"},
			expectedResponse: `{"keyboards":[]}`,
		},
		{
			name: "seat with one keyboard",
			setup: func(t *testing.T, m *smgr.Manager) {
				s, err := seat.NewWithSeatId(90002)
				if err != nil {
					t.Fatalf("create seat failed: %v", err)
				}
				if err := m.AddSeat(s); err != nil {
					t.Fatalf("add seat failed: %v", err)
				}
				if _, err := s.Add(virtkbd.New(slog.Default())); err != nil {
					t.Fatalf("add keyboard failed: %v", err)
				}
			},
			pathParams:       map[string]string{"id": "90002"},
			expectedResponse: `{"keyboards":[{"seatId":90002,"devId":"1","type":"virtkbd","layout":"us","repeatRate":25,"repeatDelay":600}]}`,
		},
		{
			name:             "non-existing seat",
			setup:            nil,
			pathParams:       map[string]string{"id": "99999"},
			expectedResponse: `{"status":404,"title":"Not Found","detail":"seat 99999 not found"}`,
		},
		{
			name:             "invalid seat number",
			setup:            nil,
			pathParams:       map[string]string{"id": "qux"},
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"invalid seatId: strconv.ParseUint: parsing \"qux\": invalid syntax"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, m, done := handlerTest.StartAPIServer(t, func(r *api.Router, m *smgr.Manager, apiSrv *api.Server) {
				r.Register("seat/{id}/list", handler.SeatKeyboardsList(m))
			})
			defer done()

			c := apiclient.NewTransport(addr)
			if tt.setup != nil {
				tt.setup(t, m)
			}
			line, err := c.Do("seat/{id}/list", nil, tt.pathParams)
			assert.NoError(t, err)
			assert.JSONEq(t, tt.expectedResponse, line)
		})
	}
}
