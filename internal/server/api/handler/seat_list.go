package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/seatkit/seatkit/apitypes"
	"github.com/seatkit/seatkit/internal/server/api"
	"github.com/seatkit/seatkit/internal/server/seat"
)

// SeatList returns a handler that lists registered seats.
// Error logging is centralized in the API server.
func SeatList(m *seat.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		seats := m.ListSeats()
		payload := apitypes.SeatListResponse{Seats: seats}
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
